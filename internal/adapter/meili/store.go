package meili

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cwygoda/get/internal/domain"
	"github.com/cwygoda/get/internal/origin"
)

// DefaultURL is where a local Meilisearch listens.
const DefaultURL = "http://127.0.0.1:7700"

// Store implements domain.BatchStore against the Meilisearch update API.
type Store struct {
	client *origin.Client
	prefix string
}

// New creates a store for the instance at baseURL, using a client from pool.
func New(pool *origin.Pool, baseURL string) (*Store, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c, p, err := pool.ForURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("meilisearch url: %w", err)
	}
	if p == "/" {
		p = ""
	}
	return &Store{client: c, prefix: p}, nil
}

// Health checks that the instance answers.
func (s *Store) Health(ctx context.Context) error {
	if _, err := s.client.Fetch(ctx, s.prefix+"/health"); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnhealthy, err)
	}
	return nil
}

type updateResponse struct {
	UpdateID *int64 `json:"updateId"`
}

// AddDocuments adds or replaces docs in index and returns the update id.
func (s *Store) AddDocuments(ctx context.Context, index string, docs []domain.Document) (int64, error) {
	if docs == nil {
		docs = []domain.Document{}
	}
	var resp updateResponse
	if err := s.client.DoJSON(ctx, http.MethodPut, s.indexPath(index)+"/documents", docs, &resp); err != nil {
		return 0, err
	}
	if resp.UpdateID == nil {
		return 0, fmt.Errorf("%w: add documents to %s: no updateId", domain.ErrProtocol, index)
	}
	return *resp.UpdateID, nil
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// JobStatus maps the remote update status onto domain.JobStatus. Statuses
// outside the known set are reported as domain.ErrUnknownJobStatus.
func (s *Store) JobStatus(ctx context.Context, index string, id int64) (domain.JobStatus, error) {
	var resp statusResponse
	path := s.indexPath(index) + "/updates/" + strconv.FormatInt(id, 10)
	if err := s.client.GetJSON(ctx, path, &resp); err != nil {
		return "", err
	}
	switch resp.Status {
	case "enqueued", "processing":
		return domain.StatusPending, nil
	case "processed":
		return domain.StatusSucceeded, nil
	case "failed":
		return domain.StatusFailed, nil
	default:
		return "", fmt.Errorf("update %d: %w %q", id, domain.ErrUnknownJobStatus, resp.Status)
	}
}

func (s *Store) indexPath(index string) string {
	return s.prefix + "/indexes/" + url.PathEscape(index)
}
