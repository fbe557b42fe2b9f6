package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/cwygoda/get/internal/domain"
	"github.com/cwygoda/get/internal/origin"
)

// DefaultMangaDexAPI is the base URL of the MangaDex v2 API.
const DefaultMangaDexAPI = "https://api.mangadex.org/v2/"

var (
	mangadexPattern = regexp.MustCompile(`^https?://(www\.)?mangadex\.org/title/(\d+)(/|$)`)
	mangaIDPattern  = regexp.MustCompile(`^\d+$`)
)

// MangaDex lists the chapters of a title and the pages of each chapter.
type MangaDex struct {
	api  string
	pool *origin.Pool
}

// NewMangaDex creates a source talking to the API at api through pool.
func NewMangaDex(api string, pool *origin.Pool) *MangaDex {
	if api == "" {
		api = DefaultMangaDexAPI
	}
	if !strings.HasSuffix(api, "/") {
		api += "/"
	}
	return &MangaDex{api: api, pool: pool}
}

// Name returns the source name.
func (m *MangaDex) Name() string {
	return "mangadex"
}

// Match accepts title page URLs and bare numeric title ids.
func (m *MangaDex) Match(root string) bool {
	return mangadexPattern.MatchString(root) || mangaIDPattern.MatchString(root)
}

// TitleID extracts the numeric title id from a page URL such as
// https://mangadex.org/title/499/teppu/.
func TitleID(root string) (string, error) {
	if mangaIDPattern.MatchString(root) {
		return root, nil
	}
	m := mangadexPattern.FindStringSubmatch(root)
	if m == nil {
		return "", fmt.Errorf("%w: %q is not a mangadex title", domain.ErrNoSource, root)
	}
	return m[2], nil
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type chapterListResponse struct {
	Data struct {
		Chapters []struct {
			ID         flexString   `json:"id"`
			Title      string       `json:"title"`
			Chapter    string       `json:"chapter"`
			Language   string       `json:"language"`
			MangaTitle string       `json:"mangaTitle"`
			Groups     []flexString `json:"groups"`
		} `json:"chapters"`
		Groups []struct {
			ID   flexString `json:"id"`
			Name string     `json:"name"`
		} `json:"groups"`
	} `json:"data"`
}

type chapterResponse struct {
	Data struct {
		Hash   string   `json:"hash"`
		Server string   `json:"server"`
		Pages  []string `json:"pages"`
	} `json:"data"`
}

// List returns every chapter of the title with its scanlation groups.
func (m *MangaDex) List(ctx context.Context, root string) (*domain.Listing, error) {
	id, err := TitleID(root)
	if err != nil {
		return nil, err
	}

	var resp chapterListResponse
	if err := m.getJSON(ctx, "manga/"+id+"/chapters", &resp); err != nil {
		return nil, fmt.Errorf("list chapters of %s: %w", id, err)
	}

	l := &domain.Listing{
		Title:      id,
		GroupNames: make(map[string]string, len(resp.Data.Groups)),
	}
	for _, g := range resp.Data.Groups {
		l.GroupNames[string(g.ID)] = g.Name
	}
	for _, c := range resp.Data.Chapters {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: chapter without id in title %s", domain.ErrProtocol, id)
		}
		if c.MangaTitle != "" {
			l.Title = c.MangaTitle
		}
		groups := make([]string, 0, len(c.Groups))
		for _, g := range c.Groups {
			groups = append(groups, string(g))
		}
		number := c.Chapter
		if number == "" {
			number = string(c.ID)
		}
		l.Items = append(l.Items, domain.Item{
			ID:       string(c.ID),
			Name:     c.Title,
			Number:   number,
			Language: c.Language,
			Group:    domain.NewGroupKey(groups...),
		})
	}
	return l, nil
}

// Detail returns the page images of one chapter.
func (m *MangaDex) Detail(ctx context.Context, task domain.DiscoveryTask) ([]domain.Leaf, error) {
	var resp chapterResponse
	if err := m.getJSON(ctx, "chapter/"+task.ID, &resp); err != nil {
		return nil, err
	}
	d := resp.Data
	if d.Server == "" {
		return nil, fmt.Errorf("%w: chapter %s has no server", domain.ErrProtocol, task.ID)
	}

	base := d.Server
	if d.Hash != "" {
		base = strings.TrimSuffix(base, "/") + "/" + d.Hash + "/"
	}

	leaves := make([]domain.Leaf, 0, len(d.Pages))
	for _, page := range d.Pages {
		o, p, err := origin.Split(base + url.PathEscape(page))
		if err != nil {
			return nil, fmt.Errorf("chapter %s page %q: %w", task.ID, page, err)
		}
		leaves = append(leaves, domain.Leaf{Name: path.Base(page), Origin: o, Path: p})
	}
	return leaves, nil
}

func (m *MangaDex) getJSON(ctx context.Context, rel string, v any) error {
	c, p, err := m.pool.ForURL(m.api + rel)
	if err != nil {
		return err
	}
	return c.GetJSON(ctx, p, v)
}
