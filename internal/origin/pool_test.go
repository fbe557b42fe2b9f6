package origin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwygoda/get/internal/domain"
)

func TestPool_GetSharesClientAcrossRacers(t *testing.T) {
	p := NewPool(Options{})

	const racers = 64
	clients := make([]*Client, racers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			clients[i] = p.Get("https://s2.example.org")
		}(i)
	}
	close(start)
	wg.Wait()

	for _, c := range clients {
		assert.Same(t, clients[0], c)
	}
	assert.Equal(t, int64(1), p.Created())
}

func TestPool_OneClientPerOrigin(t *testing.T) {
	p := NewPool(Options{})

	a := p.Get("https://a.example.org")
	b := p.Get("https://b.example.org")
	a2, path, err := p.ForURL("https://a.example.org/data/x.png?v=1")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Same(t, a, a2)
	assert.Equal(t, "/data/x.png?v=1", path)
	assert.Equal(t, int64(2), p.Created())

	p.CloseAll()
	p.CloseAll()
}

func TestPool_CloseAllReleasesClientsForLaterRuns(t *testing.T) {
	p := NewPool(Options{})

	first := p.Get("https://a.example.org")
	p.CloseAll()

	second := p.Get("https://a.example.org")
	assert.NotSame(t, first, second, "a closed client must not be handed out again")
	assert.Same(t, second, p.Get("https://a.example.org"))
	assert.Equal(t, int64(2), p.Created())

	p.CloseAll()
	n := 0
	p.clients.Range(func(_, _ any) bool {
		n++
		return true
	})
	assert.Zero(t, n)
}

func TestPool_Defaults(t *testing.T) {
	p := NewPool(Options{})
	c := p.Get("http://localhost")
	assert.Equal(t, 30*time.Second, c.client.Timeout)
	assert.Equal(t, "get/0", c.opts.UserAgent)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		in         string
		wantOrigin string
		wantPath   string
		wantErr    bool
	}{
		{"https://api.mangadex.org/v2/manga/499/chapters", "https://api.mangadex.org", "/v2/manga/499/chapters", false},
		{"http://127.0.0.1:7700", "http://127.0.0.1:7700", "/", false},
		{"https://feeds.example.com/rss?id=3", "https://feeds.example.com", "/rss?id=3", false},
		{"/relative/path", "", "", true},
		{"://bad", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			origin, path, err := Split(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrProtocol)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOrigin, origin)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestClient_ErrorClasses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("payload"))
		case "/json":
			w.Write([]byte(`{"name":"teppu"}`))
		case "/garbled":
			w.Write([]byte(`{"name":`))
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/limited":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/key":
			if r.Header.Get("X-Api-Key") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("X-Api-Key", "secret")
	c := NewPool(Options{Timeout: time.Second, Header: header}).Get(srv.URL)
	ctx := context.Background()

	data, err := c.Fetch(ctx, "/ok")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	var v struct{ Name string }
	require.NoError(t, c.GetJSON(ctx, "/json", &v))
	assert.Equal(t, "teppu", v.Name)

	assert.ErrorIs(t, c.GetJSON(ctx, "/garbled", &v), domain.ErrProtocol)

	_, err = c.Fetch(ctx, "/busy")
	assert.True(t, domain.IsRecoverable(err))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)

	_, err = c.Fetch(ctx, "/limited")
	assert.True(t, domain.IsRecoverable(err))

	_, err = c.Fetch(ctx, "/missing")
	assert.ErrorIs(t, err, domain.ErrProtocol)
	assert.False(t, domain.IsRecoverable(err))

	_, err = c.Fetch(ctx, "/key")
	assert.NoError(t, err)
}

func TestClient_NetworkErrorIsRecoverable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewPool(Options{Timeout: time.Second}).Get(url).Fetch(context.Background(), "/")
	assert.True(t, domain.IsRecoverable(err), "err = %v", err)
}

func TestClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewPool(Options{}).Get(srv.URL).Fetch(ctx, "/")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, domain.IsRecoverable(err))
}
