// Package origin keeps one reusable HTTP client per remote origin.
//
// Clients are created lazily on first use and live until CloseAll. There is
// no eviction and no bound on the number of origins: a run touching
// thousands of hosts keeps thousands of idle connection pools open.
package origin

import (
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/cwygoda/get/internal/domain"
)

// Pool owns the clients of a run.
type Pool struct {
	opts    Options
	clients sync.Map // origin -> *Client
	group   singleflight.Group
	created atomic.Int64
}

// NewPool creates an empty pool. Zero fields of opts take their defaults.
func NewPool(opts Options) *Pool {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = def.MaxIdleConnsPerHost
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	return &Pool{opts: opts}
}

// Get returns the client for origin, creating it on first use. Concurrent
// first calls for the same origin share a single client.
func (p *Pool) Get(origin string) *Client {
	if c, ok := p.clients.Load(origin); ok {
		return c.(*Client)
	}
	v, _, _ := p.group.Do(origin, func() (any, error) {
		if c, ok := p.clients.Load(origin); ok {
			return c, nil
		}
		c := newClient(origin, p.opts)
		p.clients.Store(origin, c)
		p.created.Add(1)
		return c, nil
	})
	return v.(*Client)
}

// ForURL splits rawURL into its origin and the remaining path, and returns
// the client for that origin.
func (p *Pool) ForURL(rawURL string) (*Client, string, error) {
	origin, path, err := Split(rawURL)
	if err != nil {
		return nil, "", err
	}
	return p.Get(origin), path, nil
}

// Created returns how many clients the pool has created.
func (p *Pool) Created() int64 {
	return p.created.Load()
}

// CloseAll releases every client and empties the pool. A later Get creates
// fresh clients, so a pool can serve several runs.
func (p *Pool) CloseAll() {
	p.clients.Range(func(k, v any) bool {
		p.clients.Delete(k)
		v.(*Client).close()
		return true
	})
}

// Split returns the scheme://host[:port] part of rawURL and everything after it.
func Split(rawURL string) (origin, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: parse url %q: %v", domain.ErrProtocol, rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("%w: url %q has no origin", domain.ErrProtocol, rawURL)
	}
	path = u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return u.Scheme + "://" + u.Host, path, nil
}
