package destination

import (
	"context"
	"path"
	"sync"

	"github.com/cwygoda/get/internal/domain"
	"github.com/cwygoda/get/internal/textutil"
)

// Resolver decides where a leaf is written and whether it is already there.
//
// The existence check is not transactional: two tasks resolving the same
// key concurrently may both decide to fetch. Callers keep destinations
// unique within a run.
type Resolver struct {
	dest    domain.Destination
	ensured sync.Map // prefix -> struct{}
}

// NewResolver creates a resolver writing into dest.
func NewResolver(dest domain.Destination) *Resolver {
	return &Resolver{dest: dest}
}

// Key returns the destination key for a leaf.
func Key(dc domain.DestinationContext, leaf string) string {
	return path.Join(prefix(dc), textutil.SanitizeSegment(leaf))
}

func prefix(dc domain.DestinationContext) string {
	return path.Join(textutil.SanitizeSegment(dc.Collection), textutil.SanitizeSegment(dc.Item))
}

// Resolve returns the record for leaf and whether it already holds a
// complete payload. The container is created on first use.
func (r *Resolver) Resolve(ctx context.Context, dc domain.DestinationContext, leaf string) (domain.DestinationRecord, bool, error) {
	p := prefix(dc)
	if _, ok := r.ensured.Load(p); !ok {
		if err := r.dest.EnsureContainer(ctx, p); err != nil {
			return domain.DestinationRecord{}, false, err
		}
		r.ensured.Store(p, struct{}{})
	}

	rec := domain.DestinationRecord{Key: path.Join(p, textutil.SanitizeSegment(leaf))}
	complete, err := r.dest.Exists(ctx, rec.Key)
	if err != nil {
		return domain.DestinationRecord{}, false, err
	}
	return rec, complete, nil
}

// Write stores a fetched payload at rec.
func (r *Resolver) Write(ctx context.Context, rec domain.DestinationRecord, data []byte) error {
	return r.dest.Write(ctx, rec.Key, data)
}
