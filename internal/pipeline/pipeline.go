// Package pipeline runs the two-stage discovery and fetch of a collection.
//
// Discovery turns each selected item into fetch tasks for the leaves that
// are not already complete at the destination. Fetch downloads those leaves.
// The fetch stage starts only after every discovery worker has exited.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/cwygoda/get/internal/destination"
	"github.com/cwygoda/get/internal/domain"
	"github.com/cwygoda/get/internal/origin"
	"github.com/cwygoda/get/internal/worker"
)

// Stage names used in logs and metrics.
const (
	StageDiscovery = "discovery"
	StageFetch     = "fetch"
)

// Options configures a pipeline.
type Options struct {
	// Workers is the size of each stage's pool.
	Workers  int
	Language string
	Retry    worker.RetryPolicy
	Logger   *slog.Logger
	Observer worker.Observer
}

// Summary reports one collection run. Queued counts the fetch tasks
// discovery pushed, Remaining the tasks left in either queue at the end.
type Summary struct {
	Collection string
	Items      int
	Queued     int
	Remaining  int
	Written    int64
	Skipped    int64
	Discovery  worker.Result
	Fetch      worker.Result
}

// Failed returns how many tasks of either stage ended without success.
func (s Summary) Failed() int64 {
	return s.Discovery.Failed() + s.Fetch.Failed()
}

// Pipeline wires a source, the origin pool and a destination.
type Pipeline struct {
	source   domain.Source
	pool     *origin.Pool
	resolver *destination.Resolver
	opts     Options
	logger   *slog.Logger
}

// New creates a pipeline.
func New(source domain.Source, pool *origin.Pool, resolver *destination.Resolver, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:   source,
		pool:     pool,
		resolver: resolver,
		opts:     opts,
		logger:   logger.With("source", source.Name()),
	}
}

// Plan lists root and buckets its items by group.
func (p *Pipeline) Plan(ctx context.Context, root string) (*domain.Listing, []domain.Bucket, error) {
	l, err := p.source.List(ctx, root)
	if err != nil {
		return nil, nil, fmt.Errorf("list %s: %w", root, err)
	}
	buckets := domain.Plan(l, p.opts.Language)
	p.logger.Info("listed collection", "title", l.Title, "items", len(l.Items), "groups", len(buckets))
	return l, buckets, nil
}

// Collect lists root, lets sel pick a group and fetches every missing leaf
// of that group.
func (p *Pipeline) Collect(ctx context.Context, root string, sel domain.Selector) (Summary, error) {
	l, buckets, err := p.Plan(ctx, root)
	if err != nil {
		return Summary{}, err
	}
	b, err := domain.SelectBucket(buckets, sel)
	if err != nil {
		return Summary{}, err
	}
	p.logger.Info("selected group", "group", b.Label, "items", len(b.Items))
	return p.Run(ctx, l.Title, b.Tasks())
}

// Run executes both stages for tasks of one collection. The origin pool is
// closed once both stages have joined.
func (p *Pipeline) Run(ctx context.Context, collection string, tasks []domain.DiscoveryTask) (sum Summary, err error) {
	defer p.pool.CloseAll()

	sum = Summary{Collection: collection, Items: len(tasks)}
	var written, skipped atomic.Int64

	discoveryQ := worker.NewQueue(tasks...)
	fetchQ := worker.NewQueue[domain.FetchTask]()

	discover := func(ctx context.Context, task domain.DiscoveryTask) error {
		leaves, err := p.source.Detail(ctx, task)
		if err != nil {
			return fmt.Errorf("detail of item %s: %w", task.ID, err)
		}
		dc := domain.DestinationContext{Collection: collection, Item: itemName(task)}

		// resolve every leaf before pushing, so a requeued task adds no duplicates
		pending := make([]domain.FetchTask, 0, len(leaves))
		for _, leaf := range leaves {
			rec, complete, err := p.resolver.Resolve(ctx, dc, leaf.Name)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", leaf.Name, err)
			}
			if complete {
				p.logger.Debug("already complete, skipping", "key", rec.Key)
				skipped.Add(1)
				continue
			}
			pending = append(pending, domain.FetchTask{
				Origin: leaf.Origin,
				Path:   leaf.Path,
				Dest:   rec,
				Item:   task.ID,
			})
		}
		for _, t := range pending {
			fetchQ.Push(t)
		}
		p.logger.Info("discovered item", "item", dc.Item, "leaves", len(leaves), "queued", len(pending))
		return nil
	}

	fetch := func(ctx context.Context, t domain.FetchTask) error {
		data, err := p.pool.Get(t.Origin).Fetch(ctx, t.Path)
		if err != nil {
			return err
		}
		if err := p.resolver.Write(ctx, t.Dest, data); err != nil {
			return err
		}
		written.Add(1)
		p.logger.Debug("wrote payload", "key", t.Dest.Key, "bytes", len(data))
		return nil
	}

	defer func() {
		sum.Remaining = discoveryQ.Len() + fetchQ.Len()
	}()

	sum.Discovery, err = worker.Run(ctx, discoveryQ, p.opts.Workers, discover, p.stageOptions(StageDiscovery))
	sum.Skipped = skipped.Load()
	sum.Queued = fetchQ.Len()
	if err != nil {
		return sum, err
	}

	sum.Fetch, err = worker.Run(ctx, fetchQ, p.opts.Workers, fetch, p.stageOptions(StageFetch))
	sum.Written = written.Load()
	if err != nil {
		return sum, err
	}

	p.logger.Info("collection done",
		"title", collection,
		"written", sum.Written,
		"skipped", sum.Skipped,
		"requeued", sum.Discovery.Requeued+sum.Fetch.Requeued,
		"failed", sum.Failed(),
	)
	return sum, nil
}

func (p *Pipeline) stageOptions(stage string) worker.Options {
	return worker.Options{
		Stage:    stage,
		Logger:   p.logger,
		Retry:    p.opts.Retry,
		Observer: p.opts.Observer,
	}
}

func itemName(t domain.DiscoveryTask) string {
	if t.Number != "" {
		return t.Number
	}
	return t.ID
}
