package domain

import "context"

// Source is the driven port for a remote collection.
type Source interface {
	Name() string
	Match(root string) bool
	List(ctx context.Context, root string) (*Listing, error)
	Detail(ctx context.Context, task DiscoveryTask) ([]Leaf, error)
}

// Destination is the driven port for where payloads are written.
type Destination interface {
	Exists(ctx context.Context, key string) (bool, error)
	EnsureContainer(ctx context.Context, prefix string) error
	Write(ctx context.Context, key string, data []byte) error
}

// Document is one record submitted to a batch store.
type Document map[string]any

// BatchStore is the driven port for an asynchronous indexing store.
type BatchStore interface {
	Health(ctx context.Context) error
	AddDocuments(ctx context.Context, index string, docs []Document) (int64, error)
	JobStatus(ctx context.Context, index string, id int64) (JobStatus, error)
}

// JobRepository is the driven port for batch job persistence.
type JobRepository interface {
	Create(ctx context.Context, h JobHandle, source string, documents int) (*Job, error)
	Get(ctx context.Context, id int64) (*Job, error)
	FindPending(ctx context.Context, limit int) ([]Job, error)
	Settle(ctx context.Context, id int64, status JobStatus, reason string) error
	RecoverStale(ctx context.Context, index string) (int64, error)
}

// WatermarkStore remembers the last ingested revision of each source.
type WatermarkStore interface {
	Watermark(ctx context.Context, source string) (int64, error)
	SetWatermark(ctx context.Context, source string, ts int64) error
}
