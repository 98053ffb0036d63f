package contracts

import (
	"context"
	"time"

	"github.com/skyventures840/skybet/pkg/models"
)

// Cache is a short-TTL key/value cache. Implementations must tolerate
// concurrent Get/Set on the same key; the last Set wins.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// FetchArchive durably appends raw fetch results
type FetchArchive interface {
	Append(ctx context.Context, record models.FetchRecord) error
}

// SnapshotWriter durably appends merged snapshots
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, snapshot models.Snapshot) error
}
