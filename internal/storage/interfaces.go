package storage

import (
	"context"
	"errors"
	"io"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/models"
)

// ErrSnapshotNotFound is returned when no snapshot is cached for a pool
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotCache defines the interface for the latest-snapshot cache
type SnapshotCache interface {
	// PutSnapshot replaces the cached snapshot for snap.Pool
	PutSnapshot(ctx context.Context, snap *models.PoolSnapshot) error

	// GetSnapshot returns the latest snapshot of a pool
	GetSnapshot(ctx context.Context, pool string) (*models.PoolSnapshot, error)

	// ListSnapshots returns the latest snapshot of every cached pool
	ListSnapshots(ctx context.Context) ([]*models.PoolSnapshot, error)

	// PublishSnapshot publishes a snapshot to subscribers
	PublishSnapshot(ctx context.Context, snap *models.PoolSnapshot) error

	// SubscribeSnapshots streams published snapshots until ctx is done
	SubscribeSnapshots(ctx context.Context) (<-chan *models.PoolSnapshot, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	// Close closes the cache connection
	io.Closer
}

// SnapshotStore defines the interface for persistent snapshot history
type SnapshotStore interface {
	// InsertSnapshot appends a snapshot to the history
	InsertSnapshot(ctx context.Context, snap *models.PoolSnapshot) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	io.Closer
}

// SnapshotHandler is a function that processes pool snapshots
type SnapshotHandler func(*models.PoolSnapshot)

// StreamProvider defines the interface for snapshot sources
type StreamProvider interface {
	// Start begins producing snapshots
	Start(ctx context.Context, handler SnapshotHandler) error

	// Stop stops the stream provider
	Stop() error
}
