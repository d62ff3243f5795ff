package snapshotv1

import "context"

// Store persists snapshots keyed by symbol.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=snapshotv1_mock
type Store interface {
	Store(ctx context.Context, snapshot *Snapshot) error
	// LoadStore returns nil, nil when no snapshot exists for symbol.
	LoadStore(ctx context.Context, symbol string) (*Snapshot, error)
}
