package tradepublisherv1

import (
	"context"
)

// Publisher defines the interface for publishing trade events.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=tradepublisherv1_mock
type Publisher interface {
	// Publish sends a trade event. Delivery to zero listeners is not an error.
	Publish(ctx context.Context, trade Trade) error
}

// Subscriber delivers trade events published by any engine process.
type Subscriber interface {
	// Subscribe streams trades until ctx is done, then closes the channel.
	Subscribe(ctx context.Context) (<-chan Trade, error)
}
