package orderbookv1

import "context"

// Level is the best resting order on one side of a book.
type Level struct {
	OrderID   string
	Price     int64
	Timestamp int64
}

// Book holds price-time priority for one symbol. It carries no amounts; the
// matcher owns order state.
type Book interface {
	Symbol() string
	AddAsk(ctx context.Context, orderID string, price, timestamp int64) (uint64, error)
	AddBid(ctx context.Context, orderID string, price, timestamp int64) (uint64, error)
	Restore(ctx context.Context, order *Order) error
	Contains(ctx context.Context, orderID string) (bool, error)
	RemoveOrder(ctx context.Context, orderID string) error
	BestAsk(ctx context.Context) (Level, bool, error)
	BestBid(ctx context.Context) (Level, bool, error)
	Seq() uint64
}
