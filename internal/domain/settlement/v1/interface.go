package settlementv1

import "context"

// Ledger moves funds between two wallets atomically.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=settlementv1_mock
type Ledger interface {
	Transfer(ctx context.Context, sellerUserID, buyerUserID, currency string, amount int64) error
}

// Dispatcher hands transfers to the ledger off the matching path.
type Dispatcher interface {
	// Dispatch enqueues t. It blocks only while the queue is full and never
	// waits for the transfer itself.
	Dispatch(ctx context.Context, t Transfer) error
}
