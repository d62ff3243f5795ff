package walletv1

import "context"

// Transactor scopes repository calls to a transaction carried by the context
// returned from Begin.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=walletv1_mock
type Transactor interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	// Rollback releases the transaction. It is a no-op after Commit.
	Rollback(ctx context.Context) error
}

// Repository reads and writes wallets inside a Transactor transaction.
type Repository interface {
	// FindForUpdate locks and returns the wallet, blocking while another
	// transaction holds it. It returns nil, nil when the wallet does not exist.
	FindForUpdate(ctx context.Context, userID, currency string) (*Wallet, error)
	Save(ctx context.Context, wallet *Wallet) error
}

// Store is the administrative side of wallet persistence, used for seeding
// and verification outside the settlement path.
type Store interface {
	Upsert(ctx context.Context, userID, currency string, balance int64) error
	Get(ctx context.Context, userID, currency string) (*Wallet, error)
	List(ctx context.Context, currency string) ([]*Wallet, error)
}
