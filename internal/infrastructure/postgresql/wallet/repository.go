package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	walletv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/wallet/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/postgresql"
	pkgerrors "github.com/pkg/errors"
)

const (
	lockNotAvailable = "55P03"
	checkViolation   = "23514"

	selectColumns = `id, user_id, currency, balance, created_at, updated_at`
)

// Repository stores wallets in PostgreSQL. It is the Transactor, Repository
// and Store of the wallet domain.
type Repository struct {
	db          postgresql.PostgreSQLClient
	tx          *postgresql.TX
	logger      logger.Interface
	lockTimeout time.Duration
}

var (
	_ walletv1.Transactor = (*Repository)(nil)
	_ walletv1.Repository = (*Repository)(nil)
	_ walletv1.Store      = (*Repository)(nil)
)

// NewRepository creates a new repository. A positive lockTimeout bounds how
// long FindForUpdate waits for a row lock.
func NewRepository(db postgresql.PostgreSQLClient, log logger.Interface, lockTimeout time.Duration) *Repository {
	return &Repository{
		db:          db,
		tx:          postgresql.NewTransaction(db),
		logger:      log,
		lockTimeout: lockTimeout,
	}
}

// Begin starts a transaction.
func (r *Repository) Begin(ctx context.Context) (context.Context, error) {
	return r.tx.Begin(ctx)
}

// Commit commits the transaction in ctx.
func (r *Repository) Commit(ctx context.Context) error {
	return r.tx.Commit(ctx)
}

// Rollback rolls back the transaction in ctx.
func (r *Repository) Rollback(ctx context.Context) error {
	return r.tx.Rollback(ctx)
}

// FindForUpdate locks the wallet row with SELECT ... FOR UPDATE.
func (r *Repository) FindForUpdate(ctx context.Context, userID, currency string) (*walletv1.Wallet, error) {
	if _, ok := postgresql.GetTx(ctx); !ok {
		return nil, errors.NewErrorDetails("no transaction found in context", string(errors.GeneralRepositoryError), "")
	}

	if r.lockTimeout > 0 {
		query := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err := r.db.Exec(ctx, query); err != nil {
			return nil, errors.TracerFromError(err).WithCode(errors.GeneralRepositoryError)
		}
	}

	query := `SELECT ` + selectColumns + ` FROM wallets WHERE user_id = $1 AND currency = $2 FOR UPDATE`

	wallet := &walletv1.Wallet{}
	err := r.db.QueryRow(ctx, query, userID, currency).Scan(
		&wallet.ID,
		&wallet.UserID,
		&wallet.Currency,
		&wallet.Balance,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if pkgerrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapLockError(err, userID, currency)
	}

	return wallet, nil
}

// Save writes the wallet balance.
func (r *Repository) Save(ctx context.Context, wallet *walletv1.Wallet) error {
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`

	cmd, err := r.db.Exec(ctx, query, wallet.Balance, wallet.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if pkgerrors.As(err, &pgErr) && pgErr.Code == checkViolation {
			return errors.NewErrorDetailsWithObject("wallet balance cannot be negative", string(errors.GeneralRepositoryError), "balance", wallet)
		}
		return errors.TracerFromError(err).WithCode(errors.GeneralRepositoryError)
	}

	if cmd.RowsAffected() == 0 {
		return errors.NewErrorDetails(
			fmt.Sprintf("no %s wallet for user %s", wallet.Currency, wallet.UserID),
			string(errors.WalletNotFound),
			"id",
		)
	}

	return nil
}

// Upsert creates the wallet or overwrites its balance.
func (r *Repository) Upsert(ctx context.Context, userID, currency string, balance int64) error {
	if balance < 0 {
		return errors.NewErrorDetails("wallet balance cannot be negative", string(errors.InvalidAmount), "balance")
	}

	query := `INSERT INTO wallets (user_id, currency, balance) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, currency) DO UPDATE SET balance = EXCLUDED.balance, updated_at = NOW()`

	cmd, err := r.db.Exec(ctx, query, userID, currency, balance)
	if err != nil {
		return errors.TracerFromError(err).WithCode(errors.GeneralRepositoryError)
	}

	r.logger.Debug("Upserted wallet",
		logger.NewField("userId", userID),
		logger.NewField("currency", currency),
		logger.NewField("commandTag", cmd.String()),
	)

	return nil
}

// Get returns the wallet or nil when it does not exist.
func (r *Repository) Get(ctx context.Context, userID, currency string) (*walletv1.Wallet, error) {
	query := `SELECT ` + selectColumns + ` FROM wallets WHERE user_id = $1 AND currency = $2`

	wallet := &walletv1.Wallet{}
	err := r.db.QueryRow(ctx, query, userID, currency).Scan(
		&wallet.ID,
		&wallet.UserID,
		&wallet.Currency,
		&wallet.Balance,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if pkgerrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.TracerFromError(err).WithCode(errors.GeneralRepositoryError)
	}

	return wallet, nil
}

// List returns the wallets of currency ordered by user id.
func (r *Repository) List(ctx context.Context, currency string) ([]*walletv1.Wallet, error) {
	query := `SELECT ` + selectColumns + ` FROM wallets WHERE currency = $1 ORDER BY user_id`

	rows, err := r.db.Query(ctx, query, currency)
	if err != nil {
		return nil, errors.TracerFromError(err).WithCode(errors.GeneralRepositoryError)
	}
	defer rows.Close()

	var wallets []*walletv1.Wallet
	for rows.Next() {
		wallet := &walletv1.Wallet{}
		if err := rows.Scan(
			&wallet.ID,
			&wallet.UserID,
			&wallet.Currency,
			&wallet.Balance,
			&wallet.CreatedAt,
			&wallet.UpdatedAt,
		); err != nil {
			return nil, errors.TracerFromError(err).WithCode(errors.GeneralRepositoryError)
		}
		wallets = append(wallets, wallet)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.TracerFromError(err).WithCode(errors.GeneralRepositoryError)
	}

	return wallets, nil
}

func mapLockError(err error, userID, currency string) error {
	var pgErr *pgconn.PgError
	if (pkgerrors.As(err, &pgErr) && pgErr.Code == lockNotAvailable) || pkgerrors.Is(err, context.DeadlineExceeded) {
		return errors.NewErrorDetails(
			fmt.Sprintf("timed out waiting for wallet %s/%s", userID, currency),
			string(errors.LockTimeout),
			"userId",
		)
	}
	return errors.TracerFromError(err).WithCode(errors.GeneralRepositoryError)
}
