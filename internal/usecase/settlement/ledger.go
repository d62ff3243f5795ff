package settlement

import (
	"context"
	"fmt"
	"math"
	"time"

	settlementv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/settlement/v1"
	walletv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/wallet/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/metrics"
)

// Ledger moves balance between two wallets of one currency in a single
// transaction. Wallet rows are locked in ascending user id order, so two
// transfers between the same pair of users cannot deadlock whatever their
// direction.
type Ledger struct {
	transactor walletv1.Transactor
	repository walletv1.Repository
	logger     logger.Interface
}

var _ settlementv1.Ledger = (*Ledger)(nil)

// NewLedger creates a ledger over the given wallet store.
func NewLedger(transactor walletv1.Transactor, repository walletv1.Repository, log logger.Interface) *Ledger {
	return &Ledger{
		transactor: transactor,
		repository: repository,
		logger:     log,
	}
}

// Transfer debits amount from the seller and credits it to the buyer.
func (l *Ledger) Transfer(ctx context.Context, sellerUserID, buyerUserID, currency string, amount int64) error {
	if amount <= 0 {
		return errors.NewErrorDetails(fmt.Sprintf("transfer amount must be positive, got %d", amount), string(errors.InvalidAmount), "amount")
	}

	start := time.Now()
	defer func() {
		metrics.SettlementDuration.Observe(time.Since(start).Seconds())
	}()

	txCtx, err := l.transactor.Begin(ctx)
	if err != nil {
		return errors.NewTracer("settlement: begin transaction").Wrap(err)
	}
	defer func() {
		if rbErr := l.transactor.Rollback(txCtx); rbErr != nil {
			l.logger.ErrorContext(ctx, rbErr, logger.NewField("action", "rollback_settlement"))
		}
	}()

	wallets, err := l.lockWallets(txCtx, currency, sellerUserID, buyerUserID)
	if err != nil {
		return err
	}
	seller, buyer := wallets[sellerUserID], wallets[buyerUserID]

	if seller.Balance < amount {
		return errors.NewErrorDetailsWithObject(
			fmt.Sprintf("seller %s has %d %s, transfer needs %d", sellerUserID, seller.Balance, currency, amount),
			string(errors.InsufficientFunds),
			"amount",
			seller,
		)
	}

	if sellerUserID != buyerUserID {
		if buyer.Balance > math.MaxInt64-amount {
			return errors.NewErrorDetails(
				fmt.Sprintf("crediting %d %s to %s overflows the balance", amount, currency, buyerUserID),
				string(errors.BalanceOverflow),
				"amount",
			)
		}

		seller.Balance -= amount
		buyer.Balance += amount

		if err := l.repository.Save(txCtx, seller); err != nil {
			return err
		}
		if err := l.repository.Save(txCtx, buyer); err != nil {
			return err
		}
	}

	if err := l.transactor.Commit(txCtx); err != nil {
		return errors.NewTracer("settlement: commit transaction").Wrap(err)
	}

	return nil
}

// lockWallets locks the wallets of both users in ascending user id order and
// returns them keyed by user id.
func (l *Ledger) lockWallets(ctx context.Context, currency string, a, b string) (map[string]*walletv1.Wallet, error) {
	first, second := a, b
	if second < first {
		first, second = second, first
	}

	wallets := make(map[string]*walletv1.Wallet, 2)
	for _, userID := range []string{first, second} {
		if _, locked := wallets[userID]; locked {
			continue
		}

		wallet, err := l.repository.FindForUpdate(ctx, userID, currency)
		if err != nil {
			return nil, err
		}
		if wallet == nil {
			return nil, errors.NewErrorDetails(
				fmt.Sprintf("no %s wallet for user %s", currency, userID),
				string(errors.WalletNotFound),
				"userId",
			)
		}
		wallets[userID] = wallet
	}

	return wallets, nil
}
