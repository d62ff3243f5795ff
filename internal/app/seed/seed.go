package seed

import (
	"context"
	"fmt"

	walletv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/wallet/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
)

// Balance is the expected or seeded balance of one wallet.
type Balance struct {
	UserID   string `json:"userId"`
	Currency string `json:"currency"`
	Balance  int64  `json:"balance"`
}

// DefaultWallets returns the demo wallets for currency: one seller with
// 10 BTC in satoshis, two empty buyers and two whales for load tests.
func DefaultWallets(currency string) []Balance {
	return []Balance{
		{UserID: "user-seller", Currency: currency, Balance: 1_000_000_000},
		{UserID: "user-buyer-1", Currency: currency, Balance: 0},
		{UserID: "user-buyer-2", Currency: currency, Balance: 0},
		{UserID: "whale-seller", Currency: currency, Balance: 100_000_000_000_000},
		{UserID: "whale-buyer", Currency: currency, Balance: 100_000_000_000_000},
	}
}

// ExpectedAfterSimulation returns the balances DefaultWallets should hold
// after the seller filled 0.5 BTC to each buyer.
func ExpectedAfterSimulation(currency string) []Balance {
	return []Balance{
		{UserID: "user-buyer-1", Currency: currency, Balance: 50_000_000},
		{UserID: "user-buyer-2", Currency: currency, Balance: 50_000_000},
		{UserID: "user-seller", Currency: currency, Balance: 900_000_000},
	}
}

// Seed creates or resets every wallet in balances.
func Seed(ctx context.Context, store walletv1.Store, balances []Balance, log logger.Interface) error {
	for _, b := range balances {
		if err := store.Upsert(ctx, b.UserID, b.Currency, b.Balance); err != nil {
			return err
		}
		log.Info("Wallet seeded",
			logger.NewField("userId", b.UserID),
			logger.NewField("currency", b.Currency),
			logger.NewField("balance", b.Balance),
		)
	}
	return nil
}

// Verify compares the stored balances with expected. Every mismatch is
// reported as one detail of the returned BaseError.
func Verify(ctx context.Context, store walletv1.Store, expected []Balance) error {
	mismatches := errors.NewBaseError()

	for _, b := range expected {
		wallet, err := store.Get(ctx, b.UserID, b.Currency)
		if err != nil {
			return err
		}

		switch {
		case wallet == nil:
			mismatches.AddErrorDetails(errors.NewErrorDetailsWithObject(
				fmt.Sprintf("wallet %s/%s does not exist", b.UserID, b.Currency),
				string(errors.WalletNotFound), b.UserID, b))
		case wallet.Balance != b.Balance:
			mismatches.AddErrorDetails(errors.NewErrorDetailsWithObject(
				fmt.Sprintf("wallet %s/%s holds %d, expected %d", b.UserID, b.Currency, wallet.Balance, b.Balance),
				string(errors.GeneralBadRequestError), b.UserID, wallet))
		}
	}

	if mismatches.HasDetails() {
		return mismatches
	}
	return nil
}
