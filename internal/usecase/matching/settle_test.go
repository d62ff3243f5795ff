package matching

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
	settlementv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/settlement/v1"
	tradepublisherv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/trade-publisher/v1"
	tradepublisherv1_mock "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/trade-publisher/v1/mock"
	"github.com/muhammadchandra19/rtcrypto-exchange/internal/infrastructure/memory/priorityindex"
	memorywallet "github.com/muhammadchandra19/rtcrypto-exchange/internal/infrastructure/memory/wallet"
	"github.com/muhammadchandra19/rtcrypto-exchange/internal/usecase/orderbook"
	"github.com/muhammadchandra19/rtcrypto-exchange/internal/usecase/settlement"
	pkgerrors "github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A trade is published and the book moves on before its transfer runs, so a
// transfer that fails later leaves both in place.
func TestMatcher_PublishesBeforeSettlement(t *testing.T) {
	testCases := []struct {
		name     string
		wallets  map[string]int64
		assertFn func(t *testing.T, results []settlementv1.Result, store *memorywallet.Store)
	}{
		{
			name:    "seller runs out of funds",
			wallets: map[string]int64{"seller": 10, "buyer1": 0, "buyer2": 0, "buyer3": 0},
			assertFn: func(t *testing.T, results []settlementv1.Result, store *memorywallet.Store) {
				require.Len(t, results, 3)
				assert.NoError(t, results[0].Err)
				assert.NoError(t, results[1].Err)
				assert.Equal(t, "b3:s", results[2].Transfer.TradeRef)
				assert.True(t, pkgerrors.ErrorCodeEquals(results[2].Err, pkgerrors.InsufficientFunds), "got %v", results[2].Err)

				assertBalance(t, store, "seller", 0)
				assertBalance(t, store, "buyer1", 5)
				assertBalance(t, store, "buyer2", 5)
				assertBalance(t, store, "buyer3", 0)
			},
		},
		{
			name:    "buyer has no wallet",
			wallets: map[string]int64{"seller": 100, "buyer1": 0, "buyer2": 0},
			assertFn: func(t *testing.T, results []settlementv1.Result, store *memorywallet.Store) {
				require.Len(t, results, 3)
				assert.NoError(t, results[0].Err)
				assert.NoError(t, results[1].Err)
				assert.True(t, pkgerrors.ErrorCodeEquals(results[2].Err, pkgerrors.WalletNotFound), "got %v", results[2].Err)

				assertBalance(t, store, "seller", 90)
				assertBalance(t, store, "buyer1", 5)
				assertBalance(t, store, "buyer2", 5)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ctx := context.Background()
			log, err := logger.NewLogger(logger.WithLoggingLevel(logger.ErrorLevel))
			require.NoError(t, err)

			store := memorywallet.NewStore()
			for user, balance := range tc.wallets {
				require.NoError(t, store.Upsert(ctx, user, "BTC", balance))
			}

			var published []tradepublisherv1.Trade
			publisher := tradepublisherv1_mock.NewMockPublisher(ctrl)
			publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, trade tradepublisherv1.Trade) error {
					published = append(published, trade)
					return nil
				}).Times(3)

			dispatcher := settlement.NewDispatcher(
				settlement.NewLedger(store, store, log), log,
				settlement.WithWorkers(1), settlement.WithResults(8),
			)
			dispatcher.Start(ctx)

			book := orderbook.NewOrderbook("BTC", "", priorityindex.NewIndex())
			matcher := NewMatcher(book, publisher, dispatcher, log)

			bids := []*orderbookv1.Order{
				newOrder("b1", "buyer1", orderbookv1.SideBuy, 100, 5, 1),
				newOrder("b2", "buyer2", orderbookv1.SideBuy, 100, 5, 2),
				newOrder("b3", "buyer3", orderbookv1.SideBuy, 100, 5, 3),
			}
			for _, bid := range bids {
				_, err := matcher.Process(ctx, bid)
				require.NoError(t, err)
			}

			trades, err := matcher.Process(ctx, newOrder("s", "seller", orderbookv1.SideSell, 100, 15, 10))
			require.NoError(t, err)
			require.Len(t, trades, 3)
			assert.Equal(t, trades, published)

			// the book and cache hold every fill whatever the transfers do
			_, found, err := book.BestBid(ctx)
			require.NoError(t, err)
			assert.False(t, found)
			_, found, err = book.BestAsk(ctx)
			require.NoError(t, err)
			assert.False(t, found)
			assert.Zero(t, matcher.Len())

			require.NoError(t, dispatcher.Stop(ctx))

			var results []settlementv1.Result
			for r := range dispatcher.Results() {
				results = append(results, r)
			}
			tc.assertFn(t, results, store)
		})
	}
}

func assertBalance(t *testing.T, store *memorywallet.Store, user string, want int64) {
	t.Helper()
	w, err := store.Get(context.Background(), user, "BTC")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, want, w.Balance)
}
