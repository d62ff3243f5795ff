package orderbook

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
	orderbookv1_mock "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1/mock"
	"github.com/muhammadchandra19/rtcrypto-exchange/internal/infrastructure/memory/priorityindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderbook(t *testing.T) {
	ob := NewOrderbook("BTC", "", priorityindex.NewIndex())

	assert.Equal(t, "BTC", ob.Symbol())
	assert.Equal(t, "asks:{BTC}", ob.asksKey)
	assert.Equal(t, "bids:{BTC}", ob.bidsKey)
	assert.Equal(t, uint64(0), ob.Seq())

	prefixed := NewOrderbook("ETH", "exchange:", priorityindex.NewIndex())
	assert.Equal(t, "exchange:asks:{ETH}", prefixed.asksKey)
	assert.Equal(t, "exchange:bids:{ETH}", prefixed.bidsKey)
}

func TestOrderbook_BestLevels(t *testing.T) {
	type add struct {
		id    string
		bid   bool
		price int64
		ts    int64
	}

	testCases := []struct {
		name    string
		adds    []add
		wantAsk string
		wantBid string
	}{
		{
			name:    "empty book",
			wantAsk: "",
			wantBid: "",
		},
		{
			name: "lowest ask and highest bid win",
			adds: []add{
				{id: "a1", price: 101, ts: 1},
				{id: "a2", price: 100, ts: 2},
				{id: "b1", bid: true, price: 98, ts: 1},
				{id: "b2", bid: true, price: 99, ts: 2},
			},
			wantAsk: "a2",
			wantBid: "b2",
		},
		{
			name: "earlier timestamp wins at equal price",
			adds: []add{
				{id: "a-late", price: 100, ts: 5},
				{id: "a-early", price: 100, ts: 3},
				{id: "b-late", bid: true, price: 90, ts: 5},
				{id: "b-early", bid: true, price: 90, ts: 3},
			},
			wantAsk: "a-early",
			wantBid: "b-early",
		},
		{
			name: "insertion order breaks equal timestamps",
			adds: []add{
				{id: "a-first", price: 100, ts: 7},
				{id: "a-second", price: 100, ts: 7},
				{id: "b-first", bid: true, price: 90, ts: 7},
				{id: "b-second", bid: true, price: 90, ts: 7},
			},
			wantAsk: "a-first",
			wantBid: "b-first",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			ob := NewOrderbook("BTC", "", priorityindex.NewIndex())

			for _, a := range tc.adds {
				var err error
				if a.bid {
					_, err = ob.AddBid(ctx, a.id, a.price, a.ts)
				} else {
					_, err = ob.AddAsk(ctx, a.id, a.price, a.ts)
				}
				require.NoError(t, err)
			}

			ask, found, err := ob.BestAsk(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.wantAsk != "", found)
			assert.Equal(t, tc.wantAsk, ask.OrderID)

			bid, found, err := ob.BestBid(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.wantBid != "", found)
			assert.Equal(t, tc.wantBid, bid.OrderID)
		})
	}
}

func TestOrderbook_BestBidDecodesTimestamp(t *testing.T) {
	ctx := context.Background()
	ob := NewOrderbook("BTC", "", priorityindex.NewIndex())

	_, err := ob.AddBid(ctx, "b1", 42, 1_700_000_000_000)
	require.NoError(t, err)

	bid, found, err := ob.BestBid(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, orderbookv1.Level{OrderID: "b1", Price: 42, Timestamp: 1_700_000_000_000}, bid)
}

func TestOrderbook_RemoveOrder(t *testing.T) {
	ctx := context.Background()
	ob := NewOrderbook("BTC", "", priorityindex.NewIndex())

	_, err := ob.AddAsk(ctx, "a1", 100, 1)
	require.NoError(t, err)
	_, err = ob.AddAsk(ctx, "a2", 101, 2)
	require.NoError(t, err)
	_, err = ob.AddBid(ctx, "b1", 90, 3)
	require.NoError(t, err)

	require.NoError(t, ob.RemoveOrder(ctx, "a1"))
	require.NoError(t, ob.RemoveOrder(ctx, "b1"))
	require.NoError(t, ob.RemoveOrder(ctx, "missing"))

	ask, found, err := ob.BestAsk(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a2", ask.OrderID)

	_, found, err = ob.BestBid(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	contains, err := ob.Contains(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, contains)

	contains, err = ob.Contains(ctx, "a2")
	require.NoError(t, err)
	assert.True(t, contains)
}

func TestOrderbook_SeqIsMonotonic(t *testing.T) {
	ctx := context.Background()
	ob := NewOrderbook("BTC", "", priorityindex.NewIndex())

	s1, err := ob.AddAsk(ctx, "a1", 100, 1)
	require.NoError(t, err)
	s2, err := ob.AddBid(ctx, "b1", 90, 1)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), s1)
	assert.Equal(t, uint64(2), s2)
	assert.Equal(t, uint64(2), ob.Seq())
}

func TestOrderbook_Restore(t *testing.T) {
	ctx := context.Background()
	ob := NewOrderbook("BTC", "", priorityindex.NewIndex())

	require.NoError(t, ob.Restore(ctx, &orderbookv1.Order{ID: "b-old", Side: orderbookv1.SideBuy, Price: 90, Timestamp: 5, Seq: 10}))
	require.NoError(t, ob.Restore(ctx, &orderbookv1.Order{ID: "a-old", Side: orderbookv1.SideSell, Price: 100, Timestamp: 5, Seq: 3}))
	assert.Equal(t, uint64(10), ob.Seq())

	// A new bid at the same price and time ranks behind the restored one.
	seq, err := ob.AddBid(ctx, "b-new", 90, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), seq)

	bid, _, err := ob.BestBid(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b-old", bid.OrderID)

	ask, _, err := ob.BestAsk(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a-old", ask.OrderID)
}

func TestOrderbook_IndexErrors(t *testing.T) {
	errIndex := errors.New("index down")

	testCases := []struct {
		name     string
		mockFn   func(idx *orderbookv1_mock.MockPriorityIndex)
		call     func(ob *Orderbook) error
		assertFn func(t *testing.T, err error)
	}{
		{
			name: "add ask",
			mockFn: func(idx *orderbookv1_mock.MockPriorityIndex) {
				idx.EXPECT().Upsert(gomock.Any(), "asks:{BTC}", "a1", orderbookv1.Rank{Price: 100, Time: 1, Seq: 1}).Return(errIndex)
			},
			call: func(ob *Orderbook) error {
				_, err := ob.AddAsk(context.Background(), "a1", 100, 1)
				return err
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errIndex)
			},
		},
		{
			name: "remove stops at first failing side",
			mockFn: func(idx *orderbookv1_mock.MockPriorityIndex) {
				idx.EXPECT().Remove(gomock.Any(), "asks:{BTC}", "x").Return(false, errIndex)
			},
			call: func(ob *Orderbook) error {
				return ob.RemoveOrder(context.Background(), "x")
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errIndex)
			},
		},
		{
			name: "best bid",
			mockFn: func(idx *orderbookv1_mock.MockPriorityIndex) {
				idx.EXPECT().PeekHighest(gomock.Any(), "bids:{BTC}").Return(orderbookv1.Entry{}, false, errIndex)
			},
			call: func(ob *Orderbook) error {
				_, _, err := ob.BestBid(context.Background())
				return err
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errIndex)
			},
		},
		{
			name: "contains checks bids after asks",
			mockFn: func(idx *orderbookv1_mock.MockPriorityIndex) {
				gomock.InOrder(
					idx.EXPECT().Lookup(gomock.Any(), "asks:{BTC}", "x").Return(orderbookv1.Entry{}, false, nil),
					idx.EXPECT().Lookup(gomock.Any(), "bids:{BTC}", "x").Return(orderbookv1.Entry{}, false, errIndex),
				)
			},
			call: func(ob *Orderbook) error {
				_, err := ob.Contains(context.Background(), "x")
				return err
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errIndex)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			idx := orderbookv1_mock.NewMockPriorityIndex(ctrl)
			tc.mockFn(idx)

			tc.assertFn(t, tc.call(NewOrderbook("BTC", "", idx)))
		})
	}
}
