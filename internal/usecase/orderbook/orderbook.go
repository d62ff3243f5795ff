package orderbook

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
)

// Orderbook keeps price-time priority for one symbol in two priority indexes.
//
// Asks are ranked (price, time, seq) and read from the low end. Bids are
// ranked (price, MaxInt64-time, MaxUint64-seq) and read from the high end,
// which gives highest price first and, within a price, earliest time first.
type Orderbook struct {
	symbol  string
	asksKey string
	bidsKey string
	index   orderbookv1.PriorityIndex
	seq     atomic.Uint64
}

var _ orderbookv1.Book = (*Orderbook)(nil)

// NewOrderbook creates the book for symbol. prefix namespaces the index keys.
func NewOrderbook(symbol, prefix string, index orderbookv1.PriorityIndex) *Orderbook {
	return &Orderbook{
		symbol:  symbol,
		asksKey: fmt.Sprintf("%sasks:{%s}", prefix, symbol),
		bidsKey: fmt.Sprintf("%sbids:{%s}", prefix, symbol),
		index:   index,
	}
}

// Symbol returns the instrument this book serves.
func (ob *Orderbook) Symbol() string {
	return ob.symbol
}

// Seq returns the last sequence number handed out.
func (ob *Orderbook) Seq() uint64 {
	return ob.seq.Load()
}

func askRank(price, timestamp int64, seq uint64) orderbookv1.Rank {
	return orderbookv1.Rank{Price: price, Time: timestamp, Seq: seq}
}

func bidRank(price, timestamp int64, seq uint64) orderbookv1.Rank {
	return orderbookv1.Rank{Price: price, Time: math.MaxInt64 - timestamp, Seq: math.MaxUint64 - seq}
}

// AddAsk rests a sell order and returns the sequence number it was ranked with.
func (ob *Orderbook) AddAsk(ctx context.Context, orderID string, price, timestamp int64) (uint64, error) {
	seq := ob.seq.Add(1)
	if err := ob.index.Upsert(ctx, ob.asksKey, orderID, askRank(price, timestamp, seq)); err != nil {
		return 0, err
	}
	return seq, nil
}

// AddBid rests a buy order and returns the sequence number it was ranked with.
func (ob *Orderbook) AddBid(ctx context.Context, orderID string, price, timestamp int64) (uint64, error) {
	seq := ob.seq.Add(1)
	if err := ob.index.Upsert(ctx, ob.bidsKey, orderID, bidRank(price, timestamp, seq)); err != nil {
		return 0, err
	}
	return seq, nil
}

// Restore puts a previously resting order back with its original sequence
// number and moves the counter past it.
func (ob *Orderbook) Restore(ctx context.Context, order *orderbookv1.Order) error {
	ob.advanceSeq(order.Seq)

	if order.IsBid() {
		return ob.index.Upsert(ctx, ob.bidsKey, order.ID, bidRank(order.Price, order.Timestamp, order.Seq))
	}
	return ob.index.Upsert(ctx, ob.asksKey, order.ID, askRank(order.Price, order.Timestamp, order.Seq))
}

func (ob *Orderbook) advanceSeq(seq uint64) {
	for {
		cur := ob.seq.Load()
		if seq <= cur || ob.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}

// Contains reports whether orderID rests on either side.
func (ob *Orderbook) Contains(ctx context.Context, orderID string) (bool, error) {
	for _, key := range []string{ob.asksKey, ob.bidsKey} {
		_, found, err := ob.index.Lookup(ctx, key, orderID)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// RemoveOrder removes orderID from both sides. Removing an absent id is not an error.
func (ob *Orderbook) RemoveOrder(ctx context.Context, orderID string) error {
	if _, err := ob.index.Remove(ctx, ob.asksKey, orderID); err != nil {
		return err
	}
	if _, err := ob.index.Remove(ctx, ob.bidsKey, orderID); err != nil {
		return err
	}
	return nil
}

// BestAsk returns the lowest priced, earliest ask.
func (ob *Orderbook) BestAsk(ctx context.Context) (orderbookv1.Level, bool, error) {
	entry, found, err := ob.index.PeekLowest(ctx, ob.asksKey)
	if err != nil || !found {
		return orderbookv1.Level{}, false, err
	}

	return orderbookv1.Level{
		OrderID:   entry.MemberID,
		Price:     entry.Rank.Price,
		Timestamp: entry.Rank.Time,
	}, true, nil
}

// BestBid returns the highest priced, earliest bid.
func (ob *Orderbook) BestBid(ctx context.Context) (orderbookv1.Level, bool, error) {
	entry, found, err := ob.index.PeekHighest(ctx, ob.bidsKey)
	if err != nil || !found {
		return orderbookv1.Level{}, false, err
	}

	return orderbookv1.Level{
		OrderID:   entry.MemberID,
		Price:     entry.Rank.Price,
		Timestamp: math.MaxInt64 - entry.Rank.Time,
	}, true, nil
}
