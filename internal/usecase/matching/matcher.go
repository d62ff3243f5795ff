package matching

import (
	"context"
	"fmt"
	"sort"
	"time"

	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
	settlementv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/settlement/v1"
	snapshotv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/snapshot/v1"
	tradepublisherv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/trade-publisher/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/metrics"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/util"
)

// Matcher crosses incoming orders against one symbol's book.
//
// The matcher owns the live order cache for its symbol. It is not safe for
// concurrent use; callers serialize Process, Snapshot and Restore per symbol.
type Matcher struct {
	book       orderbookv1.Book
	publisher  tradepublisherv1.Publisher
	dispatcher settlementv1.Dispatcher
	logger     logger.Interface

	orders map[string]*orderbookv1.Order
}

// NewMatcher creates a matcher over book. Trades go to publisher and the
// resulting transfers to dispatcher.
func NewMatcher(
	book orderbookv1.Book,
	publisher tradepublisherv1.Publisher,
	dispatcher settlementv1.Dispatcher,
	log logger.Interface,
) *Matcher {
	return &Matcher{
		book:       book,
		publisher:  publisher,
		dispatcher: dispatcher,
		logger:     log.WithFields(logger.NewField("symbol", book.Symbol())),
		orders:     make(map[string]*orderbookv1.Order),
	}
}

// Symbol returns the symbol this matcher serves.
func (m *Matcher) Symbol() string {
	return m.book.Symbol()
}

// Len returns the number of live orders in the cache.
func (m *Matcher) Len() int {
	return len(m.orders)
}

// Order returns a copy of the live order with id.
func (m *Matcher) Order(id string) (orderbookv1.Order, bool) {
	order, ok := m.orders[id]
	if !ok {
		return orderbookv1.Order{}, false
	}
	return *order, true
}

// Process matches order against the opposite side of the book and rests any
// remainder. It returns the trades executed, in execution order.
//
// Order state already changed is final: an error from the book leaves the
// trades made so far in place and returns them with the error.
func (m *Matcher) Process(ctx context.Context, order *orderbookv1.Order) ([]tradepublisherv1.Trade, error) {
	if order == nil || order.Amount <= 0 || order.Price <= 0 {
		return nil, errors.NewErrorDetails("order amount and price must be positive", string(errors.InvalidOrder), "amount")
	}
	if order.Symbol != "" && order.Symbol != m.book.Symbol() {
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("order for %s sent to %s matcher", order.Symbol, m.book.Symbol()),
			string(errors.UnknownSymbol),
			"symbol",
		)
	}

	if _, exists := m.orders[order.ID]; exists {
		return nil, errors.NewErrorDetails("duplicate order id "+order.ID, string(errors.InvalidOrder), "id")
	}

	ctx = util.WithOrderID(util.WithSymbol(ctx, m.book.Symbol()), order.ID)
	m.orders[order.ID] = order

	var trades []tradepublisherv1.Trade
	for order.Amount > 0 {
		level, found, err := m.bestOpposite(ctx, order)
		if err != nil {
			return trades, err
		}
		if !found || !order.Crosses(level.Price) {
			break
		}

		maker, ok := m.orders[level.OrderID]
		if !ok {
			if err := m.evictStale(ctx, level); err != nil {
				return trades, err
			}
			continue
		}

		qty := min(order.Amount, maker.Amount)
		trade := tradepublisherv1.Trade{
			MakerOrderID: maker.ID,
			TakerOrderID: order.ID,
			Price:        maker.Price,
			Qty:          qty,
			Symbol:       m.book.Symbol(),
		}
		trades = append(trades, trade)
		metrics.TradesExecutedTotal.WithLabelValues(trade.Symbol).Inc()

		m.publish(ctx, trade)
		m.settle(ctx, order, maker, trade)

		order.Amount -= qty
		maker.Amount -= qty

		if maker.IsFilled() {
			if err := m.book.RemoveOrder(ctx, maker.ID); err != nil {
				return trades, err
			}
			delete(m.orders, maker.ID)
		}
	}

	if order.IsFilled() {
		delete(m.orders, order.ID)
		return trades, nil
	}

	if err := m.rest(ctx, order); err != nil {
		return trades, err
	}

	return trades, nil
}

func (m *Matcher) bestOpposite(ctx context.Context, order *orderbookv1.Order) (orderbookv1.Level, bool, error) {
	if order.IsBid() {
		return m.book.BestAsk(ctx)
	}
	return m.book.BestBid(ctx)
}

func (m *Matcher) rest(ctx context.Context, order *orderbookv1.Order) error {
	var (
		seq uint64
		err error
	)
	if order.IsBid() {
		seq, err = m.book.AddBid(ctx, order.ID, order.Price, order.Timestamp)
	} else {
		seq, err = m.book.AddAsk(ctx, order.ID, order.Price, order.Timestamp)
	}
	if err != nil {
		delete(m.orders, order.ID)
		return err
	}

	order.Seq = seq
	return nil
}

func (m *Matcher) evictStale(ctx context.Context, level orderbookv1.Level) error {
	metrics.StaleBookEntriesTotal.WithLabelValues(m.book.Symbol()).Inc()
	m.logger.WarnContext(ctx, "evicting book entry with no live order",
		logger.NewField("code", errors.BookCacheInconsistency),
		logger.NewField("staleOrderId", level.OrderID),
		logger.NewField("price", level.Price),
	)

	return m.book.RemoveOrder(ctx, level.OrderID)
}

// publish sends the trade event. Failures are reported and never stop matching.
func (m *Matcher) publish(ctx context.Context, trade tradepublisherv1.Trade) {
	if err := m.publisher.Publish(ctx, trade); err != nil {
		metrics.TradePublishFailuresTotal.WithLabelValues(trade.Symbol).Inc()
		m.logger.ErrorContext(ctx, err,
			logger.NewField("action", "publish_trade"),
			logger.NewField("makerOrderId", trade.MakerOrderID),
		)
	}
}

// settle hands the transfer for a trade to the dispatcher without waiting for it.
func (m *Matcher) settle(ctx context.Context, taker, maker *orderbookv1.Order, trade tradepublisherv1.Trade) {
	seller, buyer := maker.UserID, taker.UserID
	if !taker.IsBid() {
		seller, buyer = taker.UserID, maker.UserID
	}

	transfer := settlementv1.Transfer{
		SellerUserID: seller,
		BuyerUserID:  buyer,
		Currency:     trade.Symbol,
		Amount:       trade.Qty,
		TradeRef:     trade.MakerOrderID + ":" + trade.TakerOrderID,
	}

	if err := m.dispatcher.Dispatch(ctx, transfer); err != nil {
		metrics.SettlementsFailedTotal.WithLabelValues(metrics.ErrorReason(err)).Inc()
		m.logger.ErrorContext(ctx, err,
			logger.NewField("action", "dispatch_settlement"),
			logger.NewField("tradeRef", transfer.TradeRef),
			logger.NewField("seller", seller),
			logger.NewField("buyer", buyer),
			logger.NewField("amount", transfer.Amount),
		)
	}
}

// Snapshot copies the live order cache, ordered by book sequence.
func (m *Matcher) Snapshot() *snapshotv1.Snapshot {
	orders := make([]*orderbookv1.Order, 0, len(m.orders))
	for _, order := range m.orders {
		cp := *order
		orders = append(orders, &cp)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].Seq < orders[j].Seq
	})

	return &snapshotv1.Snapshot{
		Symbol:  m.book.Symbol(),
		Seq:     m.book.Seq(),
		TakenAt: time.Now().UnixMilli(),
		Orders:  orders,
	}
}

// Restore loads the orders of snap into the cache.
//
// With reinsert set, every order is put back into the book, which is what an
// empty in-process book needs. Otherwise the book is assumed to have survived
// and only orders it still contains are kept. Restore returns how many orders
// were loaded.
func (m *Matcher) Restore(ctx context.Context, snap *snapshotv1.Snapshot, reinsert bool) (int, error) {
	if snap == nil {
		return 0, nil
	}
	if snap.Symbol != m.book.Symbol() {
		return 0, errors.NewErrorDetails(
			fmt.Sprintf("snapshot for %s cannot restore %s", snap.Symbol, m.book.Symbol()),
			string(errors.UnknownSymbol),
			"symbol",
		)
	}

	restored := 0
	for _, order := range snap.Orders {
		if order == nil || order.IsFilled() {
			continue
		}

		if !reinsert {
			resting, err := m.book.Contains(ctx, order.ID)
			if err != nil {
				return restored, err
			}
			if !resting {
				continue
			}
		}

		cp := *order
		if err := m.book.Restore(ctx, &cp); err != nil {
			return restored, err
		}
		m.orders[cp.ID] = &cp
		restored++
	}

	return restored, nil
}
