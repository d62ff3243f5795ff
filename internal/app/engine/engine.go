package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	orderreaderv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/order-reader/v1"
	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
	snapshotv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/snapshot/v1"
	tradepublisherv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/trade-publisher/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/internal/usecase/matching"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/metrics"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/util"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/validation"
)

// StatusProcessing is the status of an accepted order.
const StatusProcessing = "processing"

// Market binds a matcher to the engine.
type Market struct {
	Matcher *matching.Matcher
	// Persistent reports whether the matcher's book outlives the process, as
	// a Redis backed book does. Snapshots of persistent books only restore
	// orders the book still holds.
	Persistent bool
}

// Ack acknowledges an accepted order. Done receives the matching outcome once
// the symbol's worker has processed the order.
type Ack struct {
	OrderID string        `json:"orderId"`
	Status  string        `json:"status"`
	Done    <-chan Result `json:"-"`
}

// Result is the outcome of processing one order.
type Result struct {
	Order  orderbookv1.Order
	Trades []tradepublisherv1.Trade
	Err    error
}

type job struct {
	ctx   context.Context
	order *orderbookv1.Order
	done  chan Result
}

type worker struct {
	symbol     string
	matcher    *matching.Matcher
	persistent bool
	jobs       chan job
}

// Engine runs one worker goroutine per symbol. Orders of a symbol are matched
// one at a time in submission order; different symbols match in parallel.
type Engine struct {
	workers       map[string]*worker
	snapshotStore snapshotv1.Store
	orderReader   orderreaderv1.OrderReader
	logger        logger.Interface
	options       *Options

	mu      sync.RWMutex
	running bool
	stopped bool

	ctx       context.Context
	cancel    context.CancelFunc
	workersWg sync.WaitGroup
	readerWg  sync.WaitGroup
}

// NewEngine creates an engine over markets. snapshotStore and orderReader are
// optional.
func NewEngine(
	markets []Market,
	snapshotStore snapshotv1.Store,
	orderReader orderreaderv1.OrderReader,
	log logger.Interface,
	options *Options,
) *Engine {
	if options == nil {
		options = DefaultEngineOptions()
	}
	if options.QueueSize <= 0 {
		options.QueueSize = DefaultEngineOptions().QueueSize
	}

	workers := make(map[string]*worker, len(markets))
	for _, m := range markets {
		symbol := m.Matcher.Symbol()
		workers[symbol] = &worker{
			symbol:     symbol,
			matcher:    m.Matcher,
			persistent: m.Persistent,
			jobs:       make(chan job, options.QueueSize),
		}
	}

	return &Engine{
		workers:       workers,
		snapshotStore: snapshotStore,
		orderReader:   orderReader,
		logger:        log,
		options:       options,
	}
}

// Symbols returns the symbols the engine trades, sorted.
func (e *Engine) Symbols() []string {
	symbols := make([]string, 0, len(e.workers))
	for symbol := range e.workers {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Running reports whether the engine accepts orders.
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Start restores every symbol from its latest snapshot and starts the workers
// and, when configured, the order reader.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running || e.stopped {
		return errors.NewErrorDetails("engine cannot be started twice", string(errors.EngineStopped), "")
	}

	for _, w := range e.workers {
		if err := e.loadSnapshot(ctx, w); err != nil {
			return err
		}
	}

	e.ctx, e.cancel = context.WithCancel(context.WithoutCancel(ctx))

	for _, w := range e.workers {
		e.workersWg.Add(1)
		go e.runWorker(w)
	}

	if e.orderReader != nil {
		e.readerWg.Add(1)
		go e.runOrderReader()
	}

	e.running = true
	e.logger.Info("Engine started",
		logger.NewField("symbols", e.Symbols()),
		logger.NewField("orderReader", e.orderReader != nil),
	)
	return nil
}

// Stop rejects new orders, stops the order reader, lets every worker finish
// its queue and waits for them until ctx is done.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.stopped = true
		e.mu.Unlock()
		return nil
	}
	e.running = false
	e.stopped = true
	e.mu.Unlock()

	e.cancel()
	e.readerWg.Wait()

	e.mu.Lock()
	for _, w := range e.workers {
		close(w.jobs)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.workersWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("Engine stopped gracefully")
		return nil
	case <-ctx.Done():
		e.logger.Warn("Engine stop timeout exceeded")
		return ctx.Err()
	}
}

// Submit validates req and queues it for its symbol's worker. The returned
// Ack does not wait for matching. source labels the intake in metrics.
func (e *Engine) Submit(ctx context.Context, source string, req orderbookv1.PlaceOrderRequest) (Ack, error) {
	if err := validation.Struct(req, errors.InvalidOrder); err != nil {
		metrics.OrdersRejectedTotal.WithLabelValues(source, string(errors.InvalidOrder)).Inc()
		return Ack{}, err
	}

	w, ok := e.workers[req.Symbol]
	if !ok {
		metrics.OrdersRejectedTotal.WithLabelValues(source, string(errors.UnknownSymbol)).Inc()
		return Ack{}, errors.NewErrorDetails(fmt.Sprintf("symbol %s is not traded", req.Symbol), string(errors.UnknownSymbol), "symbol")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.running {
		metrics.OrdersRejectedTotal.WithLabelValues(source, string(errors.EngineStopped)).Inc()
		return Ack{}, errors.NewErrorDetails("engine is not running", string(errors.EngineStopped), "")
	}

	order := orderbookv1.NewOrder(req)
	done := make(chan Result, 1)
	jobCtx := util.WithOrderID(util.WithUserID(context.WithoutCancel(ctx), order.UserID), order.ID)

	select {
	case w.jobs <- job{ctx: jobCtx, order: order, done: done}:
	case <-ctx.Done():
		return Ack{}, errors.TracerFromError(ctx.Err())
	}

	metrics.OrdersAcceptedTotal.WithLabelValues(source).Inc()
	e.logger.DebugContext(jobCtx, "Order accepted", logger.NewField("source", source))

	return Ack{OrderID: order.ID, Status: StatusProcessing, Done: done}, nil
}

func (e *Engine) runWorker(w *worker) {
	defer e.workersWg.Done()

	var tick <-chan time.Time
	if e.options.SnapshotInterval > 0 && e.snapshotStore != nil {
		ticker := time.NewTicker(e.options.SnapshotInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	e.logger.Info("Starting symbol worker", logger.NewField("symbol", w.symbol))

	for {
		select {
		case j, ok := <-w.jobs:
			if !ok {
				if e.options.SnapshotOnStop {
					e.storeSnapshot(context.Background(), w)
				}
				e.logger.Info("Symbol worker shutting down", logger.NewField("symbol", w.symbol))
				return
			}
			e.process(w, j)
		case <-tick:
			e.storeSnapshot(e.ctx, w)
		}
	}
}

func (e *Engine) process(w *worker, j job) {
	trades, err := w.matcher.Process(j.ctx, j.order)
	if err != nil {
		e.logger.ErrorContext(j.ctx, err, logger.NewField("action", "process_order"))
	}

	if len(trades) > 0 {
		e.logger.InfoContext(j.ctx, "Trades executed",
			logger.NewField("tradeCount", len(trades)),
			logger.NewField("remaining", j.order.Amount),
		)
	}

	j.done <- Result{Order: *j.order, Trades: trades, Err: err}
}

func (e *Engine) storeSnapshot(ctx context.Context, w *worker) {
	if e.snapshotStore == nil {
		return
	}

	if err := e.snapshotStore.Store(ctx, w.matcher.Snapshot()); err != nil {
		e.logger.ErrorContext(ctx, err,
			logger.NewField("action", "store_snapshot"),
			logger.NewField("symbol", w.symbol),
		)
	}
}

// loadSnapshot restores the worker's matcher from its stored snapshot.
func (e *Engine) loadSnapshot(ctx context.Context, w *worker) error {
	if e.snapshotStore == nil {
		return nil
	}

	snapshot, err := e.snapshotStore.LoadStore(ctx, w.symbol)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}

	restored, err := w.matcher.Restore(ctx, snapshot, !w.persistent)
	if err != nil {
		return err
	}

	e.logger.Info("Order cache restored from snapshot",
		logger.NewField("symbol", w.symbol),
		logger.NewField("orders", restored),
		logger.NewField("snapshotOrders", len(snapshot.Orders)),
		logger.NewField("takenAt", snapshot.TakenAt),
	)
	return nil
}

// runOrderReader feeds orders from the order reader into Submit and commits
// each message once the order is queued or rejected.
func (e *Engine) runOrderReader() {
	defer e.readerWg.Done()
	defer e.orderReader.Close()

	e.logger.Info("Starting order reader")

	for {
		msg, req, err := e.orderReader.ReadMessage(e.ctx)
		if e.ctx.Err() != nil {
			e.logger.Info("Order reader shutting down")
			return
		}

		if err != nil && !errors.ErrorCodeEquals(err, errors.InvalidOrder) {
			e.logger.ErrorContext(e.ctx, err, logger.NewField("action", "read_order_message"))
			select {
			case <-e.ctx.Done():
				return
			case <-time.After(e.options.ReadRetryDelay):
			}
			continue
		}

		if err == nil {
			if _, err := e.Submit(e.ctx, "kafka", req); err != nil {
				e.logger.WarnContext(e.ctx, "Order from stream rejected",
					logger.NewField("offset", msg.Offset),
					logger.NewField("error", err.Error()),
				)
			}
		} else {
			metrics.OrdersRejectedTotal.WithLabelValues("kafka", string(errors.InvalidOrder)).Inc()
		}

		if err := e.orderReader.CommitMessages(e.ctx, msg); err != nil {
			e.logger.ErrorContext(e.ctx, err, logger.NewField("action", "commit_order_message"))
		}
	}
}
