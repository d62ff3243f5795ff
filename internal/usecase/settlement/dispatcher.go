package settlement

import (
	"context"
	"sync"
	"time"

	settlementv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/settlement/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/metrics"
)

// Dispatcher runs transfers on a pool of workers fed by a bounded queue, so
// the matching loop never waits on a wallet lock.
//
// Every outcome is counted and failures are logged. When a results buffer is
// configured, outcomes are also sent on Results; a full buffer drops them.
type Dispatcher struct {
	ledger settlementv1.Ledger
	logger logger.Interface

	workers         int
	transferTimeout time.Duration

	queue   chan pending
	results chan settlementv1.Result

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

var _ settlementv1.Dispatcher = (*Dispatcher)(nil)

// pending is a queued transfer with the context it was dispatched from, so
// the worker logs carry the request, order and symbol of the trade.
type pending struct {
	ctx      context.Context
	transfer settlementv1.Transfer
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers sets the number of concurrent transfers.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets how many transfers may wait for a worker.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.queue = make(chan pending, n)
		}
	}
}

// WithTransferTimeout bounds each transfer, including the time spent waiting
// for wallet locks.
func WithTransferTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.transferTimeout = timeout
	}
}

// WithResults enables the Results channel with the given buffer.
func WithResults(buffer int) DispatcherOption {
	return func(d *Dispatcher) {
		d.results = make(chan settlementv1.Result, buffer)
	}
}

// NewDispatcher creates a dispatcher. Call Start before dispatching.
func NewDispatcher(ledger settlementv1.Ledger, log logger.Interface, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		ledger:  ledger,
		logger:  log,
		workers: 4,
		queue:   make(chan pending, 1024),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Results returns the outcome channel, or nil when WithResults was not set.
// It is closed after Stop drains the queue.
func (d *Dispatcher) Results() <-chan settlementv1.Result {
	return d.results
}

// Start launches the workers. Transfers keep running after ctx is cancelled
// until Stop drains the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	d.wg.Add(d.workers)
	for i := 0; i < d.workers; i++ {
		go d.run(i)
	}

	d.logger.InfoContext(ctx, "Settlement dispatcher started",
		logger.NewField("workers", d.workers),
		logger.NewField("queueSize", cap(d.queue)),
	)
}

// Dispatch enqueues t, blocking while the queue is full. The transfer runs
// with ctx's values but not its cancellation.
func (d *Dispatcher) Dispatch(ctx context.Context, t settlementv1.Transfer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return errors.NewErrorDetailsWithObject("settlement dispatcher is stopped", string(errors.EngineStopped), "", t)
	}

	select {
	case d.queue <- pending{ctx: context.WithoutCancel(ctx), transfer: t}:
		metrics.SettlementQueueDepth.Set(float64(len(d.queue)))
		return nil
	case <-ctx.Done():
		return errors.TracerFromError(ctx.Err())
	}
}

// Stop refuses new transfers, lets the workers finish the queued ones and
// waits for them until ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		d.closeResults()
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		d.closeResults()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Settlement dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warn("Settlement dispatcher stop timeout exceeded",
			logger.NewField("pending", len(d.queue)),
		)
		return ctx.Err()
	}
}

func (d *Dispatcher) closeResults() {
	if d.results != nil {
		close(d.results)
	}
}

func (d *Dispatcher) run(worker int) {
	defer d.wg.Done()

	for p := range d.queue {
		metrics.SettlementQueueDepth.Set(float64(len(d.queue)))
		d.report(p.ctx, worker, p.transfer, d.transfer(p.ctx, p.transfer))
	}
}

func (d *Dispatcher) transfer(ctx context.Context, t settlementv1.Transfer) error {
	if d.transferTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.transferTimeout)
		defer cancel()
	}

	return d.ledger.Transfer(ctx, t.SellerUserID, t.BuyerUserID, t.Currency, t.Amount)
}

func (d *Dispatcher) report(ctx context.Context, worker int, t settlementv1.Transfer, err error) {
	if err != nil {
		metrics.SettlementsFailedTotal.WithLabelValues(metrics.ErrorReason(err)).Inc()
		d.logger.ErrorContext(ctx, err,
			logger.NewField("action", "settle_trade"),
			logger.NewField("worker", worker),
			logger.NewField("tradeRef", t.TradeRef),
			logger.NewField("seller", t.SellerUserID),
			logger.NewField("buyer", t.BuyerUserID),
			logger.NewField("currency", t.Currency),
			logger.NewField("amount", t.Amount),
		)
	} else {
		metrics.SettlementsCompletedTotal.Inc()
	}

	if d.results == nil {
		return
	}

	select {
	case d.results <- settlementv1.Result{Transfer: t, Err: err}:
	default:
		d.logger.Debug("Settlement result dropped", logger.NewField("tradeRef", t.TradeRef))
	}
}
