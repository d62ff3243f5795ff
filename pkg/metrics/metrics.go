package metrics

import (
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Intake
	OrdersAcceptedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_orders_accepted_total",
			Help: "Orders that passed intake validation",
		},
		[]string{"source"},
	)
	OrdersRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_orders_rejected_total",
			Help: "Orders rejected before reaching the matcher",
		},
		[]string{"source", "reason"},
	)

	// Matching
	TradesExecutedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_trades_executed_total",
			Help: "Trades produced by the matcher",
		},
		[]string{"symbol"},
	)
	StaleBookEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_stale_book_entries_total",
			Help: "Book entries evicted because no live order backed them",
		},
		[]string{"symbol"},
	)
	TradePublishFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_trade_publish_failures_total",
			Help: "Trade events that could not be published",
		},
		[]string{"symbol"},
	)

	// Settlement
	SettlementsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_settlements_completed_total",
			Help: "Transfers committed by the settlement ledger",
		},
	)
	SettlementsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_settlements_failed_total",
			Help: "Transfers that failed, by error code",
		},
		[]string{"reason"},
	)
	SettlementDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exchange_settlement_duration_seconds",
			Help:    "Time spent inside a settlement transaction",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)
	SettlementQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "exchange_settlement_queue_depth",
			Help: "Transfers waiting for a settlement worker",
		},
	)

	// Transport
	WebsocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "exchange_websocket_connections",
			Help: "Connected websocket clients",
		},
	)
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(OrdersAcceptedTotal)
	prometheus.MustRegister(OrdersRejectedTotal)

	prometheus.MustRegister(TradesExecutedTotal)
	prometheus.MustRegister(StaleBookEntriesTotal)
	prometheus.MustRegister(TradePublishFailuresTotal)

	prometheus.MustRegister(SettlementsCompletedTotal)
	prometheus.MustRegister(SettlementsFailedTotal)
	prometheus.MustRegister(SettlementDuration)
	prometheus.MustRegister(SettlementQueueDepth)

	prometheus.MustRegister(WebsocketConnections)
	prometheus.MustRegister(HTTPRequestsTotal)
}

// ErrorReason returns the label value used for err in failure counters.
func ErrorReason(err error) string {
	if code := errors.CodeOf(err); code != "" {
		return string(code)
	}
	return "unknown"
}
