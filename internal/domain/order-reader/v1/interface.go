package orderreaderv1

import (
	"context"

	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
	"github.com/segmentio/kafka-go"
)

// OrderReader defines the interface for reading orders from a source.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=orderreaderv1_mock
type OrderReader interface {
	// ReadMessage blocks for the next message and decodes it as an order request.
	ReadMessage(ctx context.Context) (kafka.Message, orderbookv1.PlaceOrderRequest, error)
	// CommitMessages commits the messages after they were handed to the engine.
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
