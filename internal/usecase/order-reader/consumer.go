package orderreader

import (
	"context"
	"encoding/json"

	orderreaderv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/order-reader/v1"
	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Config holds the Kafka order topic the reader consumes.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// MessageReader is the part of kafka.Reader the order reader needs.
//
//go:generate mockgen -source consumer.go -destination=mock/consumer_mock.go -package=orderreader_mock
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Reader consumes order requests from a Kafka topic.
type Reader struct {
	kafkaReader MessageReader
	logger      logger.Interface
}

var _ orderreaderv1.OrderReader = (*Reader)(nil)

// NewReader creates a reader in the configured consumer group. Offsets are
// committed explicitly with CommitMessages.
func NewReader(config Config, log logger.Interface) *Reader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Brokers,
		Topic:       config.Topic,
		GroupID:     config.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return NewReaderWithKafka(kafkaReader, log)
}

// NewReaderWithKafka creates a reader over an existing message reader.
func NewReaderWithKafka(reader MessageReader, log logger.Interface) *Reader {
	return &Reader{
		kafkaReader: reader,
		logger:      log,
	}
}

// logError is a helper method to log errors consistently
func (r *Reader) logError(err error, operation string) {
	r.logger.Error(err,
		logger.NewField("error", err.Error()),
		logger.NewField("operation", operation),
	)
}

// ReadMessage fetches the next message and decodes it as an order request.
// A message that does not decode is returned with an InvalidOrder error so the
// caller can commit past it.
func (r *Reader) ReadMessage(ctx context.Context) (kafka.Message, orderbookv1.PlaceOrderRequest, error) {
	msg, err := r.kafkaReader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logError(err, "FetchMessage")
		}
		return kafka.Message{}, orderbookv1.PlaceOrderRequest{}, errors.TracerFromError(err).WithCode(errors.KafkaFetchError)
	}

	var req orderbookv1.PlaceOrderRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		r.logError(err, "UnmarshalOrder")
		return msg, orderbookv1.PlaceOrderRequest{}, errors.NewErrorDetails(err.Error(), string(errors.InvalidOrder), "")
	}

	r.logger.Debug("ReadMessage",
		logger.NewField("offset", msg.Offset),
		logger.NewField("userId", req.UserID),
		logger.NewField("symbol", req.Symbol),
		logger.NewField("side", req.Side),
	)

	return msg, req, nil
}

// CommitMessages commits the messages to Kafka after processing.
func (r *Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := r.kafkaReader.CommitMessages(ctx, msgs...); err != nil {
		r.logError(err, "CommitMessages")
		return errors.TracerFromError(err).WithCode(errors.KafkaCommitError)
	}
	return nil
}

// Close properly closes the Kafka reader.
func (r *Reader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logError(err, "Close")
		return err
	}
	return nil
}
