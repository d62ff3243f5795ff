package tradepublisher

import (
	"context"
	"time"

	tradepublisherv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/trade-publisher/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds the brokers and topic trades are written to and read from.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// MessageWriter is the part of kafka.Writer the publisher needs.
//
//go:generate mockgen -source kafka.go -destination=mock/kafka_mock.go -package=tradepublisher_mock
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageReader is the part of kafka.Reader the subscriber needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaPublisher writes trade events to a Kafka topic keyed by symbol, so the
// trades of one symbol stay ordered within a partition.
type KafkaPublisher struct {
	writer MessageWriter
	logger logger.Interface
}

var _ tradepublisherv1.Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher backed by a kafka.Writer.
func NewKafkaPublisher(config KafkaConfig, log logger.Interface) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 5 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return NewKafkaPublisherWithWriter(writer, log)
}

// NewKafkaPublisherWithWriter creates a publisher over an existing writer.
func NewKafkaPublisherWithWriter(writer MessageWriter, log logger.Interface) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		logger: log,
	}
}

// Publish writes the trade as JSON.
func (p *KafkaPublisher) Publish(ctx context.Context, trade tradepublisherv1.Trade) error {
	payload, err := tradepublisherv1.ToBytes(trade)
	if err != nil {
		return errors.NewTracer("trade_marshal_error").Wrap(err)
	}

	msg := kafka.Message{
		Key:   []byte(trade.Symbol),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.ErrorContext(ctx, err,
			logger.NewField("action", "publish_trade"),
			logger.NewField("trade", trade),
		)
		return errors.NewTracer("failed to publish trade event").Wrap(err).WithCode(errors.KafkaWriteError)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaSubscriber reads trade events from a Kafka topic.
type KafkaSubscriber struct {
	reader MessageReader
	logger logger.Interface
}

var _ tradepublisherv1.Subscriber = (*KafkaSubscriber)(nil)

// NewKafkaSubscriber creates a subscriber backed by a kafka.Reader.
func NewKafkaSubscriber(config KafkaConfig, log logger.Interface) *KafkaSubscriber {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Brokers,
		Topic:       config.Topic,
		GroupID:     config.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return NewKafkaSubscriberWithReader(reader, log)
}

// NewKafkaSubscriberWithReader creates a subscriber over an existing reader.
func NewKafkaSubscriberWithReader(reader MessageReader, log logger.Interface) *KafkaSubscriber {
	return &KafkaSubscriber{
		reader: reader,
		logger: log,
	}
}

// Subscribe streams decoded trades until ctx is done or the reader fails,
// then closes the reader.
func (s *KafkaSubscriber) Subscribe(ctx context.Context) (<-chan tradepublisherv1.Trade, error) {
	trades := make(chan tradepublisherv1.Trade, 64)

	go func() {
		defer close(trades)
		defer s.reader.Close()

		for {
			msg, err := s.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Error(err, logger.NewField("action", "read_trade"))
				}
				return
			}

			trade, err := tradepublisherv1.FromBytes(msg.Value)
			if err != nil {
				s.logger.Error(err,
					logger.NewField("action", "decode_trade"),
					logger.NewField("offset", msg.Offset),
				)
				continue
			}

			select {
			case trades <- trade:
			case <-ctx.Done():
				return
			}
		}
	}()

	return trades, nil
}
