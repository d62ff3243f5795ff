package tradepublisher

import (
	"context"

	tradepublisherv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/trade-publisher/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/redis"
)

// RedisPublisher publishes trade events on a Redis pub/sub channel.
type RedisPublisher struct {
	client  redis.Client
	channel string
	logger  logger.Interface
}

var _ tradepublisherv1.Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher creates a publisher for channel. An empty channel means tradepublisherv1.Channel.
func NewRedisPublisher(client redis.Client, channel string, log logger.Interface) *RedisPublisher {
	if channel == "" {
		channel = tradepublisherv1.Channel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  log,
	}
}

// Publish sends the trade as JSON.
func (p *RedisPublisher) Publish(ctx context.Context, trade tradepublisherv1.Trade) error {
	payload, err := tradepublisherv1.ToBytes(trade)
	if err != nil {
		return errors.NewTracer("trade_marshal_error").Wrap(err)
	}

	receivers, err := p.client.Publish(ctx, p.channel, payload)
	if err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "Trade published",
		logger.NewField("channel", p.channel),
		logger.NewField("receivers", receivers),
		logger.NewField("makerOrderId", trade.MakerOrderID),
		logger.NewField("takerOrderId", trade.TakerOrderID),
	)
	return nil
}

// RedisSubscriber reads trade events from a Redis pub/sub channel.
type RedisSubscriber struct {
	client  redis.Client
	channel string
	logger  logger.Interface
}

var _ tradepublisherv1.Subscriber = (*RedisSubscriber)(nil)

// NewRedisSubscriber creates a subscriber for channel. An empty channel means tradepublisherv1.Channel.
func NewRedisSubscriber(client redis.Client, channel string, log logger.Interface) *RedisSubscriber {
	if channel == "" {
		channel = tradepublisherv1.Channel
	}
	return &RedisSubscriber{
		client:  client,
		channel: channel,
		logger:  log,
	}
}

// Subscribe streams decoded trades until ctx is done. Messages that do not
// decode as trades are logged and skipped.
func (s *RedisSubscriber) Subscribe(ctx context.Context) (<-chan tradepublisherv1.Trade, error) {
	pubSub, err := s.client.Subscribe(ctx, s.channel)
	if err != nil {
		return nil, err
	}

	trades := make(chan tradepublisherv1.Trade, 64)
	go func() {
		defer close(trades)
		defer pubSub.Close()

		messages := pubSub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				trade, err := tradepublisherv1.FromBytes([]byte(msg.Payload))
				if err != nil {
					s.logger.Error(err,
						logger.NewField("action", "decode_trade"),
						logger.NewField("channel", msg.Channel),
					)
					continue
				}

				select {
				case trades <- trade:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return trades, nil
}
