package tradepublisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang/mock/gomock"
	tradepublisherv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/trade-publisher/v1"
	tradepublisher_mock "github.com/muhammadchandra19/rtcrypto-exchange/internal/usecase/trade-publisher/mock"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/redis"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTrade = tradepublisherv1.Trade{
	MakerOrderID: "maker",
	TakerOrderID: "taker",
	Price:        500,
	Qty:          60,
	Symbol:       "BTC",
}

func newTestLogger(t *testing.T) logger.Interface {
	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.ErrorLevel))
	require.NoError(t, err)
	return log
}

func newRedisClient(t *testing.T) (redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := redis.DefaultConfig()
	cfg.Addrs = []string{mr.Addr()}

	client := redis.NewClient(newTestLogger(t), cfg)
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	return client, mr
}

func TestRedisPublisher_RoundTrip(t *testing.T) {
	client, _ := newRedisClient(t)
	log := newTestLogger(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trades, err := NewRedisSubscriber(client, "", log).Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, NewRedisPublisher(client, "", log).Publish(ctx, testTrade))

	select {
	case got := <-trades:
		assert.Equal(t, testTrade, got)
	case <-time.After(2 * time.Second):
		t.Fatal("trade not received")
	}

	cancel()
	select {
	case _, ok := <-trades:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}

func TestRedisPublisher_NoSubscribers(t *testing.T) {
	client, _ := newRedisClient(t)

	err := NewRedisPublisher(client, "trades:test", newTestLogger(t)).Publish(context.Background(), testTrade)
	assert.NoError(t, err)
}

func TestRedisSubscriber_SkipsUndecodable(t *testing.T) {
	client, mr := newRedisClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trades, err := NewRedisSubscriber(client, tradepublisherv1.Channel, newTestLogger(t)).Subscribe(ctx)
	require.NoError(t, err)

	mr.Publish(tradepublisherv1.Channel, "not json")
	require.NoError(t, NewRedisPublisher(client, tradepublisherv1.Channel, newTestLogger(t)).Publish(ctx, testTrade))

	select {
	case got := <-trades:
		assert.Equal(t, testTrade, got)
	case <-time.After(2 * time.Second):
		t.Fatal("trade not received")
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	errWrite := errors.New("broker unavailable")

	testCases := []struct {
		name     string
		mockFn   func(w *tradepublisher_mock.MockMessageWriter)
		assertFn func(t *testing.T, err error)
	}{
		{
			name: "success keyed by symbol",
			mockFn: func(w *tradepublisher_mock.MockMessageWriter) {
				w.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, msgs ...kafka.Message) error {
						require.Len(t, msgs, 1)
						assert.Equal(t, []byte("BTC"), msgs[0].Key)
						got, err := tradepublisherv1.FromBytes(msgs[0].Value)
						require.NoError(t, err)
						assert.Equal(t, testTrade, got)
						return nil
					})
			},
			assertFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "write error",
			mockFn: func(w *tradepublisher_mock.MockMessageWriter) {
				w.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(errWrite)
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errWrite)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			w := tradepublisher_mock.NewMockMessageWriter(ctrl)
			tc.mockFn(w)

			p := NewKafkaPublisherWithWriter(w, newTestLogger(t))
			tc.assertFn(t, p.Publish(context.Background(), testTrade))
		})
	}
}

func TestKafkaSubscriber_Subscribe(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	payload, err := tradepublisherv1.ToBytes(testTrade)
	require.NoError(t, err)

	r := tradepublisher_mock.NewMockMessageReader(ctrl)
	gomock.InOrder(
		r.EXPECT().ReadMessage(gomock.Any()).Return(kafka.Message{Value: []byte("{")}, nil),
		r.EXPECT().ReadMessage(gomock.Any()).Return(kafka.Message{Value: payload}, nil),
		r.EXPECT().ReadMessage(gomock.Any()).Return(kafka.Message{}, errors.New("reader closed")),
		r.EXPECT().Close().Return(nil),
	)

	trades, err := NewKafkaSubscriberWithReader(r, newTestLogger(t)).Subscribe(context.Background())
	require.NoError(t, err)

	var got []tradepublisherv1.Trade
	for trade := range trades {
		got = append(got, trade)
	}
	assert.Equal(t, []tradepublisherv1.Trade{testTrade}, got)
}
