package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/gorilla/websocket"
	"github.com/muhammadchandra19/rtcrypto-exchange/internal/app/engine"
	gateway_mock "github.com/muhammadchandra19/rtcrypto-exchange/internal/app/gateway/mock"
	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
	tradepublisherv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/trade-publisher/v1"
	tradepublisherv1_mock "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/trade-publisher/v1/mock"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/httplib/healthcheck"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	ctrl       *gomock.Controller
	submitter  *gateway_mock.MockOrderSubmitter
	subscriber *tradepublisherv1_mock.MockSubscriber
	trades     chan tradepublisherv1.Trade
	server     *Server
	http       *httptest.Server
}

func setupTestFixture(t *testing.T, withSubscriber bool) *testFixture {
	ctrl := gomock.NewController(t)

	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.ErrorLevel))
	require.NoError(t, err)

	f := &testFixture{
		ctrl:      ctrl,
		submitter: gateway_mock.NewMockOrderSubmitter(ctrl),
		trades:    make(chan tradepublisherv1.Trade, 8),
	}

	health := healthcheck.New(time.Second)
	health.Register("redis", func(context.Context) error { return nil })

	var subscriber tradepublisherv1.Subscriber
	if withSubscriber {
		f.subscriber = tradepublisherv1_mock.NewMockSubscriber(ctrl)
		f.subscriber.EXPECT().Subscribe(gomock.Any()).Return((<-chan tradepublisherv1.Trade)(f.trades), nil)
		subscriber = f.subscriber
	}

	opts := DefaultOptions()
	opts.AllowedOrigins = []string{"http://app.local"}
	f.server = NewServer(f.submitter, subscriber, health, log, opts)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.server.Run(ctx))
	f.http = httptest.NewServer(f.server.Handler())

	t.Cleanup(func() {
		f.http.Close()
		close(f.trades)
		cancel()
		require.NoError(t, f.server.Shutdown(context.Background()))
	})

	return f
}

func (f *testFixture) post(t *testing.T, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.http.URL+"/api/v1/orders", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *testFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return f.server.Hub().Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg.Event, msg.Data
}

func TestServer_PlaceOrder(t *testing.T) {
	validBody := `{"userId":"alice","symbol":"BTC","side":"BUY","price":"50000","amount":2}`

	testCases := []struct {
		name     string
		body     string
		mockFn   func(f *testFixture)
		assertFn func(t *testing.T, resp *http.Response)
	}{
		{
			name: "accepted",
			body: validBody,
			mockFn: func(f *testFixture) {
				f.submitter.EXPECT().Submit(gomock.Any(), "rest", orderbookv1.PlaceOrderRequest{
					UserID: "alice",
					Symbol: "BTC",
					Side:   orderbookv1.SideBuy,
					Price:  50000,
					Amount: 2,
				}).Return(engine.Ack{OrderID: "01J", Status: engine.StatusProcessing}, nil)
			},
			assertFn: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, http.StatusAccepted, resp.StatusCode)
				assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

				var ack map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
				assert.Equal(t, map[string]string{"orderId": "01J", "status": "processing"}, ack)
			},
		},
		{
			name:   "malformed body",
			body:   `{"userId":`,
			mockFn: func(f *testFixture) {},
			assertFn: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

				var body ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, string(errors.InvalidOrder), body.Code)
			},
		},
		{
			name: "validation failure",
			body: `{"symbol":"BTC","side":"BUY","price":1,"amount":1}`,
			mockFn: func(f *testFixture) {
				base := errors.NewBaseError(errors.NewErrorDetails("UserID is required", string(errors.InvalidOrder), "UserID"))
				f.submitter.EXPECT().Submit(gomock.Any(), "rest", gomock.Any()).Return(engine.Ack{}, base)
			},
			assertFn: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

				var body ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, string(errors.InvalidOrder), body.Code)
				assert.Equal(t, []ErrorDetails{{Field: "UserID", Message: "UserID is required"}}, body.Details)
			},
		},
		{
			name: "unknown symbol",
			body: validBody,
			mockFn: func(f *testFixture) {
				f.submitter.EXPECT().Submit(gomock.Any(), "rest", gomock.Any()).
					Return(engine.Ack{}, errors.NewErrorDetails("symbol BTC is not traded", string(errors.UnknownSymbol), "symbol"))
			},
			assertFn: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			},
		},
		{
			name: "engine stopped",
			body: validBody,
			mockFn: func(f *testFixture) {
				f.submitter.EXPECT().Submit(gomock.Any(), "rest", gomock.Any()).
					Return(engine.Ack{}, errors.NewErrorDetails("engine is not running", string(errors.EngineStopped), ""))
			},
			assertFn: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
			},
		},
		{
			name: "internal error is masked",
			body: validBody,
			mockFn: func(f *testFixture) {
				f.submitter.EXPECT().Submit(gomock.Any(), "rest", gomock.Any()).
					Return(engine.Ack{}, errors.NewTracer("queue exploded"))
			},
			assertFn: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

				var body ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, string(errors.GeneralInternalServerError), body.Code)
				assert.NotContains(t, body.Message, "exploded")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := setupTestFixture(t, false)
			tc.mockFn(f)
			tc.assertFn(t, f.post(t, tc.body))
		})
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	f := setupTestFixture(t, false)

	resp, err := http.Get(f.http.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var status healthcheck.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "ok", status.Checks["redis"])

	metricsResp, err := http.Get(f.http.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
}

func TestServer_CORS(t *testing.T) {
	f := setupTestFixture(t, false)

	req, err := http.NewRequest(http.MethodOptions, f.http.URL+"/api/v1/orders", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://app.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://app.local", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_WebSocketRejectsForeignOrigin(t *testing.T) {
	f := setupTestFixture(t, false)

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.local"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_WebSocketOrders(t *testing.T) {
	t.Run("order create is acknowledged", func(t *testing.T) {
		f := setupTestFixture(t, false)
		done := make(chan engine.Result, 1)
		done <- engine.Result{}

		f.submitter.EXPECT().Submit(gomock.Any(), "websocket", gomock.Any()).
			Return(engine.Ack{OrderID: "01J", Status: engine.StatusProcessing, Done: done}, nil)

		conn := f.dial(t)
		require.NoError(t, conn.WriteJSON(map[string]any{
			"event": EventOrderCreate,
			"data":  map[string]any{"userId": "alice", "symbol": "BTC", "side": "SELL", "price": 100, "amount": 1},
		}))

		event, data := readEvent(t, conn)
		assert.Equal(t, EventOrderAck, event)
		assert.JSONEq(t, `{"orderId":"01J","status":"processing"}`, string(data))
	})

	t.Run("malformed order data", func(t *testing.T) {
		f := setupTestFixture(t, false)
		conn := f.dial(t)

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"order:create","data":{"price":[1]}}`)))

		event, data := readEvent(t, conn)
		assert.Equal(t, EventError, event)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(data, &body))
		assert.Equal(t, string(errors.InvalidOrder), body.Code)
	})

	t.Run("unknown event", func(t *testing.T) {
		f := setupTestFixture(t, false)
		conn := f.dial(t)

		require.NoError(t, conn.WriteJSON(map[string]any{"event": "order:cancel"}))

		event, data := readEvent(t, conn)
		assert.Equal(t, EventError, event)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(data, &body))
		assert.Equal(t, string(errors.GeneralBadRequestError), body.Code)
	})

	t.Run("matching failure follows the ack", func(t *testing.T) {
		f := setupTestFixture(t, false)
		done := make(chan engine.Result, 1)

		f.submitter.EXPECT().Submit(gomock.Any(), "websocket", gomock.Any()).
			Return(engine.Ack{OrderID: "01J", Status: engine.StatusProcessing, Done: done}, nil)

		conn := f.dial(t)
		require.NoError(t, conn.WriteJSON(map[string]any{
			"event": EventOrderCreate,
			"data":  map[string]any{"userId": "alice", "symbol": "BTC", "side": "SELL", "price": 100, "amount": 1},
		}))

		event, _ := readEvent(t, conn)
		require.Equal(t, EventOrderAck, event)

		done <- engine.Result{Err: errors.NewErrorDetails("order id already live", string(errors.InvalidOrder), "id")}

		event, data := readEvent(t, conn)
		assert.Equal(t, EventError, event)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(data, &body))
		assert.Equal(t, "01J", body.OrderID)
		assert.Equal(t, string(errors.InvalidOrder), body.Code)
	})
}

func TestServer_TradeBroadcast(t *testing.T) {
	f := setupTestFixture(t, true)

	first := f.dial(t)
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer second.Close()
	require.Eventually(t, func() bool { return f.server.Hub().Len() == 2 }, 2*time.Second, 5*time.Millisecond)

	trade := tradepublisherv1.Trade{MakerOrderID: "m", TakerOrderID: "t", Price: 100, Qty: 3, Symbol: "BTC"}
	f.trades <- trade

	for _, conn := range []*websocket.Conn{first, second} {
		event, data := readEvent(t, conn)
		assert.Equal(t, EventTrade, event)

		var got tradepublisherv1.Trade
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, trade, got)
	}
}

func TestClient_WatchEndsOnDisconnect(t *testing.T) {
	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.ErrorLevel))
	require.NoError(t, err)

	c := &Client{
		logger: log,
		send:   make(chan []byte, 1),
		done:   make(chan struct{}),
	}

	// an engine that timed out on Stop never answers
	pending := make(chan engine.Result)
	finished := make(chan struct{})
	go func() {
		c.watch(context.Background(), engine.Ack{OrderID: "01J", Done: pending})
		close(finished)
	}()

	select {
	case <-finished:
		t.Fatal("watch returned before the client disconnected")
	case <-time.After(20 * time.Millisecond):
	}

	c.close()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("watch still blocked after disconnect")
	}
	assert.Empty(t, c.send)
}
