package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	tradepublisherv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/trade-publisher/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/httplib/healthcheck"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Options configures the HTTP server.
type Options struct {
	Addr              string
	AllowedOrigins    []string
	ReadHeaderTimeout time.Duration
}

// DefaultOptions returns the default server options.
func DefaultOptions() *Options {
	return &Options{
		Addr:              ":8080",
		AllowedOrigins:    []string{"*"},
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Server exposes order intake over REST and websocket, broadcasts trades to
// websocket clients and serves health and metrics.
type Server struct {
	router     *mux.Router
	hub        *Hub
	submitter  OrderSubmitter
	subscriber tradepublisherv1.Subscriber
	health     *healthcheck.HealthCheck
	logger     logger.Interface
	options    *Options
	upgrader   websocket.Upgrader

	httpServer *http.Server
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewServer creates a server. subscriber may be nil, in which case websocket
// clients receive no trade events.
func NewServer(
	submitter OrderSubmitter,
	subscriber tradepublisherv1.Subscriber,
	health *healthcheck.HealthCheck,
	log logger.Interface,
	options *Options,
) *Server {
	if options == nil {
		options = DefaultOptions()
	}

	s := &Server{
		router:     mux.NewRouter(),
		hub:        NewHub(log),
		submitter:  submitter,
		subscriber: subscriber,
		health:     health,
		logger:     log,
		options:    options,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(requestContext, instrument)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/orders", s.handlePlaceOrder).Methods(http.MethodPost)

	s.router.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	s.router.Handle("/health", s.health).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.options.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
	})
	return c.Handler(s.router)
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run starts the hub and the trade fan-out without listening on a socket.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run(ctx)
	}()

	if s.subscriber == nil {
		return nil
	}

	trades, err := s.subscriber.Subscribe(ctx)
	if err != nil {
		cancel()
		s.wg.Wait()
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.ForwardTrades(trades)
	}()

	return nil
}

// Start runs the hub and listens on the configured address.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Run(ctx); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.options.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.options.ReadHeaderTimeout,
	}

	go func() {
		s.logger.Info("HTTP server listening", logger.NewField("addr", s.options.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error(errors.TracerFromError(err), logger.NewField("action", "listen_http"))
		}
	}()

	return nil
}

// Shutdown stops accepting requests, disconnects websocket clients and waits
// for the trade fan-out to end.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return err
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.options.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
