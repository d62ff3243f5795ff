package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muhammadchandra19/rtcrypto-exchange/internal/app/engine"
	"github.com/muhammadchandra19/rtcrypto-exchange/internal/app/gateway"
	"github.com/muhammadchandra19/rtcrypto-exchange/internal/app/seed"
	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
	orderreaderv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/order-reader/v1"
	snapshotv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/snapshot/v1"
	tradepublisherv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/trade-publisher/v1"
	walletv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/wallet/v1"
	memoryindex "github.com/muhammadchandra19/rtcrypto-exchange/internal/infrastructure/memory/priorityindex"
	memorywallet "github.com/muhammadchandra19/rtcrypto-exchange/internal/infrastructure/memory/wallet"
	pgwallet "github.com/muhammadchandra19/rtcrypto-exchange/internal/infrastructure/postgresql/wallet"
	redisindex "github.com/muhammadchandra19/rtcrypto-exchange/internal/infrastructure/redis/priorityindex"
	"github.com/muhammadchandra19/rtcrypto-exchange/internal/usecase/matching"
	orderreader "github.com/muhammadchandra19/rtcrypto-exchange/internal/usecase/order-reader"
	"github.com/muhammadchandra19/rtcrypto-exchange/internal/usecase/orderbook"
	"github.com/muhammadchandra19/rtcrypto-exchange/internal/usecase/settlement"
	"github.com/muhammadchandra19/rtcrypto-exchange/internal/usecase/snapshot"
	tradepublisher "github.com/muhammadchandra19/rtcrypto-exchange/internal/usecase/trade-publisher"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/config"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/httplib/healthcheck"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/postgresql"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/redis"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	cfg = &config.Config{}
	if err := config.Load(cfg); err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	l, err := logger.NewLogger(logger.WithLoggingLevel(logger.ParseLevel(cfg.App.LogLevel)))
	if err != nil {
		panic(err)
	}

	log = l
}

type walletBackend interface {
	walletv1.Transactor
	walletv1.Repository
	walletv1.Store
}

func main() {
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	health := healthcheck.New(2 * time.Second)

	var rclient redis.Client
	if cfg.Book.Index == "redis" || cfg.Publisher.Driver == "redis" {
		rclient = redis.NewClient(log, &cfg.Redis)
		if err := rclient.Connect(ctx); err != nil {
			log.Error(err, logger.NewField("action", "connect_redis"))
			return
		}
		defer func() {
			if err := rclient.Disconnect(context.Background()); err != nil {
				log.Error(err, logger.NewField("action", "close_redis_client"))
			}
		}()
		health.Register("redis", rclient.Ping)
	}

	wallets, closeWallets, err := newWalletBackend(ctx, health)
	if err != nil {
		log.Error(err, logger.NewField("action", "connect_wallet_store"))
		return
	}
	defer closeWallets()

	ledger := settlement.NewLedger(wallets, wallets, log)
	dispatcher := settlement.NewDispatcher(ledger, log,
		settlement.WithWorkers(cfg.Settlement.Workers),
		settlement.WithQueueSize(cfg.Settlement.QueueSize),
		settlement.WithTransferTimeout(cfg.Settlement.LockTimeout*2),
	)
	dispatcher.Start(ctx)

	publisher, subscriber, closePublisher := newTradeTransport(rclient)
	defer closePublisher()

	var markets []engine.Market
	for _, symbol := range cfg.App.Symbols {
		var index orderbookv1.PriorityIndex = memoryindex.NewIndex()
		persistent := false
		if cfg.Book.Index == "redis" {
			index = redisindex.NewIndex(rclient)
			persistent = true
		}

		book := orderbook.NewOrderbook(symbol, cfg.Book.KeyPrefix, index)
		markets = append(markets, engine.Market{
			Matcher:    matching.NewMatcher(book, publisher, dispatcher, log),
			Persistent: persistent,
		})
	}

	var snapshotStore snapshotv1.Store
	if rclient != nil {
		snapshotStore = snapshot.NewSnapshotStore(rclient, cfg.Book.KeyPrefix, log)
	}

	var reader orderreaderv1.OrderReader
	if cfg.Kafka.ConsumeOrders {
		reader = orderreader.NewReader(orderreader.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.OrderTopic,
			GroupID: cfg.Kafka.GroupID,
		}, log)
	}

	engineOptions := engine.DefaultEngineOptions()
	engineOptions.QueueSize = cfg.App.QueueSize
	engineOptions.SnapshotInterval = cfg.App.SnapshotInterval

	eng := engine.NewEngine(markets, snapshotStore, reader, log, engineOptions)
	if err := eng.Start(ctx); err != nil {
		log.Error(err, logger.NewField("action", "start_engine"))
		return
	}
	health.Register("engine", func(context.Context) error {
		if !eng.Running() {
			return errors.NewErrorDetails("engine is not running", string(errors.EngineStopped), "")
		}
		return nil
	})

	server := gateway.NewServer(eng, subscriber, health, log, &gateway.Options{
		Addr:              cfg.App.HTTPAddr,
		AllowedOrigins:    cfg.App.AllowedOrigins,
		ReadHeaderTimeout: 5 * time.Second,
	})
	if err := server.Start(ctx); err != nil {
		log.Error(err, logger.NewField("action", "start_http_server"))
		return
	}

	log.Info("Matching service started successfully",
		logger.NewField("symbols", cfg.App.Symbols),
		logger.NewField("index", cfg.Book.Index),
		logger.NewField("walletStore", cfg.Settlement.Store),
		logger.NewField("publisher", cfg.Publisher.Driver),
	)

	sig := <-sigChan
	log.Info("Received shutdown signal", logger.NewField("signal", sig.String()))

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	// intake first, then matching, then the settlements matching produced
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(err, logger.NewField("action", "stop_http_server"))
	}
	if err := eng.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.NewField("action", "stop_engine"))
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.NewField("action", "stop_settlement_dispatcher"))
	}

	log.Info("Matching service shutdown complete")
}

// newWalletBackend opens the configured wallet store. The in-memory store is
// seeded with the demo wallets of every symbol.
func newWalletBackend(ctx context.Context, health *healthcheck.HealthCheck) (walletBackend, func(), error) {
	if cfg.Settlement.Store == "memory" {
		store := memorywallet.NewStore()
		for _, symbol := range cfg.App.Symbols {
			if err := seed.Seed(ctx, store, seed.DefaultWallets(symbol), log); err != nil {
				return nil, nil, err
			}
		}
		log.Warn("Using in-memory wallet store, balances are lost on exit")
		return store, func() {}, nil
	}

	db, err := postgresql.NewClient(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Connected to PostgreSQL",
		logger.NewField("host", db.Host()),
		logger.NewField("port", db.Port()),
		logger.NewField("database", db.DatabaseName()),
	)
	health.Register("postgres", func(ctx context.Context) error {
		if h := postgresql.CheckHealth(ctx, db); h.Status != "healthy" {
			return errors.NewTracer(h.Error)
		}
		return nil
	})

	return pgwallet.NewRepository(db, log, cfg.Settlement.LockTimeout), db.Close, nil
}

// newTradeTransport returns the publisher the matchers write trades to and
// the subscriber the gateway broadcasts from.
func newTradeTransport(rclient redis.Client) (tradepublisherv1.Publisher, tradepublisherv1.Subscriber, func()) {
	if cfg.Publisher.Driver == "kafka" {
		hostname, _ := os.Hostname()
		kafkaConfig := tradepublisher.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.TradeTopic,
		}
		publisher := tradepublisher.NewKafkaPublisher(kafkaConfig, log)

		// every gateway process needs every trade, so each reads in its own group
		kafkaConfig.GroupID = fmt.Sprintf("%s-trades-%s", cfg.Kafka.GroupID, hostname)
		subscriber := tradepublisher.NewKafkaSubscriber(kafkaConfig, log)

		return publisher, subscriber, func() {
			if err := publisher.Close(); err != nil {
				log.Error(err, logger.NewField("action", "close_trade_publisher"))
			}
		}
	}

	return tradepublisher.NewRedisPublisher(rclient, cfg.Publisher.Channel, log),
		tradepublisher.NewRedisSubscriber(rclient, cfg.Publisher.Channel, log),
		func() {}
}
