package main

import (
	"context"
	"encoding/json"
	"flag"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/config"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/validation"
	"github.com/segmentio/kafka-go"
)

func main() {
	cfg := &config.Config{}
	config.MustLoad(cfg)

	var (
		brokers   = flag.String("brokers", strings.Join(cfg.Kafka.Brokers, ","), "Kafka broker addresses (comma-separated)")
		topic     = flag.String("topic", cfg.Kafka.OrderTopic, "Kafka order topic")
		symbol    = flag.String("symbol", cfg.App.Symbols[0], "Symbol to trade")
		scenario  = flag.String("scenario", "random", "Orders to send: simulation, stress or random")
		file      = flag.String("file", "", "JSON file with orders (overrides -scenario)")
		delay     = flag.Duration("delay", 100*time.Millisecond, "Delay between sending orders")
		count     = flag.Int("count", 1000, "Number of orders to generate")
		basePrice = flag.Int64("base-price", 5_000_000, "Base price in minor units")
		spread    = flag.Int64("price-spread", 20_000, "Price spread in minor units")
	)
	flag.Parse()

	log, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	orders, err := loadOrders(*file, *scenario, *symbol, *count, *basePrice, *spread)
	if err != nil {
		log.Error(err, logger.NewField("action", "load_orders"))
		os.Exit(1)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(*brokers, ",")...),
		Topic:        *topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	defer writer.Close()

	log.Info("Sending orders",
		logger.NewField("brokers", *brokers),
		logger.NewField("topic", *topic),
		logger.NewField("orders", len(orders)),
		logger.NewField("delay", delay.String()),
	)

	ctx := context.Background()
	sent, buys := 0, 0
	for i, order := range orders {
		payload, err := json.Marshal(order)
		if err != nil {
			log.Error(err, logger.NewField("index", i))
			continue
		}

		// keyed by symbol so one symbol's orders keep their order in a partition
		msg := kafka.Message{
			Key:   []byte(order.Symbol),
			Value: payload,
			Time:  time.Now(),
		}
		if err := writer.WriteMessages(ctx, msg); err != nil {
			log.Error(err, logger.NewField("action", "write_order"), logger.NewField("index", i))
			continue
		}

		sent++
		if order.Side == orderbookv1.SideBuy {
			buys++
		}
		if (i+1)%100 == 0 || i == len(orders)-1 {
			log.Info("Progress", logger.NewField("sent", i+1), logger.NewField("total", len(orders)))
		}

		if i < len(orders)-1 {
			time.Sleep(*delay)
		}
	}

	log.Info("Summary",
		logger.NewField("sent", sent),
		logger.NewField("buy", buys),
		logger.NewField("sell", sent-buys),
	)
}

func loadOrders(file, scenario, symbol string, count int, basePrice, spread int64) ([]orderbookv1.PlaceOrderRequest, error) {
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		var orders []orderbookv1.PlaceOrderRequest
		if err := json.Unmarshal(data, &orders); err != nil {
			return nil, err
		}
		for _, order := range orders {
			if err := validation.Struct(order, errors.InvalidOrder); err != nil {
				return nil, err
			}
		}
		return orders, nil
	}

	switch scenario {
	case "simulation":
		return simulationOrders(symbol), nil
	case "stress":
		return stressOrders(symbol, count, basePrice, rng), nil
	default:
		users := []string{"user-seller", "user-buyer-1", "user-buyer-2", "whale-seller", "whale-buyer"}
		return randomOrders(symbol, count, basePrice, spread, users, rng), nil
	}
}
