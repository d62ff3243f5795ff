package main

import (
	"math/rand/v2"

	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
)

// simulationOrders is one seller filling two buyers half each. Seeded demo
// wallets verify after it with `seed -verify`.
func simulationOrders(symbol string) []orderbookv1.PlaceOrderRequest {
	return []orderbookv1.PlaceOrderRequest{
		{UserID: "user-seller", Symbol: symbol, Side: orderbookv1.SideSell, Price: 5_000_000, Amount: 100_000_000},
		{UserID: "user-buyer-1", Symbol: symbol, Side: orderbookv1.SideBuy, Price: 5_000_000, Amount: 50_000_000},
		{UserID: "user-buyer-2", Symbol: symbol, Side: orderbookv1.SideBuy, Price: 5_000_000, Amount: 50_000_000},
	}
}

// stressOrders alternates whale bids and asks of a small amount at random
// prices just above basePrice.
func stressOrders(symbol string, count int, basePrice int64, rng *rand.Rand) []orderbookv1.PlaceOrderRequest {
	orders := make([]orderbookv1.PlaceOrderRequest, count)
	for i := range orders {
		req := orderbookv1.PlaceOrderRequest{
			UserID: "whale-seller",
			Symbol: symbol,
			Side:   orderbookv1.SideSell,
			Price:  orderbookv1.Quantity(basePrice + rng.Int64N(100)),
			Amount: 1000,
		}
		if i%2 == 0 {
			req.UserID = "whale-buyer"
			req.Side = orderbookv1.SideBuy
		}
		orders[i] = req
	}
	return orders
}

// randomOrders spreads bids below and asks above basePrice by up to spread.
func randomOrders(symbol string, count int, basePrice, spread int64, users []string, rng *rand.Rand) []orderbookv1.PlaceOrderRequest {
	orders := make([]orderbookv1.PlaceOrderRequest, count)
	for i := range orders {
		offset := rng.Int64N(spread + 1)
		req := orderbookv1.PlaceOrderRequest{
			UserID: users[rng.IntN(len(users))],
			Symbol: symbol,
			Side:   orderbookv1.SideSell,
			Price:  orderbookv1.Quantity(basePrice + offset),
			Amount: orderbookv1.Quantity(1 + rng.Int64N(10_000)),
		}
		if rng.IntN(2) == 0 {
			req.Side = orderbookv1.SideBuy
			req.Price = orderbookv1.Quantity(max(1, basePrice-offset))
		}
		orders[i] = req
	}
	return orders
}
