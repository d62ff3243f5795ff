package gateway

import (
	"context"

	"github.com/muhammadchandra19/rtcrypto-exchange/internal/app/engine"
	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
)

// OrderSubmitter accepts orders from the gateway's transports.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=gateway_mock
type OrderSubmitter interface {
	Submit(ctx context.Context, source string, req orderbookv1.PlaceOrderRequest) (engine.Ack, error)
}
