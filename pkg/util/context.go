package util

import (
	"context"
)

type key string

const (
	clientIPKey = key("x-forwarded-for")
	userIDKey   = key("user-id")
	symbolKey   = key("symbol")
	orderIDKey  = key("order-id")
)

// Fields returns a map of the key-value pairs that this package has set into `context`.
func Fields(ctx context.Context) map[string]interface{} {
	mapFields := make(map[string]interface{})
	mapFields["request_id"] = GetRequestID(ctx)
	if ip := GetClientIP(ctx); ip != "" {
		mapFields["client_ip"] = ip
	}
	if userID := GetUserID(ctx); userID != "" {
		mapFields["user_id"] = userID
	}
	if symbol := GetSymbol(ctx); symbol != "" {
		mapFields["symbol"] = symbol
	}
	if orderID := GetOrderID(ctx); orderID != "" {
		mapFields["order_id"] = orderID
	}

	return mapFields
}

// WithClientIP returns a context with a client ip
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// WithUserID returns a context carrying the user that placed an order
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// WithSymbol returns a context carrying the instrument being processed
func WithSymbol(ctx context.Context, symbol string) context.Context {
	return context.WithValue(ctx, symbolKey, symbol)
}

// WithOrderID returns a context carrying the order being processed
func WithOrderID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, orderIDKey, id)
}

// GetClientIP returns client ip from context
// will return empty string if not present
func GetClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// GetUserID returns user id from context
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// GetSymbol returns symbol from context
func GetSymbol(ctx context.Context) string {
	symbol, _ := ctx.Value(symbolKey).(string)
	return symbol
}

// GetOrderID returns order id from context
func GetOrderID(ctx context.Context) string {
	id, _ := ctx.Value(orderIDKey).(string)
	return id
}
