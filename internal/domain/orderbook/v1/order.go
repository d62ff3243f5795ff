package orderbookv1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
)

// Side is the direction of an order.
type Side string

const (
	// SideBuy is a bid.
	SideBuy Side = "BUY"
	// SideSell is an ask.
	SideSell Side = "SELL"
)

// Opposite returns the side an order of s matches against.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Order is a live limit order. Price and Amount are integer minor units.
type Order struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Symbol    string `json:"symbol"`
	Side      Side   `json:"side"`
	Price     int64  `json:"price"`
	Amount    int64  `json:"amount"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	Seq       uint64 `json:"seq,omitempty"`
}

// IsBid checks if the order is a bid (buy) order.
func (o *Order) IsBid() bool {
	return o.Side == SideBuy
}

// IsFilled reports whether nothing remains to trade.
func (o *Order) IsFilled() bool {
	return o.Amount <= 0
}

// Crosses reports whether a resting order at makerPrice can trade with o.
func (o *Order) Crosses(makerPrice int64) bool {
	if o.IsBid() {
		return makerPrice <= o.Price
	}
	return makerPrice >= o.Price
}

// Quantity is an integer that decodes from a JSON number or a decimal string,
// so clients that send "5000000" and clients that send 5000000 are both accepted.
type Quantity int64

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	if len(data) == 0 {
		*q = 0
		return nil
	}

	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer quantity %q", data)
	}
	*q = Quantity(v)
	return nil
}

// PlaceOrderRequest is the intake contract shared by every transport.
type PlaceOrderRequest struct {
	UserID string   `json:"userId" validate:"required"`
	Symbol string   `json:"symbol" validate:"required"`
	Side   Side     `json:"side" validate:"required,oneof=BUY SELL"`
	Price  Quantity `json:"price" validate:"gt=0"`
	Amount Quantity `json:"amount" validate:"gt=0"`
}

// NewOrder builds a live order from a validated request with a fresh ULID and
// the current time.
func NewOrder(req PlaceOrderRequest) *Order {
	now := time.Now()
	return &Order{
		ID:        ulid.Make().String(),
		UserID:    req.UserID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Price:     int64(req.Price),
		Amount:    int64(req.Amount),
		Timestamp: now.UnixMilli(),
	}
}
