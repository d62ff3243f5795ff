package tradepublisherv1

import (
	"encoding/json"
)

// Channel is the pub/sub channel (and default topic) trade events are sent on.
const Channel = "trade:executed"

// Trade is one execution between a resting maker and an incoming taker.
// Price is always the maker's price.
type Trade struct {
	MakerOrderID string `json:"makerOrderId"`
	TakerOrderID string `json:"takerOrderId"`
	Price        int64  `json:"price"`
	Qty          int64  `json:"qty"`
	Symbol       string `json:"symbol"`
}

// ToBytes converts the trade to its wire form.
func ToBytes(trade Trade) ([]byte, error) {
	return json.Marshal(trade)
}

// FromBytes converts a byte array to a trade.
func FromBytes(data []byte) (Trade, error) {
	var trade Trade
	err := json.Unmarshal(data, &trade)
	return trade, err
}
