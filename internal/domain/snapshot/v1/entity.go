package snapshotv1

import (
	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
)

// Snapshot is the matcher's live order cache for one symbol at a point in time.
type Snapshot struct {
	Symbol  string               `json:"symbol"`
	Seq     uint64               `json:"seq"`
	TakenAt int64                `json:"takenAt"`
	Orders  []*orderbookv1.Order `json:"orders"`
}
