package settlementv1

// Transfer moves Amount of Currency from the seller's wallet to the buyer's.
type Transfer struct {
	SellerUserID string `json:"sellerUserId"`
	BuyerUserID  string `json:"buyerUserId"`
	Currency     string `json:"currency"`
	Amount       int64  `json:"amount"`
	// TradeRef identifies the trade that produced the transfer, for logs.
	TradeRef string `json:"tradeRef,omitempty"`
}

// Result is the outcome of one dispatched transfer.
type Result struct {
	Transfer Transfer
	Err      error
}
