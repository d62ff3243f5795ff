package walletv1

import "time"

// Wallet is the balance of one user in one currency.
type Wallet struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Currency  string    `json:"currency"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
