package domain

import "time"

// SeedBalance is credited exactly once when a profile is first created.
const SeedBalance = 1_000_000

// Profile is the wallet document keyed by the owning account id.
type Profile struct {
	AccountID   string    `bson:"_id"          json:"id"`
	Email       string    `bson:"email"        json:"email"`
	CashBalance float64   `bson:"cash_balance" json:"cash_balance"`
	CreatedAt   time.Time `bson:"created_at"   json:"created_at"`
}
