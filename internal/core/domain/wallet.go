package domain

import (
	"time"

	"github.com/google/uuid"
)

// Currency identifies one of the platform's supported settlement currencies.
// The set is fixed; enabling a subset at runtime is configuration, not code.
type Currency string

const (
	CurrencyEGP Currency = "EGP"
	CurrencyUSD Currency = "USD"
	CurrencySAR Currency = "SAR"
)

// KnownCurrency reports whether c belongs to the fixed currency set.
func KnownCurrency(c Currency) bool {
	switch c {
	case CurrencyEGP, CurrencyUSD, CurrencySAR:
		return true
	}
	return false
}

// Wallet holds funds for one (owner, currency) pair. Wallets are created on
// first transaction need and are never deleted, only deactivated.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Currency  Currency  `json:"currency"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// WalletBalance is the read-optimized projection of a wallet's ledger.
// It must always equal the sum of the wallet's transaction amounts; it is a
// cache that can be rebuilt from the ledger and is never independently
// authoritative.
type WalletBalance struct {
	WalletID          uuid.UUID  `json:"wallet_id"`
	Currency          Currency   `json:"currency"`
	Balance           int64      `json:"balance"` // minor units
	LastTransactionAt *time.Time `json:"last_transaction_at,omitempty"`
	LastUpdated       time.Time  `json:"last_updated"`
}
