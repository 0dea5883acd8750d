package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReconciliationError captures a single wallet's failure inside a batch run.
// One wallet failing never aborts the batch.
type ReconciliationError struct {
	WalletID uuid.UUID `json:"wallet_id"`
	Reason   string    `json:"reason"`
}

// ReconciliationResult is the report of a batch drift-detection run.
// When the run was cancelled mid-batch it reflects only fully committed
// fixes; a half-applied fix is never counted.
type ReconciliationResult struct {
	WalletsProcessed   int                   `json:"wallets_processed"`
	DiscrepanciesFound int                   `json:"discrepancies_found"`
	DiscrepanciesFixed int                   `json:"discrepancies_fixed"`
	TotalDriftAmount   int64                 `json:"total_drift_amount"`
	Errors             []ReconciliationError `json:"errors"`
	DryRun             bool                  `json:"dry_run"`
	ProcessingTimeMs   int64                 `json:"processing_time_ms"`
}

// EmergencyFixResult is the outcome of a single-wallet forced reconciliation.
type EmergencyFixResult struct {
	WalletID   uuid.UUID `json:"wallet_id"`
	NewBalance int64     `json:"new_balance"`
	Drift      int64     `json:"drift"` // ground truth minus cached, at detection
	FixedAt    time.Time `json:"fixed_at"`
}
