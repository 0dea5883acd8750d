package domain

import "time"

// IdempotencyRecord stores the deterministic response of a completed mutating
// operation, keyed by the caller-supplied idempotency key. It is written in
// the same storage transaction as the ledger rows it describes, so a losing
// concurrent writer that hits the key's uniqueness constraint can always read
// back the winner's committed result.
type IdempotencyRecord struct {
	Key          string    `json:"key"`
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}
