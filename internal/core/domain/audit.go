package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names an audited wallet/ledger operation.
type AuditAction string

const (
	AuditActionCreateWallet       AuditAction = "CREATE_WALLET"
	AuditActionCreateTransaction  AuditAction = "CREATE_TRANSACTION"
	AuditActionTransfer           AuditAction = "TRANSFER"
	AuditActionReconcile          AuditAction = "RECONCILE"
	AuditActionEmergencyReconcile AuditAction = "EMERGENCY_RECONCILE"
)

// AuditLog records one audited action: who did what to which entity, with
// the numeric before/after facts serialized into Details.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Actor        string      `json:"actor"` // principal id or "system"
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
