package dto

// CreateWalletRequest is the request body for wallet creation.
type CreateWalletRequest struct {
	OwnerID  string `json:"owner_id" binding:"required,uuid"`
	Currency string `json:"currency" binding:"required,len=3"`
}

// WalletResponse is the response body for a wallet.
type WalletResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Currency  string `json:"currency"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

// CreateTransactionRequest is the request body for a single-wallet ledger entry.
// Amount is signed: positive credits the wallet, negative debits it.
type CreateTransactionRequest struct {
	WalletID       string  `json:"wallet_id" binding:"required,uuid"`
	Amount         int64   `json:"amount" binding:"required"`
	Currency       string  `json:"currency" binding:"required,len=3"`
	Type           string  `json:"type" binding:"required"`
	Description    *string `json:"description,omitempty" binding:"omitempty,max=500"`
	IdempotencyKey *string `json:"idempotency_key,omitempty" binding:"omitempty,safe_id,max=128"`
}

// TransferRequest is the request body for a cross-wallet transfer.
type TransferRequest struct {
	FromOwnerID    string  `json:"from_owner_id" binding:"required,uuid"`
	ToOwnerID      string  `json:"to_owner_id" binding:"required,uuid"`
	Amount         int64   `json:"amount" binding:"required,gt=0"`
	Currency       string  `json:"currency" binding:"required,len=3"`
	Description    *string `json:"description,omitempty" binding:"omitempty,max=500"`
	IdempotencyKey *string `json:"idempotency_key,omitempty" binding:"omitempty,safe_id,max=128"`
}

// TransactionResponse is the response body for a ledger entry.
type TransactionResponse struct {
	ID              string  `json:"id"`
	WalletID        string  `json:"wallet_id"`
	Amount          int64   `json:"amount"`
	Currency        string  `json:"currency"`
	Type            string  `json:"type"`
	Description     *string `json:"description,omitempty"`
	RelatedEntityID *string `json:"related_entity_id,omitempty"`
	CreatedAt       string  `json:"created_at"`
	CreatedBy       string  `json:"created_by"`
}

// BalanceResponse is the response body for a wallet balance.
type BalanceResponse struct {
	WalletID          string  `json:"wallet_id"`
	Currency          string  `json:"currency"`
	Balance           int64   `json:"balance"`
	LastTransactionAt *string `json:"last_transaction_at,omitempty"`
	LastUpdated       string  `json:"last_updated"`
}

// ReconcileRequest is the request body for a batch reconciliation run.
// Empty wallet_ids means the full wallet set.
type ReconcileRequest struct {
	WalletIDs []string `json:"wallet_ids,omitempty" binding:"omitempty,dive,uuid"`
	DryRun    bool     `json:"dry_run"`
}

// EmergencyReconcileRequest is the request body for a forced single-wallet fix.
type EmergencyReconcileRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// TransactionListResponse wraps a wallet's ledger history.
type TransactionListResponse struct {
	Items []TransactionResponse `json:"items"`
	Total int                   `json:"total"`
}
