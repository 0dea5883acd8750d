package handler

import (
	"time"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet-related endpoints.
type WalletHandler struct {
	ledgerSvc ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerSvc ports.LedgerService) *WalletHandler {
	return &WalletHandler{ledgerSvc: ledgerSvc}
}

// CreateWallet handles POST /api/v1/wallets.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	principal, ok := principalID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid owner_id"))
		return
	}

	wallet, err := h.ledgerSvc.CreateWallet(c.Request.Context(), ports.CreateWalletRequest{
		OwnerID:   ownerID,
		Currency:  domain.Currency(req.Currency),
		CreatedBy: principal.String(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWalletResponse(wallet))
}

// GetBalances handles GET /api/v1/balances. It returns the balances of every
// wallet owned by the authenticated principal.
func (h *WalletHandler) GetBalances(c *gin.Context) {
	principal, ok := principalID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	balances, err := h.ledgerSvc.GetBalancesForOwner(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.BalanceResponse, 0, len(balances))
	for i := range balances {
		out = append(out, toBalanceResponse(&balances[i]))
	}
	response.OK(c, out)
}

// ListTransactions handles GET /api/v1/wallets/:wallet_id/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("wallet_id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet_id"))
		return
	}

	txns, err := h.ledgerSvc.ListTransactions(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}
	response.OK(c, dto.TransactionListResponse{
		Items: items,
		Total: len(items),
	})
}

func principalID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxPrincipalID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		ID:        w.ID.String(),
		OwnerID:   w.OwnerID.String(),
		Currency:  string(w.Currency),
		Active:    w.Active,
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
	}
}

func toBalanceResponse(b *domain.WalletBalance) dto.BalanceResponse {
	resp := dto.BalanceResponse{
		WalletID:    b.WalletID.String(),
		Currency:    string(b.Currency),
		Balance:     b.Balance,
		LastUpdated: b.LastUpdated.Format(time.RFC3339),
	}
	if b.LastTransactionAt != nil {
		s := b.LastTransactionAt.Format(time.RFC3339)
		resp.LastTransactionAt = &s
	}
	return resp
}

func toTransactionResponse(t *domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:              t.ID.String(),
		WalletID:        t.WalletID.String(),
		Amount:          t.Amount,
		Currency:        string(t.Currency),
		Type:            string(t.Type),
		Description:     t.Description,
		RelatedEntityID: t.RelatedEntityID,
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
		CreatedBy:       t.CreatedBy,
	}
}
