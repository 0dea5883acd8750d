package handler

import (
	"net/http"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerHandler handles transaction and transfer endpoints.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// CreateTransaction handles POST /api/v1/transactions. Replayed idempotent
// requests return 200 instead of 201; the body carries the original result.
func (h *LedgerHandler) CreateTransaction(c *gin.Context) {
	principal, ok := principalID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet_id"))
		return
	}

	result, err := h.ledgerSvc.CreateTransaction(c.Request.Context(), ports.CreateTransactionRequest{
		WalletID:       walletID,
		Amount:         req.Amount,
		Currency:       domain.Currency(req.Currency),
		Type:           domain.TransactionType(req.Type),
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
		CreatedBy:      principal.String(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Status == ports.StatusAlreadyProcessed {
		response.OK(c, result)
		return
	}
	response.Created(c, result)
}

// Transfer handles POST /api/v1/transfers.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	principal, ok := principalID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	fromOwnerID, err := uuid.Parse(req.FromOwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid from_owner_id"))
		return
	}
	toOwnerID, err := uuid.Parse(req.ToOwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid to_owner_id"))
		return
	}

	result, err := h.ledgerSvc.TransferBetweenWallets(c.Request.Context(), ports.TransferRequest{
		FromOwnerID:    fromOwnerID,
		ToOwnerID:      toOwnerID,
		Currency:       domain.Currency(req.Currency),
		Amount:         req.Amount,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
		CreatedBy:      principal.String(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Status == ports.StatusAlreadyProcessed {
		response.OK(c, result)
		return
	}
	response.Created(c, result)
}

// HealthCheck handles GET /health. Deep health check verifying all dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
