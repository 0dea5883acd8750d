package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconciliationHandler handles drift detection and repair endpoints.
type ReconciliationHandler struct {
	reconSvc ports.ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconSvc ports.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconSvc: reconSvc}
}

// Run handles POST /api/v1/reconciliation/run.
func (h *ReconciliationHandler) Run(c *gin.Context) {
	var req dto.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	walletIDs := make([]uuid.UUID, 0, len(req.WalletIDs))
	for _, raw := range req.WalletIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, apperror.Validation("invalid wallet id: "+raw))
			return
		}
		walletIDs = append(walletIDs, id)
	}

	result, err := h.reconSvc.Reconcile(c.Request.Context(), walletIDs, req.DryRun)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// EmergencyFix handles POST /api/v1/reconciliation/wallets/:wallet_id.
func (h *ReconciliationHandler) EmergencyFix(c *gin.Context) {
	principal, ok := principalID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	walletID, err := uuid.Parse(c.Param("wallet_id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet_id"))
		return
	}

	var req dto.EmergencyReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.reconSvc.EmergencyReconcile(c.Request.Context(), walletID, req.Reason, principal.String())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}
