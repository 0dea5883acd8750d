package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// It maps HTTP methods and paths to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			return
		}

		action, resourceType := mapPathToAction(c.Request.URL.Path, c.Request.Method)
		if action == "" {
			return
		}

		actor := "anonymous"
		if pid, exists := c.Get(CtxPrincipalID); exists {
			if id, ok := pid.(uuid.UUID); ok {
				actor = id.String()
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			Actor:        actor,
			Action:       action,
			ResourceType: resourceType,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	switch {
	case path == "/api/v1/wallets" && method == "POST":
		return domain.AuditActionCreateWallet, "wallet"
	case path == "/api/v1/transactions" && method == "POST":
		return domain.AuditActionCreateTransaction, "transaction"
	case path == "/api/v1/transfers" && method == "POST":
		return domain.AuditActionTransfer, "transaction"
	case path == "/api/v1/reconciliation/run" && method == "POST":
		return domain.AuditActionReconcile, "reconciliation"
	case strings.HasPrefix(path, "/api/v1/reconciliation/wallets/") && method == "POST":
		return domain.AuditActionEmergencyReconcile, "wallet"
	}
	return "", ""
}
