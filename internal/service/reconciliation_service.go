package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReconciliationServiceImpl implements ports.ReconciliationService. It treats
// the ledger as ground truth and the balance projection as a rebuildable
// cache: detection compares the two, repair overwrites the cache. The ledger
// itself is never written here.
type ReconciliationServiceImpl struct {
	walletRepo  ports.WalletRepository
	ledgerRepo  ports.LedgerRepository
	balanceRepo ports.BalanceRepository
	transactor  ports.DBTransactor
	auditSvc    ports.AuditService
	log         zerolog.Logger
}

// NewReconciliationService creates a new ReconciliationServiceImpl.
func NewReconciliationService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	balanceRepo ports.BalanceRepository,
	transactor ports.DBTransactor,
	auditSvc ports.AuditService,
	log zerolog.Logger,
) *ReconciliationServiceImpl {
	return &ReconciliationServiceImpl{
		walletRepo:  walletRepo,
		ledgerRepo:  ledgerRepo,
		balanceRepo: balanceRepo,
		transactor:  transactor,
		auditSvc:    auditSvc,
		log:         log,
	}
}

// Reconcile scans the given wallets for drift between the cached balance and
// the ledger sum. An empty walletIDs scans every wallet. One wallet failing
// never aborts the batch; cancellation stops it between wallets.
func (s *ReconciliationServiceImpl) Reconcile(ctx context.Context, walletIDs []uuid.UUID, dryRun bool) (*domain.ReconciliationResult, error) {
	start := time.Now()

	ids := walletIDs
	if len(ids) == 0 {
		all, err := s.walletRepo.ListIDs(ctx)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("list wallets: %w", err))
		}
		ids = all
	}

	result := &domain.ReconciliationResult{
		DryRun: dryRun,
		Errors: []domain.ReconciliationError{},
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			s.log.Warn().
				Int("processed", result.WalletsProcessed).
				Int("remaining", len(ids)-result.WalletsProcessed).
				Msg("reconciliation cancelled mid-batch")
			break
		}

		drift, err := s.reconcileWallet(ctx, id, dryRun)
		if err != nil {
			result.Errors = append(result.Errors, domain.ReconciliationError{
				WalletID: id,
				Reason:   err.Error(),
			})
			s.log.Error().Err(err).Str("wallet_id", id.String()).Msg("wallet reconciliation failed")
			continue
		}

		result.WalletsProcessed++
		if drift == 0 {
			continue
		}

		result.DiscrepanciesFound++
		if drift < 0 {
			result.TotalDriftAmount += -drift
		} else {
			result.TotalDriftAmount += drift
		}
		if !dryRun {
			result.DiscrepanciesFixed++
		}

		s.log.Warn().
			Str("wallet_id", id.String()).
			Int64("drift", drift).
			Bool("dry_run", dryRun).
			Msg("balance drift detected")
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	details, _ := json.Marshal(result)
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		Actor:        "system",
		Action:       domain.AuditActionReconcile,
		ResourceType: "reconciliation",
		Details:      string(details),
		CreatedAt:    time.Now().UTC(),
	})

	s.log.Info().
		Int("wallets_processed", result.WalletsProcessed).
		Int("discrepancies_found", result.DiscrepanciesFound).
		Int("discrepancies_fixed", result.DiscrepanciesFixed).
		Int64("total_drift", result.TotalDriftAmount).
		Bool("dry_run", dryRun).
		Int64("elapsed_ms", result.ProcessingTimeMs).
		Msg("reconciliation run complete")

	return result, nil
}

// reconcileWallet compares one wallet's cached balance against its ledger sum
// and, outside dry runs, repairs it. The returned drift is ground truth minus
// cache as measured at detection time; zero means consistent.
func (s *ReconciliationServiceImpl) reconcileWallet(ctx context.Context, walletID uuid.UUID, dryRun bool) (int64, error) {
	truth, err := s.ledgerRepo.SumForWallet(ctx, walletID)
	if err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}

	cached := int64(0)
	bal, err := s.balanceRepo.Get(ctx, walletID)
	if err != nil {
		return 0, fmt.Errorf("get cached balance: %w", err)
	}
	if bal != nil {
		cached = bal.Balance
	}

	drift := truth - cached
	if drift == 0 || dryRun {
		return drift, nil
	}

	if err := s.fixWallet(ctx, walletID); err != nil {
		return drift, err
	}
	return drift, nil
}

// fixWallet rewrites a wallet's cached balance to the ledger sum. The sum is
// recomputed under the balance row lock so a transaction committing between
// detection and repair cannot be clobbered.
func (s *ReconciliationServiceImpl) fixWallet(ctx context.Context, walletID uuid.UUID) error {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return fmt.Errorf("get wallet: %w", err)
	}
	if wallet == nil {
		return fmt.Errorf("wallet %s not found", walletID)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if _, err := s.balanceRepo.GetForUpdate(ctx, dbTx, walletID); err != nil {
		return fmt.Errorf("lock balance: %w", err)
	}

	truth, err := s.ledgerRepo.SumForWalletTx(ctx, dbTx, walletID)
	if err != nil {
		return fmt.Errorf("re-sum ledger: %w", err)
	}

	if err := s.balanceRepo.SetBalance(ctx, dbTx, walletID, wallet.Currency, truth); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// EmergencyReconcile forces a single wallet's cached balance back to the
// ledger sum, recording who asked and why. Used by operators when a wallet
// is visibly wrong and cannot wait for the next batch run.
func (s *ReconciliationServiceImpl) EmergencyReconcile(ctx context.Context, walletID uuid.UUID, reason string, requestedBy string) (*domain.EmergencyFixResult, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	bal, err := s.balanceRepo.GetForUpdate(ctx, dbTx, walletID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock balance: %w", err))
	}
	cached := int64(0)
	if bal != nil {
		cached = bal.Balance
	}

	truth, err := s.ledgerRepo.SumForWalletTx(ctx, dbTx, walletID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("sum ledger: %w", err))
	}

	if err := s.balanceRepo.SetBalance(ctx, dbTx, walletID, wallet.Currency, truth); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("set balance: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	fixedAt := time.Now().UTC()
	result := &domain.EmergencyFixResult{
		WalletID:   walletID,
		NewBalance: truth,
		Drift:      truth - cached,
		FixedAt:    fixedAt,
	}

	details, _ := json.Marshal(map[string]any{
		"reason":      reason,
		"drift":       result.Drift,
		"new_balance": truth,
	})
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		Actor:        requestedBy,
		Action:       domain.AuditActionEmergencyReconcile,
		ResourceType: "wallet",
		ResourceID:   walletID.String(),
		Details:      string(details),
		CreatedAt:    fixedAt,
	})

	s.log.Warn().
		Str("wallet_id", walletID.String()).
		Str("requested_by", requestedBy).
		Str("reason", reason).
		Int64("drift", result.Drift).
		Int64("new_balance", truth).
		Msg("emergency reconciliation applied")

	return result, nil
}
