package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledgerkeeper/internal/balance"
	"ledgerkeeper/internal/ledger"
	"ledgerkeeper/internal/metrics"
)

var ErrUserLocked = errors.New("user balance is locked by another writer")

const lockTTL = 30 * time.Second

type Service interface {
	ComputeBalance(ctx context.Context, userID string, asOf int64) (*balance.Computed, error)
	CachedBalance(ctx context.Context, userID string) (*balance.Cached, error)
	ReconcileUser(ctx context.Context, userID string, asOf int64, apply bool, updatedBy string) (*balance.ReconciliationResult, error)
	Sweep(ctx context.Context, userIDs []string, opts SweepOptions) (*SweepReport, error)
	SweepAll(ctx context.Context, opts SweepOptions) (*SweepReport, error)
}

type service struct {
	ledgerRepo  ledger.Repository
	balanceRepo balance.Repository
	locker      Locker
}

func NewService(ledgerRepo ledger.Repository, balanceRepo balance.Repository, locker Locker) Service {
	return &service{
		ledgerRepo:  ledgerRepo,
		balanceRepo: balanceRepo,
		locker:      locker,
	}
}

func (s *service) ComputeBalance(ctx context.Context, userID string, asOf int64) (*balance.Computed, error) {
	entries, err := s.ledgerRepo.ListAllForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	computed := balance.Calculate(entries, asOf)
	return &computed, nil
}

func (s *service) CachedBalance(ctx context.Context, userID string) (*balance.Cached, error) {
	return s.balanceRepo.GetOrCreate(ctx, userID)
}

// ReconcileUser replays a user's ledger, compares the result against the
// cached projection and, when apply is set and the ledger is clean,
// writes the correction under a single-writer lock. Validation
// violations join the inconsistency list and block the correction: a
// structurally suspect ledger is flagged for review, never auto-fixed.
func (s *service) ReconcileUser(ctx context.Context, userID string, asOf int64, apply bool, updatedBy string) (*balance.ReconciliationResult, error) {
	entries, err := s.ledgerRepo.ListAllForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger for user %s: %w", userID, err)
	}

	violations := ledger.Validate(entries)
	if len(violations) > 0 {
		metrics.RecordValidationViolations(len(violations))
	}

	computed := balance.Calculate(entries, asOf)

	cached, err := s.balanceRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached balance for user %s: %w", userID, err)
	}

	inconsistencies := append(violations, describeDrift(computed, *cached)...)
	hasDrift := computed.AvailableCredits != cached.Credits ||
		computed.HeldCredits != cached.HeldCredits ||
		computed.LifetimeCredits != cached.LifetimeCredits

	applied := false
	if apply && hasDrift && len(violations) == 0 {
		if err := s.applyCorrection(ctx, userID, computed, asOf, updatedBy); err != nil {
			return nil, err
		}
		applied = true
	}

	result := balance.Reconcile(userID, computed, *cached, inconsistencies, applied, asOf)
	metrics.RecordReconciliation(outcome(hasDrift, violations), absInt64(result.Deltas.AvailableCredits))

	return &result, nil
}

func (s *service) applyCorrection(ctx context.Context, userID string, computed balance.Computed, asOf int64, updatedBy string) error {
	key := lockKey(userID)

	ok, err := s.locker.Acquire(ctx, key, lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire balance lock for user %s: %w", userID, err)
	}
	if !ok {
		return ErrUserLocked
	}
	defer s.locker.Release(ctx, key)

	patch := balance.PrepareCacheUpdate(computed, asOf)
	if err := s.balanceRepo.Apply(ctx, userID, patch, updatedBy); err != nil {
		return fmt.Errorf("failed to apply balance correction for user %s: %w", userID, err)
	}

	metrics.RecordCorrection(userID, patch.Credits)
	return nil
}

func describeDrift(computed balance.Computed, cached balance.Cached) []string {
	var out []string
	if d := computed.AvailableCredits - cached.Credits; d != 0 {
		out = append(out, fmt.Sprintf("available credits drift of %d", d))
	}
	if d := computed.HeldCredits - cached.HeldCredits; d != 0 {
		out = append(out, fmt.Sprintf("held credits drift of %d", d))
	}
	if d := computed.LifetimeCredits - cached.LifetimeCredits; d != 0 {
		out = append(out, fmt.Sprintf("lifetime credits drift of %d", d))
	}
	return out
}

func outcome(hasDrift bool, violations []string) string {
	switch {
	case len(violations) > 0:
		return "invalid"
	case hasDrift:
		return "drift"
	default:
		return "clean"
	}
}

func lockKey(userID string) string {
	return "reconcile:lock:" + userID
}
