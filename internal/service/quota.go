package service

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/openclaw/fleet-worker-go/internal/errors"
	"github.com/openclaw/fleet-worker-go/internal/model"
	"github.com/openclaw/fleet-worker-go/internal/repository"
)

type QuotaStatus struct {
	Allowed            bool
	RemainingInWindow  int
	AvailableThisCycle int
}

// QuotaService enforces a hard cap per trailing window plus a pacing share of
// floor(maxUses/3) per trailing third of the window. Both windows slide; there
// is no calendar reset.
type QuotaService struct {
	quotas     repository.QuotaRepository
	dispatches repository.DispatchRepository
	now        func() time.Time
}

func NewQuotaService(quotas repository.QuotaRepository, dispatches repository.DispatchRepository) *QuotaService {
	return &QuotaService{quotas: quotas, dispatches: dispatches, now: time.Now}
}

// CanConsume fails closed when the account has no quota for resourceClass.
func (s *QuotaService) CanConsume(ctx context.Context, accountID string, resourceClass string) (QuotaStatus, error) {
	quota, err := s.quotas.Find(ctx, accountID, resourceClass)
	if err != nil {
		return QuotaStatus{}, fmt.Errorf("load quota %s: %w", resourceClass, err)
	}
	if quota == nil || quota.WindowHours <= 0 {
		return QuotaStatus{}, nil
	}

	now := s.now()
	usedInWindow, err := s.dispatches.CountSuccessSince(ctx, accountID, resourceClass, now.Add(-quota.Window()))
	if err != nil {
		return QuotaStatus{}, fmt.Errorf("count dispatches %s: %w", resourceClass, err)
	}
	usedInCycle, err := s.dispatches.CountSuccessSince(ctx, accountID, resourceClass, now.Add(-quota.CycleWindow()))
	if err != nil {
		return QuotaStatus{}, fmt.Errorf("count cycle dispatches %s: %w", resourceClass, err)
	}

	return computeQuotaStatus(quota.MaxUses, quota.CycleAllocation(), usedInWindow, usedInCycle), nil
}

// computeQuotaStatus combines two trailing windows. usedInWindow counts
// successes over the full windowHours span and is capped by maxUses.
// usedInCycle counts successes over the last windowHours/3 and is capped by
// cycleAllocation (maxUses/3).
func computeQuotaStatus(maxUses, cycleAllocation, usedInWindow, usedInCycle int) QuotaStatus {
	remaining := max(0, maxUses-usedInWindow)
	available := max(0, min(cycleAllocation-usedInCycle, remaining))
	return QuotaStatus{
		Allowed:            available > 0,
		RemainingInWindow:  remaining,
		AvailableThisCycle: available,
	}
}

func (s *QuotaService) SetQuota(ctx context.Context, params model.UpsertQuotaParams) error {
	if err := validateQuota(params.ResourceClass, params.MaxUses, params.WindowHours); err != nil {
		return err
	}
	return s.quotas.Upsert(ctx, params)
}

// SeedDefaults gives the account every catalog quota it does not have yet.
func (s *QuotaService) SeedDefaults(ctx context.Context, accountID string, defaults []model.QuotaDefault) error {
	for _, d := range defaults {
		if err := validateQuota(d.Class, d.MaxUses, d.WindowHours); err != nil {
			return err
		}
		err := s.quotas.EnsureDefault(ctx, model.UpsertQuotaParams{
			AccountID:     accountID,
			ResourceClass: d.Class,
			MaxUses:       d.MaxUses,
			WindowHours:   d.WindowHours,
		})
		if err != nil {
			return fmt.Errorf("seed quota %s: %w", d.Class, err)
		}
	}
	return nil
}

func validateQuota(class string, maxUses, windowHours int) error {
	if class == "" {
		return apperrors.InvalidConfig("quota resource class must not be empty")
	}
	if windowHours <= 0 {
		return apperrors.InvalidConfig(fmt.Sprintf("quota %s: windowHours must be positive", class))
	}
	if maxUses < 0 {
		return apperrors.InvalidConfig(fmt.Sprintf("quota %s: maxUses must not be negative", class))
	}
	return nil
}
