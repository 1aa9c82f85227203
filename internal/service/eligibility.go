package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/openclaw/fleet-worker-go/internal/model"
	"github.com/openclaw/fleet-worker-go/internal/repository"
)

type EligibilityService struct {
	repo repository.EligibilityRepository
	rng  *rand.Rand
	now  func() time.Time
}

func NewEligibilityService(repo repository.EligibilityRepository, rng *rand.Rand) *EligibilityService {
	return &EligibilityService{repo: repo, rng: rng, now: time.Now}
}

// Snapshot loads the account's records for the active kinds, first creating an
// eligible-now record for every one that has none. Records of kinds no longer
// in the catalog are left out.
func (s *EligibilityService) Snapshot(ctx context.Context, accountID string, kinds []model.ActionKind) (map[string]model.EligibilityRecord, error) {
	codes := make([]string, 0, len(kinds))
	active := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		if k.IsActive() {
			codes = append(codes, k.Code)
			active[k.Code] = true
		}
	}
	if err := s.repo.EnsureRecords(ctx, accountID, codes); err != nil {
		return nil, fmt.Errorf("ensure eligibility records: %w", err)
	}

	records, err := s.repo.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load eligibility records: %w", err)
	}

	byCode := make(map[string]model.EligibilityRecord, len(codes))
	for _, r := range records {
		if active[r.ActionCode] {
			byCode[r.ActionCode] = r
		}
	}
	return byCode, nil
}

// EligibleNow maps each code in records to whether its cooldown has passed.
func (s *EligibilityService) EligibleNow(records map[string]model.EligibilityRecord) map[string]bool {
	now := s.now()
	eligible := make(map[string]bool, len(records))
	for code, r := range records {
		eligible[code] = r.EligibleAt(now)
	}
	return eligible
}

// NextEligibleAt returns the earliest future cooldown end among records.
func (s *EligibilityService) NextEligibleAt(records map[string]model.EligibilityRecord) (time.Time, bool) {
	now := s.now()
	var earliest time.Time
	found := false
	for _, r := range records {
		if r.NextEligibleAt == nil || !r.NextEligibleAt.After(now) {
			continue
		}
		if !found || r.NextEligibleAt.Before(earliest) {
			earliest = *r.NextEligibleAt
			found = true
		}
	}
	return earliest, found
}

// Reschedule moves kind's next eligible time to a uniform whole number of
// minutes inside its interval range.
func (s *EligibilityService) Reschedule(ctx context.Context, accountID string, kind model.ActionKind) (time.Time, error) {
	minutes := s.drawMinutes(kind.Interval)
	next := s.now().Add(time.Duration(minutes) * time.Minute)
	if err := s.repo.Upsert(ctx, accountID, kind.Code, next); err != nil {
		return time.Time{}, fmt.Errorf("reschedule %s: %w", kind.Code, err)
	}
	return next, nil
}

func (s *EligibilityService) drawMinutes(r model.IntervalRange) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + s.rng.IntN(r.Max-r.Min+1)
}
