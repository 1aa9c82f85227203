package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/openclaw/fleet-worker-go/internal/model"
)

// fakeStore is an in-memory stand-in for the Postgres tables the worker touches.
type fakeStore struct {
	mu          sync.Mutex
	clock       *fakeClock
	accounts    map[string]*model.Account
	eligibility map[string]map[string]*time.Time
	quotas      map[[2]string]model.QuotaRecord
	blocks      map[[2]string]model.BlockRecord
	dispatches  []model.DispatchRecord
}

func newFakeStore(clock *fakeClock) *fakeStore {
	return &fakeStore{
		clock:       clock,
		accounts:    make(map[string]*model.Account),
		eligibility: make(map[string]map[string]*time.Time),
		quotas:      make(map[[2]string]model.QuotaRecord),
		blocks:      make(map[[2]string]model.BlockRecord),
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func (s *fakeStore) addAccount(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[id] = &model.Account{ID: id, HostID: "host-1"}
}

func (s *fakeStore) account(id string) model.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.accounts[id]
}

func (s *fakeStore) nextEligible(accountID, code string) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eligibility[accountID][code]
}

func (s *fakeStore) records() []model.DispatchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.DispatchRecord(nil), s.dispatches...)
}

type fakeAccountRepo struct{ *fakeStore }

func (r fakeAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r fakeAccountRepo) FindNextDue(ctx context.Context, hostID string, now time.Time) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*model.Account
	for _, a := range r.accounts {
		if a.HostID == hostID && !a.Locked && a.WorktimeElapsed(now) {
			due = append(due, a)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	cp := *due[0]
	return &cp, nil
}

func (r fakeAccountRepo) Lock(ctx context.Context, id string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.accounts[id]
	a.Locked = true
	a.LockReason = &reason
	return nil
}

func (r fakeAccountRepo) SetNextWorktime(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[id].NextWorktime = &at
	return nil
}

type fakeEligibilityRepo struct{ *fakeStore }

func (r fakeEligibilityRepo) EnsureRecords(ctx context.Context, accountID string, codes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byCode, ok := r.eligibility[accountID]
	if !ok {
		byCode = make(map[string]*time.Time)
		r.eligibility[accountID] = byCode
	}
	for _, c := range codes {
		if _, ok := byCode[c]; !ok {
			byCode[c] = nil
		}
	}
	return nil
}

func (r fakeEligibilityRepo) FindByAccountID(ctx context.Context, accountID string) ([]model.EligibilityRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.EligibilityRecord
	for code, at := range r.eligibility[accountID] {
		out = append(out, model.EligibilityRecord{AccountID: accountID, ActionCode: code, NextEligibleAt: at})
	}
	return out, nil
}

func (r fakeEligibilityRepo) Upsert(ctx context.Context, accountID string, code string, nextEligibleAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.eligibility[accountID] == nil {
		r.eligibility[accountID] = make(map[string]*time.Time)
	}
	r.eligibility[accountID][code] = &nextEligibleAt
	return nil
}

type fakeQuotaRepo struct{ *fakeStore }

func (r fakeQuotaRepo) Find(ctx context.Context, accountID string, resourceClass string) (*model.QuotaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotas[[2]string{accountID, resourceClass}]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (r fakeQuotaRepo) Upsert(ctx context.Context, params model.UpsertQuotaParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotas[[2]string{params.AccountID, params.ResourceClass}] = model.QuotaRecord{
		AccountID:     params.AccountID,
		ResourceClass: params.ResourceClass,
		MaxUses:       params.MaxUses,
		WindowHours:   params.WindowHours,
	}
	return nil
}

func (r fakeQuotaRepo) EnsureDefault(ctx context.Context, params model.UpsertQuotaParams) error {
	r.mu.Lock()
	_, ok := r.quotas[[2]string{params.AccountID, params.ResourceClass}]
	r.mu.Unlock()
	if ok {
		return nil
	}
	return r.Upsert(ctx, params)
}

type fakeBlockRepo struct{ *fakeStore }

func (r fakeBlockRepo) Find(ctx context.Context, accountID string, resourceID string) (*model.BlockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blocks[[2]string{accountID, resourceID}]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r fakeBlockRepo) FindActiveByAccountID(ctx context.Context, accountID string, now time.Time) ([]model.BlockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.BlockRecord
	for key, b := range r.blocks {
		if key[0] == accountID && b.BlockedAt(now) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r fakeBlockRepo) Upsert(ctx context.Context, params model.UpsertBlockParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	until := params.BlockedUntil
	reason := params.Reason
	r.blocks[[2]string{params.AccountID, params.ResourceID}] = model.BlockRecord{
		AccountID:    params.AccountID,
		ResourceID:   params.ResourceID,
		BlockedUntil: &until,
		BlockCount:   params.BlockCount,
		LastReason:   &reason,
	}
	return nil
}

func (r fakeBlockRepo) ClearExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key, b := range r.blocks {
		if b.BlockedUntil != nil && !b.BlockedUntil.After(now) {
			b.BlockedUntil = nil
			r.blocks[key] = b
			n++
		}
	}
	return n, nil
}

type fakeDispatchRepo struct{ *fakeStore }

func (r fakeDispatchRepo) Create(ctx context.Context, params model.CreateDispatchParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatches = append(r.dispatches, model.DispatchRecord{
		ID:            int64(len(r.dispatches) + 1),
		AccountID:     params.AccountID,
		ActionCode:    params.ActionCode,
		ResourceClass: params.ResourceClass,
		ResourceID:    params.ResourceID,
		Success:       params.Success,
		Detail:        params.Detail,
		CreatedAt:     r.clock.Now(),
	})
	return nil
}

func (r fakeDispatchRepo) CountSuccessSince(ctx context.Context, accountID string, resourceClass string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.dispatches {
		if d.AccountID == accountID && d.Success && d.ResourceClass != nil &&
			*d.ResourceClass == resourceClass && !d.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r fakeDispatchRepo) FindRecentByAccountID(ctx context.Context, accountID string, limit int) ([]model.DispatchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.DispatchRecord
	for i := len(r.dispatches) - 1; i >= 0 && len(out) < limit; i-- {
		if r.dispatches[i].AccountID == accountID {
			out = append(out, r.dispatches[i])
		}
	}
	return out, nil
}

func (r fakeDispatchRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.dispatches[:0]
	var n int64
	for _, d := range r.dispatches {
		if d.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	r.dispatches = kept
	return n, nil
}
