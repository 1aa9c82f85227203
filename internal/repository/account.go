package repository

import (
	"context"
	"time"

	"github.com/openclaw/fleet-worker-go/internal/database"
	"github.com/openclaw/fleet-worker-go/internal/model"
)

type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*model.Account, error)
	// FindNextDue returns the unlocked account of hostID whose worktime gate
	// elapsed longest ago, or nil when none is due.
	FindNextDue(ctx context.Context, hostID string, now time.Time) (*model.Account, error)
	Lock(ctx context.Context, id string, reason string) error
	SetNextWorktime(ctx context.Context, id string, at time.Time) error
}

type accountRepo struct {
	db database.Querier
}

func NewAccountRepository(db database.Querier) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM accounts WHERE id = $1
	`, id)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) FindNextDue(ctx context.Context, hostID string, now time.Time) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM accounts
		WHERE host_id = $1
		AND NOT locked
		AND (next_worktime IS NULL OR next_worktime <= $2)
		ORDER BY next_worktime ASC NULLS FIRST, id ASC
		LIMIT 1
	`, hostID, now)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) Lock(ctx context.Context, id string, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET
			locked = TRUE,
			lock_reason = $2,
			updated_at = $3
		WHERE id = $1
	`, id, reason, time.Now())
	return err
}

func (r *accountRepo) SetNextWorktime(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET
			next_worktime = $2,
			updated_at = $3
		WHERE id = $1
	`, id, at, time.Now())
	return err
}
