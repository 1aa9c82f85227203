package repository

import (
	"context"
	"time"

	"github.com/openclaw/fleet-worker-go/internal/database"
	"github.com/openclaw/fleet-worker-go/internal/model"
)

type QuotaRepository interface {
	Find(ctx context.Context, accountID string, resourceClass string) (*model.QuotaRecord, error)
	Upsert(ctx context.Context, params model.UpsertQuotaParams) error
	// EnsureDefault inserts params only when the account has no record for the class.
	EnsureDefault(ctx context.Context, params model.UpsertQuotaParams) error
}

type quotaRepo struct {
	db database.Querier
}

func NewQuotaRepository(db database.Querier) QuotaRepository {
	return &quotaRepo{db: db}
}

func (r *quotaRepo) Find(ctx context.Context, accountID string, resourceClass string) (*model.QuotaRecord, error) {
	var quota model.QuotaRecord
	err := r.db.GetContext(ctx, &quota, `
		SELECT * FROM quotas
		WHERE account_id = $1 AND resource_class = $2
	`, accountID, resourceClass)
	return HandleNotFound(&quota, err)
}

func (r *quotaRepo) Upsert(ctx context.Context, params model.UpsertQuotaParams) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO quotas (account_id, resource_class, max_uses, window_hours, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, resource_class) DO UPDATE SET
			max_uses = EXCLUDED.max_uses,
			window_hours = EXCLUDED.window_hours,
			updated_at = EXCLUDED.updated_at
	`, params.AccountID, params.ResourceClass, params.MaxUses, params.WindowHours, time.Now())
	return err
}

func (r *quotaRepo) EnsureDefault(ctx context.Context, params model.UpsertQuotaParams) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO quotas (account_id, resource_class, max_uses, window_hours, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, resource_class) DO NOTHING
	`, params.AccountID, params.ResourceClass, params.MaxUses, params.WindowHours, time.Now())
	return err
}
