package repository

import (
	"context"
	"time"

	"github.com/openclaw/fleet-worker-go/internal/database"
	"github.com/openclaw/fleet-worker-go/internal/model"
)

type DispatchRepository interface {
	Create(ctx context.Context, params model.CreateDispatchParams) error
	// CountSuccessSince counts successful dispatches of resourceClass at or after since.
	CountSuccessSince(ctx context.Context, accountID string, resourceClass string, since time.Time) (int, error)
	FindRecentByAccountID(ctx context.Context, accountID string, limit int) ([]model.DispatchRecord, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type dispatchRepo struct {
	db database.Querier
}

func NewDispatchRepository(db database.Querier) DispatchRepository {
	return &dispatchRepo{db: db}
}

func (r *dispatchRepo) Create(ctx context.Context, params model.CreateDispatchParams) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dispatch_history (account_id, action_code, resource_class, resource_id, success, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, params.AccountID, params.ActionCode, params.ResourceClass, params.ResourceID, params.Success, params.Detail)
	return err
}

func (r *dispatchRepo) CountSuccessSince(ctx context.Context, accountID string, resourceClass string, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM dispatch_history
		WHERE account_id = $1
		AND resource_class = $2
		AND success
		AND created_at >= $3
	`, accountID, resourceClass, since)
	return count, err
}

func (r *dispatchRepo) FindRecentByAccountID(ctx context.Context, accountID string, limit int) ([]model.DispatchRecord, error) {
	var records []model.DispatchRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM dispatch_history
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *dispatchRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM dispatch_history WHERE created_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
