package repository

import (
	"context"
	"time"

	"github.com/openclaw/fleet-worker-go/internal/database"
	"github.com/openclaw/fleet-worker-go/internal/model"
)

type BlockRepository interface {
	Find(ctx context.Context, accountID string, resourceID string) (*model.BlockRecord, error)
	FindActiveByAccountID(ctx context.Context, accountID string, now time.Time) ([]model.BlockRecord, error)
	Upsert(ctx context.Context, params model.UpsertBlockParams) error
	// ClearExpired nulls blocked_until of expired records and keeps block_count.
	ClearExpired(ctx context.Context, now time.Time) (int64, error)
}

type blockRepo struct {
	db database.Querier
}

func NewBlockRepository(db database.Querier) BlockRepository {
	return &blockRepo{db: db}
}

func (r *blockRepo) Find(ctx context.Context, accountID string, resourceID string) (*model.BlockRecord, error) {
	var block model.BlockRecord
	err := r.db.GetContext(ctx, &block, `
		SELECT * FROM resource_blocks
		WHERE account_id = $1 AND resource_id = $2
	`, accountID, resourceID)
	return HandleNotFound(&block, err)
}

func (r *blockRepo) FindActiveByAccountID(ctx context.Context, accountID string, now time.Time) ([]model.BlockRecord, error) {
	var blocks []model.BlockRecord
	err := r.db.SelectContext(ctx, &blocks, `
		SELECT * FROM resource_blocks
		WHERE account_id = $1 AND blocked_until > $2
		ORDER BY resource_id
	`, accountID, now)
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *blockRepo) Upsert(ctx context.Context, params model.UpsertBlockParams) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resource_blocks (account_id, resource_id, blocked_until, block_count, last_reason, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, resource_id) DO UPDATE SET
			blocked_until = GREATEST(COALESCE(resource_blocks.blocked_until, EXCLUDED.blocked_until), EXCLUDED.blocked_until),
			block_count = GREATEST(resource_blocks.block_count, EXCLUDED.block_count),
			last_reason = EXCLUDED.last_reason,
			updated_at = EXCLUDED.updated_at
	`, params.AccountID, params.ResourceID, params.BlockedUntil, params.BlockCount, params.Reason, time.Now())
	return err
}

func (r *blockRepo) ClearExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE resource_blocks SET
			blocked_until = NULL,
			updated_at = $1
		WHERE blocked_until IS NOT NULL AND blocked_until <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
