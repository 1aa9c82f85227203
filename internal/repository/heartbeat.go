package repository

import (
	"context"

	"github.com/openclaw/fleet-worker-go/internal/database"
	"github.com/openclaw/fleet-worker-go/internal/model"
)

type HeartbeatRepository interface {
	Upsert(ctx context.Context, hb model.Heartbeat) error
	FindByHostID(ctx context.Context, hostID string) (*model.Heartbeat, error)
}

type heartbeatRepo struct {
	db database.Querier
}

func NewHeartbeatRepository(db database.Querier) HeartbeatRepository {
	return &heartbeatRepo{db: db}
}

func (r *heartbeatRepo) Upsert(ctx context.Context, hb model.Heartbeat) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO host_heartbeats (host_id, instance_id, version, account_id, action_code, beat_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (host_id) DO UPDATE SET
			instance_id = EXCLUDED.instance_id,
			version = EXCLUDED.version,
			account_id = EXCLUDED.account_id,
			action_code = EXCLUDED.action_code,
			beat_at = EXCLUDED.beat_at
	`, hb.HostID, hb.InstanceID, hb.Version, hb.AccountID, hb.ActionCode, hb.BeatAt)
	return err
}

func (r *heartbeatRepo) FindByHostID(ctx context.Context, hostID string) (*model.Heartbeat, error) {
	var hb model.Heartbeat
	err := r.db.GetContext(ctx, &hb, `
		SELECT * FROM host_heartbeats WHERE host_id = $1
	`, hostID)
	return HandleNotFound(&hb, err)
}
