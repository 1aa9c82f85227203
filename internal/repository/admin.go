package repository

import (
	"context"
	"time"

	"github.com/openclaw/fleet-worker-go/internal/database"
	"github.com/openclaw/fleet-worker-go/internal/model"
)

type AdminCommandRepository interface {
	// FindPending returns the oldest uncompleted command addressed to hostID.
	FindPending(ctx context.Context, hostID string) (*model.AdminCommand, error)
	Create(ctx context.Context, params model.CreateAdminCommandParams) (*model.AdminCommand, error)
	MarkAccepted(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, result string) error
	DeleteCompletedBefore(ctx context.Context, before time.Time) (int64, error)
}

type adminCommandRepo struct {
	db database.Querier
}

func NewAdminCommandRepository(db database.Querier) AdminCommandRepository {
	return &adminCommandRepo{db: db}
}

func (r *adminCommandRepo) FindPending(ctx context.Context, hostID string) (*model.AdminCommand, error) {
	var cmd model.AdminCommand
	err := r.db.GetContext(ctx, &cmd, `
		SELECT * FROM admin_commands
		WHERE host_id = $1 AND completed_at IS NULL
		ORDER BY created_at ASC
		LIMIT 1
	`, hostID)
	return HandleNotFound(&cmd, err)
}

func (r *adminCommandRepo) Create(ctx context.Context, params model.CreateAdminCommandParams) (*model.AdminCommand, error) {
	var payload *string
	if params.Payload != nil {
		p := string(params.Payload)
		payload = &p
	}

	var cmd model.AdminCommand
	err := r.db.GetContext(ctx, &cmd, `
		INSERT INTO admin_commands (host_id, type, payload)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.HostID, params.Type, payload)
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

func (r *adminCommandRepo) MarkAccepted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admin_commands SET accepted_at = COALESCE(accepted_at, $2)
		WHERE id = $1
	`, id, time.Now())
	return err
}

func (r *adminCommandRepo) MarkCompleted(ctx context.Context, id string, result string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admin_commands SET completed_at = $2, result = $3
		WHERE id = $1
	`, id, time.Now(), result)
	return err
}

func (r *adminCommandRepo) DeleteCompletedBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM admin_commands
		WHERE completed_at IS NOT NULL AND completed_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
