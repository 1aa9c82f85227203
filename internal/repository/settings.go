package repository

import (
	"context"

	"github.com/openclaw/fleet-worker-go/internal/database"
)

type SettingsRepository interface {
	// Get returns nil when the key is not set.
	Get(ctx context.Context, key string) (*string, error)
	Set(ctx context.Context, key string, value string) error
}

type settingsRepo struct {
	db database.Querier
}

func NewSettingsRepository(db database.Querier) SettingsRepository {
	return &settingsRepo{db: db}
}

func (r *settingsRepo) Get(ctx context.Context, key string) (*string, error) {
	var value string
	err := r.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = $1`, key)
	return HandleNotFound(&value, err)
}

func (r *settingsRepo) Set(ctx context.Context, key string, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	return err
}
