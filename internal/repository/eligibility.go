package repository

import (
	"context"
	"time"

	"github.com/lib/pq"

	"github.com/openclaw/fleet-worker-go/internal/database"
	"github.com/openclaw/fleet-worker-go/internal/model"
)

type EligibilityRepository interface {
	// EnsureRecords creates an eligible-now record for every code the account lacks.
	EnsureRecords(ctx context.Context, accountID string, codes []string) error
	FindByAccountID(ctx context.Context, accountID string) ([]model.EligibilityRecord, error)
	Upsert(ctx context.Context, accountID string, code string, nextEligibleAt time.Time) error
}

type eligibilityRepo struct {
	db database.Querier
}

func NewEligibilityRepository(db database.Querier) EligibilityRepository {
	return &eligibilityRepo{db: db}
}

func (r *eligibilityRepo) EnsureRecords(ctx context.Context, accountID string, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO action_eligibility (account_id, action_code, next_eligible_at)
		SELECT $1, code, NULL FROM unnest($2::text[]) AS code
		ON CONFLICT (account_id, action_code) DO NOTHING
	`, accountID, pq.Array(codes))
	return err
}

func (r *eligibilityRepo) FindByAccountID(ctx context.Context, accountID string) ([]model.EligibilityRecord, error) {
	var records []model.EligibilityRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM action_eligibility
		WHERE account_id = $1
		ORDER BY action_code
	`, accountID)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *eligibilityRepo) Upsert(ctx context.Context, accountID string, code string, nextEligibleAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO action_eligibility (account_id, action_code, next_eligible_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, action_code) DO UPDATE SET
			next_eligible_at = EXCLUDED.next_eligible_at,
			updated_at = EXCLUDED.updated_at
	`, accountID, code, nextEligibleAt, time.Now())
	return err
}
