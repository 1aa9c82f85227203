package model

import "time"

type QuotaRecord struct {
	AccountID     string    `db:"account_id" json:"accountId"`
	ResourceClass string    `db:"resource_class" json:"resourceClass"`
	MaxUses       int       `db:"max_uses" json:"maxUses"`
	WindowHours   int       `db:"window_hours" json:"windowHours"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

func (q *QuotaRecord) Window() time.Duration {
	return time.Duration(q.WindowHours) * time.Hour
}

// CycleWindow is the trailing span the cycle allocation applies to.
func (q *QuotaRecord) CycleWindow() time.Duration {
	return q.Window() / 3
}

// CycleAllocation is the per-pass share of the window cap.
func (q *QuotaRecord) CycleAllocation() int {
	return q.MaxUses / 3
}

type UpsertQuotaParams struct {
	AccountID     string
	ResourceClass string
	MaxUses       int
	WindowHours   int
}
