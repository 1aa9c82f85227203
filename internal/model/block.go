package model

import "time"

type BlockRecord struct {
	AccountID    string     `db:"account_id" json:"accountId"`
	ResourceID   string     `db:"resource_id" json:"resourceId"`
	BlockedUntil *time.Time `db:"blocked_until" json:"blockedUntil,omitempty"`
	BlockCount   int        `db:"block_count" json:"blockCount"`
	LastReason   *string    `db:"last_reason" json:"lastReason,omitempty"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

func (b *BlockRecord) BlockedAt(now time.Time) bool {
	return b.BlockedUntil != nil && b.BlockedUntil.After(now)
}

type UpsertBlockParams struct {
	AccountID    string
	ResourceID   string
	BlockedUntil time.Time
	BlockCount   int
	Reason       string
}
