package model

import (
	"time"
)

type Account struct {
	ID           string     `db:"id" json:"id"`
	HostID       string     `db:"host_id" json:"hostId"`
	Locked       bool       `db:"locked" json:"locked"`
	LockReason   *string    `db:"lock_reason" json:"lockReason,omitempty"`
	NextWorktime *time.Time `db:"next_worktime" json:"nextWorktime,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// WorktimeElapsed reports whether the account-level gate allows work at now.
func (a *Account) WorktimeElapsed(now time.Time) bool {
	return a.NextWorktime == nil || !a.NextWorktime.After(now)
}
