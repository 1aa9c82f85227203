package model

import "time"

type EligibilityRecord struct {
	AccountID      string     `db:"account_id" json:"accountId"`
	ActionCode     string     `db:"action_code" json:"actionCode"`
	NextEligibleAt *time.Time `db:"next_eligible_at" json:"nextEligibleAt,omitempty"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// EligibleAt is true when the record has no cooldown or it has passed.
func (r *EligibilityRecord) EligibleAt(now time.Time) bool {
	return r.NextEligibleAt == nil || !r.NextEligibleAt.After(now)
}
