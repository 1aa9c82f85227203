package model

import "time"

type Heartbeat struct {
	HostID     string    `db:"host_id" json:"hostId"`
	InstanceID string    `db:"instance_id" json:"instanceId"`
	Version    string    `db:"version" json:"version"`
	AccountID  *string   `db:"account_id" json:"accountId,omitempty"`
	ActionCode *string   `db:"action_code" json:"actionCode,omitempty"`
	BeatAt     time.Time `db:"beat_at" json:"beatAt"`
}
