package model

import (
	"encoding/json"
	"time"
)

type AdminCommand struct {
	ID          string           `db:"id" json:"id"`
	HostID      string           `db:"host_id" json:"hostId"`
	Type        CommandType      `db:"type" json:"type"`
	Payload     *json.RawMessage `db:"payload" json:"payload,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
	AcceptedAt  *time.Time       `db:"accepted_at" json:"acceptedAt,omitempty"`
	CompletedAt *time.Time       `db:"completed_at" json:"completedAt,omitempty"`
	Result      *string          `db:"result" json:"result,omitempty"`
}

type CreateAdminCommandParams struct {
	HostID  string
	Type    CommandType
	Payload json.RawMessage
}

type PausePayload struct {
	Minutes int `json:"minutes"`
}

type RunAccountPayload struct {
	AccountID string `json:"accountId"`
}
