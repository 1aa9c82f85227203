package model

import "time"

type DispatchRecord struct {
	ID            int64     `db:"id" json:"id"`
	AccountID     string    `db:"account_id" json:"accountId"`
	ActionCode    string    `db:"action_code" json:"actionCode"`
	ResourceClass *string   `db:"resource_class" json:"resourceClass,omitempty"`
	ResourceID    *string   `db:"resource_id" json:"resourceId,omitempty"`
	Success       bool      `db:"success" json:"success"`
	Detail        string    `db:"detail" json:"detail"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

type CreateDispatchParams struct {
	AccountID     string
	ActionCode    string
	ResourceClass *string
	ResourceID    *string
	Success       bool
	Detail        string
}
