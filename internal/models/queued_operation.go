package models

import "encoding/json"

// QueuedOperation represents a state-changing request made while the remote
// CRM was unreachable. It lives in the durable store from successful enqueue
// until its handler confirms delivery.
type QueuedOperation struct {
	Seq        int64           `db:"seq" json:"seq"`
	ID         UUID            `db:"id" json:"id"`
	ActionName string          `db:"action_name" json:"action_name"`
	Payload    json.RawMessage `db:"payload" json:"payload"`
	Attempts   int             `db:"attempts" json:"attempts"`
	LastError  string          `db:"last_error" json:"last_error,omitempty"`
	EnqueuedAt int64           `db:"enqueued_at" json:"enqueued_at"`
}

// TableName returns the table name for QueuedOperation.
func (QueuedOperation) TableName() string {
	return "queued_operations"
}
