package models

import (
	"time"

	"taquilla/src/types"

	"github.com/google/uuid"
)

// FulfillmentJob is one durable unit of post-payment work. Rows are the
// outbox consumed by the worker pool; a job that exhausts its attempts is
// parked as dead and only an operator resend touches the movement again.
type FulfillmentJob struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	MovementID  string          `gorm:"index" json:"movement_id"`
	Status      types.JobStatus `gorm:"default:'queued'" json:"status"`
	Attempts    uint            `json:"attempts"`
	MaxAttempts uint            `gorm:"default:5" json:"max_attempts"`
	RunAfter    time.Time       `json:"run_after"`
	LastError   *string         `json:"last_error,omitempty"`
	Payload     types.JSONB     `gorm:"type:jsonb" json:"-"`

	types.Timestamps
}
