package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prodwell/prodwell-backend/pkg/enums"
)

// EventRecord is one domain event written in the same transaction as the
// state change it describes. The table is an append-only audit trail.
type EventRecord struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType     enums.EventType     `gorm:"column:event_type;not null"`
	AggregateType enums.AggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID           `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       []byte              `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (EventRecord) TableName() string {
	return "event_records"
}
