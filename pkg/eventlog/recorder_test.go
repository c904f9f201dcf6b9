package eventlog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/pkg/db/models"
	"github.com/prodwell/prodwell-backend/pkg/enums"
)

func setupEventTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS event_records (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func TestRecordWritesEnvelope(t *testing.T) {
	db := setupEventTestDB(t)
	recorder := NewRecorder()
	demandID := uuid.New()
	actor := uuid.New()

	tx := db.Begin()
	require.NoError(t, tx.Error)
	err := recorder.Record(context.Background(), tx, DomainEvent{
		EventType:     enums.EventDemandExpanded,
		AggregateType: enums.AggregateDemand,
		AggregateID:   demandID,
		Version:       1,
		Actor:         &ActorRef{UserID: actor},
		Data:          map[string]any{"rows": 3},
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)

	rows, err := ListForAggregate(context.Background(), db, enums.AggregateDemand, demandID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, enums.EventDemandExpanded, rows[0].EventType)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, actor, envelope.Actor.UserID)
	require.NotEmpty(t, envelope.EventID)
	require.False(t, envelope.OccurredAt.IsZero())
}

func TestRecordRequiresTransaction(t *testing.T) {
	recorder := NewRecorder()
	err := recorder.Record(context.Background(), nil, DomainEvent{})
	require.Error(t, err)
}

func TestRecordRollsBackWithTransaction(t *testing.T) {
	db := setupEventTestDB(t)
	recorder := NewRecorder()
	demandID := uuid.New()

	tx := db.Begin()
	require.NoError(t, tx.Error)
	require.NoError(t, recorder.Record(context.Background(), tx, DomainEvent{
		EventType:     enums.EventDemandConfirmed,
		AggregateType: enums.AggregateDemand,
		AggregateID:   demandID,
		Version:       1,
		Data:          map[string]any{},
	}))
	require.NoError(t, tx.Rollback().Error)

	var count int64
	require.NoError(t, db.Model(&models.EventRecord{}).Count(&count).Error)
	require.Zero(t, count)
}
