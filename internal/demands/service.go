package demands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/internal/groups"
	"github.com/prodwell/prodwell-backend/internal/repo"
	"github.com/prodwell/prodwell-backend/pkg/db"
	"github.com/prodwell/prodwell-backend/pkg/db/models"
	"github.com/prodwell/prodwell-backend/pkg/enums"
	pkgerrors "github.com/prodwell/prodwell-backend/pkg/errors"
	"github.com/prodwell/prodwell-backend/pkg/eventlog"
	"github.com/prodwell/prodwell-backend/pkg/metrics"
)

// Service advances demands through their strictly linear lifecycle and
// expands them into processable composition rows. There is no cancel
// transition: a demand follows its confirmed order line to delivery.
type Service interface {
	GetDemand(ctx context.Context, demandID uuid.UUID) (*DemandDTO, error)
	ListDemands(ctx context.Context, filter ListFilter) ([]DemandDTO, error)

	Confirm(ctx context.Context, userID, demandID uuid.UUID) (*DemandDTO, error)
	MarkAsProduced(ctx context.Context, userID, demandID uuid.UUID) (*DemandDTO, error)
	MarkAsEnding(ctx context.Context, userID, demandID uuid.UUID) (*DemandDTO, error)
	MarkAsDelivered(ctx context.Context, userID, demandID uuid.UUID) (*DemandDTO, error)

	Expand(ctx context.Context, userID, demandID uuid.UUID, input ExpandInput) (*DemandDTO, error)
	StartProcessing(ctx context.Context, userID, compositionID uuid.UUID) (*CompositionDTO, error)
	CompleteProcessing(ctx context.Context, userID, compositionID uuid.UUID) (*CompositionDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

var _ txRunner = (*db.Client)(nil)

type service struct {
	repo         *Repository
	dbClient     txRunner
	events       *eventlog.Recorder
	configurator groups.Service
	metrics      *metrics.WorkflowMetrics
}

// NewService constructs the demand lifecycle service. The configurator
// checks group member selections during expansion. Metrics may be nil.
func NewService(repository *Repository, dbClient txRunner, recorder *eventlog.Recorder, configurator groups.Service, workflow *metrics.WorkflowMetrics) (Service, error) {
	if repository == nil {
		return nil, fmt.Errorf("demands repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("event recorder required")
	}
	if configurator == nil {
		return nil, fmt.Errorf("group configurator required")
	}
	return &service{
		repo:         repository,
		dbClient:     dbClient,
		events:       recorder,
		configurator: configurator,
		metrics:      workflow,
	}, nil
}

// GetDemand returns the demand with its composition rows.
func (s *service) GetDemand(ctx context.Context, demandID uuid.UUID) (*DemandDTO, error) {
	demand, err := s.loadDemand(ctx, demandID)
	if err != nil {
		return nil, err
	}
	return newDemandDTO(demand, time.Now()), nil
}

// ListDemands returns active demands matching the filter.
func (s *service) ListDemands(ctx context.Context, filter ListFilter) ([]DemandDTO, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list demands")
	}
	now := time.Now()
	dtos := make([]DemandDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *newDemandDTO(&rows[i], now))
	}
	return dtos, nil
}

// Confirm moves a pending demand into production scope and stamps its
// start time.
func (s *service) Confirm(ctx context.Context, userID, demandID uuid.UUID) (*DemandDTO, error) {
	return s.advance(ctx, userID, demandID, enums.DemandStatusConfirmed, enums.EventDemandConfirmed, "confirm",
		func(demand *models.Demand, now time.Time) {
			demand.StartedAt = &now
		})
}

// MarkAsProduced records that production of the demand finished.
func (s *service) MarkAsProduced(ctx context.Context, userID, demandID uuid.UUID) (*DemandDTO, error) {
	return s.advance(ctx, userID, demandID, enums.DemandStatusProduced, enums.EventDemandProduced, "mark_as_produced", nil)
}

// MarkAsEnding records that the demand entered the delivery stage.
func (s *service) MarkAsEnding(ctx context.Context, userID, demandID uuid.UUID) (*DemandDTO, error) {
	return s.advance(ctx, userID, demandID, enums.DemandStatusEnding, enums.EventDemandEnding, "mark_as_ending", nil)
}

// MarkAsDelivered closes the demand and stamps its completion time.
func (s *service) MarkAsDelivered(ctx context.Context, userID, demandID uuid.UUID) (*DemandDTO, error) {
	return s.advance(ctx, userID, demandID, enums.DemandStatusDelivered, enums.EventDemandDelivered, "mark_as_delivered",
		func(demand *models.Demand, now time.Time) {
			demand.CompletedAt = &now
		})
}

// advance applies one step of the linear lifecycle. The target's
// predecessor is the only status the demand may currently hold.
func (s *service) advance(ctx context.Context, userID, demandID uuid.UUID, to enums.DemandStatus, event enums.EventType, name string, stamp func(demand *models.Demand, now time.Time)) (*DemandDTO, error) {
	demand, err := s.loadDemand(ctx, demandID)
	if err != nil {
		return nil, err
	}

	required, ok := to.Predecessor()
	if !ok || demand.Status != required {
		s.metrics.IncRejected("demand", name)
		return nil, pkgerrors.New(pkgerrors.CodeIllegalTransition,
			fmt.Sprintf("cannot %s demand in status %s", name, demand.Status)).
			WithDetails(map[string]any{"status": demand.Status.String()})
	}

	now := time.Now()
	from := demand.Status
	demand.Status = to
	demand.UpdatedBy = userID
	if stamp != nil {
		stamp(demand, now)
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Update(ctx, demand); err != nil {
			if errors.Is(err, repo.ErrStaleRow) {
				return pkgerrors.New(pkgerrors.CodeConcurrentModification, "demand was modified concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update demand")
		}
		return s.events.Record(ctx, tx, eventlog.DomainEvent{
			EventType:     event,
			AggregateType: enums.AggregateDemand,
			AggregateID:   demand.ID,
			Actor:         &eventlog.ActorRef{UserID: userID},
			Version:       1,
			Data: map[string]any{
				"from": from.String(),
				"to":   to.String(),
			},
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name)
	}

	s.metrics.IncTransition("demand", name)
	return s.GetDemand(ctx, demandID)
}

// StartProcessing stamps the begin of work on one composition row. Rows
// must be worked strictly in processing order.
func (s *service) StartProcessing(ctx context.Context, userID, compositionID uuid.UUID) (*CompositionDTO, error) {
	row, err := s.loadComposition(ctx, compositionID)
	if err != nil {
		return nil, err
	}
	if row.ProcessingStartedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeIllegalTransition, "composition row already started")
	}

	siblings, err := s.repo.ListCompositions(ctx, row.DemandID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list composition rows")
	}
	for i := range siblings {
		sibling := &siblings[i]
		if sibling.ProcessingOrder < row.ProcessingOrder && !sibling.IsProcessed() {
			return nil, pkgerrors.New(pkgerrors.CodeIllegalTransition,
				"earlier composition rows must be completed first").
				WithDetails(map[string]any{"blocking_order": sibling.ProcessingOrder})
		}
	}

	now := time.Now()
	row.ProcessingStartedAt = &now
	if err := s.repo.UpdateCompositionStamps(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update composition row")
	}
	return newCompositionDTO(row), nil
}

// CompleteProcessing stamps the end of work on one composition row. A
// completed row is immutable.
func (s *service) CompleteProcessing(ctx context.Context, userID, compositionID uuid.UUID) (*CompositionDTO, error) {
	row, err := s.loadComposition(ctx, compositionID)
	if err != nil {
		return nil, err
	}
	if row.ProcessingStartedAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeIllegalTransition, "composition row has not been started")
	}
	if row.IsProcessed() {
		return nil, pkgerrors.New(pkgerrors.CodeIllegalTransition, "composition row is already completed")
	}

	now := time.Now()
	row.ProcessingCompletedAt = &now
	if err := s.repo.UpdateCompositionStamps(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update composition row")
	}
	return newCompositionDTO(row), nil
}

func (s *service) loadDemand(ctx context.Context, demandID uuid.UUID) (*models.Demand, error) {
	demand, err := s.repo.FindByID(ctx, demandID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "demand not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load demand")
	}
	return demand, nil
}

func (s *service) loadComposition(ctx context.Context, compositionID uuid.UUID) (*models.ProductComposition, error) {
	row, err := s.repo.FindCompositionByID(ctx, compositionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "composition row not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load composition row")
	}
	return row, nil
}
