package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/internal/repo"
	"github.com/prodwell/prodwell-backend/pkg/db"
	"github.com/prodwell/prodwell-backend/pkg/db/models"
	"github.com/prodwell/prodwell-backend/pkg/enums"
	pkgerrors "github.com/prodwell/prodwell-backend/pkg/errors"
	"github.com/prodwell/prodwell-backend/pkg/eventlog"
	"github.com/prodwell/prodwell-backend/pkg/metrics"
	"github.com/prodwell/prodwell-backend/pkg/validate"
)

// Service runs production orders from scheduling to completion. Completing
// an order also advances every demand linked to it.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*ProductionOrderDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductionOrderDTO, error)
	List(ctx context.Context, filter ListFilter) ([]ProductionOrderDTO, error)
	AssignDemand(ctx context.Context, userID, productionOrderID, demandID uuid.UUID) error

	Schedule(ctx context.Context, userID, id uuid.UUID, input ScheduleInput) (*ProductionOrderDTO, error)
	Start(ctx context.Context, userID, id uuid.UUID) (*ProductionOrderDTO, error)
	Pause(ctx context.Context, userID, id uuid.UUID) (*ProductionOrderDTO, error)
	Resume(ctx context.Context, userID, id uuid.UUID) (*ProductionOrderDTO, error)
	Complete(ctx context.Context, userID, id uuid.UUID, actualMinutes *int) (*ProductionOrderDTO, error)
	Cancel(ctx context.Context, userID, id uuid.UUID) (*ProductionOrderDTO, error)
	Fail(ctx context.Context, userID, id uuid.UUID) (*ProductionOrderDTO, error)
}

// CreateInput holds the payload to open a pending production order.
type CreateInput struct {
	OrderID     uuid.UUID `json:"order_id" validate:"required"`
	OrderItemID uuid.UUID `json:"order_item_id" validate:"required"`
	ProductID   uuid.UUID `json:"product_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"gte=1"`
	Priority    string    `json:"priority"`
}

// ScheduleInput holds the planning window and resourcing for an order.
type ScheduleInput struct {
	ScheduledStart   time.Time  `json:"scheduled_start" validate:"required"`
	ScheduledEnd     time.Time  `json:"scheduled_end" validate:"required"`
	AssignedTo       *uuid.UUID `json:"assigned_to"`
	EstimatedMinutes *int       `json:"estimated_minutes" validate:"omitempty,gte=1"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

var _ txRunner = (*db.Client)(nil)

type service struct {
	repo     *Repository
	dbClient txRunner
	events   *eventlog.Recorder
	metrics  *metrics.WorkflowMetrics
}

// NewService constructs the production execution service. Metrics may be
// nil.
func NewService(repository *Repository, dbClient txRunner, recorder *eventlog.Recorder, workflow *metrics.WorkflowMetrics) (Service, error) {
	if repository == nil {
		return nil, fmt.Errorf("production repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("event recorder required")
	}
	return &service{
		repo:     repository,
		dbClient: dbClient,
		events:   recorder,
		metrics:  workflow,
	}, nil
}

// Create opens a pending production order for one order line.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*ProductionOrderDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	priority := enums.ProductionPriorityNormal
	if input.Priority != "" {
		parsed, err := enums.ParseProductionPriority(input.Priority)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown production priority")
		}
		priority = parsed
	}

	order := &models.ProductionOrder{
		OrderID:     input.OrderID,
		OrderItemID: input.OrderItemID,
		ProductID:   input.ProductID,
		Quantity:    input.Quantity,
		Status:      enums.ProductionOrderStatusPending,
		Priority:    priority,
		IsActive:    true,
		CreatedBy:   userID,
		UpdatedBy:   userID,
	}
	if _, err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert production order")
	}
	return newProductionOrderDTO(order), nil
}

// Get returns one production order.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductionOrderDTO, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return newProductionOrderDTO(order), nil
}

// List returns active production orders matching the filter.
func (s *service) List(ctx context.Context, filter ListFilter) ([]ProductionOrderDTO, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list production orders")
	}
	dtos := make([]ProductionOrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *newProductionOrderDTO(&rows[i]))
	}
	return dtos, nil
}

// AssignDemand links a confirmed demand to this production order. A demand
// belongs to at most one production order.
func (s *service) AssignDemand(ctx context.Context, userID, productionOrderID, demandID uuid.UUID) error {
	order, err := s.load(ctx, productionOrderID)
	if err != nil {
		return err
	}
	if order.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeIllegalTransition,
			fmt.Sprintf("cannot assign demand to %s production order", order.Status))
	}

	demand, err := s.repo.FindDemandByID(ctx, demandID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "demand not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load demand")
	}
	if demand.ProductionOrderID != nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "demand is already assigned to a production order")
	}
	if demand.Status != enums.DemandStatusConfirmed {
		return pkgerrors.New(pkgerrors.CodeIllegalTransition,
			fmt.Sprintf("only confirmed demands can be assigned, demand is %s", demand.Status))
	}

	if err := s.repo.LinkDemand(ctx, demandID, productionOrderID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeConflict, "demand was assigned concurrently")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: link demand")
	}
	return nil
}

// Schedule plans the work window. Only pending orders are schedulable; a
// scheduled order may be re-planned until it starts.
func (s *service) Schedule(ctx context.Context, userID, id uuid.UUID, input ScheduleInput) (*ProductionOrderDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if !input.ScheduledEnd.After(input.ScheduledStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled_end must be after scheduled_start")
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.ProductionOrderStatusPending && order.Status != enums.ProductionOrderStatusScheduled {
		return nil, s.rejectTransition(order, "schedule")
	}

	order.Status = enums.ProductionOrderStatusScheduled
	order.ScheduledStart = &input.ScheduledStart
	order.ScheduledEnd = &input.ScheduledEnd
	order.AssignedTo = input.AssignedTo
	order.EstimatedMinutes = input.EstimatedMinutes
	order.UpdatedBy = userID

	return s.persistTransition(ctx, userID, order, "schedule", enums.EventProductionScheduled, map[string]any{
		"scheduled_start": input.ScheduledStart,
		"scheduled_end":   input.ScheduledEnd,
	})
}

// Start begins execution and stamps the actual start time.
func (s *service) Start(ctx context.Context, userID, id uuid.UUID) (*ProductionOrderDTO, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanStart() {
		return nil, s.rejectTransition(order, "start")
	}

	now := time.Now()
	order.Status = enums.ProductionOrderStatusInProgress
	order.ActualStart = &now
	order.UpdatedBy = userID
	return s.persistTransition(ctx, userID, order, "start", enums.EventProductionStarted, nil)
}

// Pause suspends a running order without losing its start stamp.
func (s *service) Pause(ctx context.Context, userID, id uuid.UUID) (*ProductionOrderDTO, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.ProductionOrderStatusInProgress {
		return nil, s.rejectTransition(order, "pause")
	}

	order.Status = enums.ProductionOrderStatusPaused
	order.UpdatedBy = userID
	return s.persistTransition(ctx, userID, order, "pause", enums.EventProductionPaused, nil)
}

// Resume continues a paused order.
func (s *service) Resume(ctx context.Context, userID, id uuid.UUID) (*ProductionOrderDTO, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.ProductionOrderStatusPaused {
		return nil, s.rejectTransition(order, "resume")
	}

	order.Status = enums.ProductionOrderStatusInProgress
	order.UpdatedBy = userID
	return s.persistTransition(ctx, userID, order, "resume", enums.EventProductionResumed, nil)
}

// Complete finishes the order, records the actual duration and marks every
// linked confirmed demand as produced. When no explicit duration is given
// it is derived as whole elapsed minutes between the actual stamps.
func (s *service) Complete(ctx context.Context, userID, id uuid.UUID, actualMinutes *int) (*ProductionOrderDTO, error) {
	if actualMinutes != nil && *actualMinutes < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actual minutes must be non-negative")
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.ProductionOrderStatusInProgress && order.Status != enums.ProductionOrderStatusPaused {
		return nil, s.rejectTransition(order, "complete")
	}

	pending, err := s.repo.CountUnprocessedCompositions(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count unprocessed compositions")
	}
	if pending > 0 {
		s.metrics.IncRejected("production_order", "complete")
		return nil, pkgerrors.New(pkgerrors.CodeIllegalTransition,
			"linked demands still have unprocessed composition steps").
			WithDetails(map[string]any{"unprocessed_compositions": pending})
	}

	now := time.Now()
	order.Status = enums.ProductionOrderStatusCompleted
	order.ActualEnd = &now
	order.UpdatedBy = userID
	if actualMinutes != nil {
		order.ActualMinutes = actualMinutes
	} else if elapsed, ok := order.ElapsedMinutes(); ok {
		order.ActualMinutes = &elapsed
	}

	var produced int64
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		bound := s.repo.WithTx(tx)
		if _, err := bound.Update(ctx, order); err != nil {
			if errors.Is(err, repo.ErrStaleRow) {
				return pkgerrors.New(pkgerrors.CodeConcurrentModification, "production order was modified concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update production order")
		}
		produced, err = bound.MarkLinkedDemandsProduced(ctx, order.ID, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark linked demands produced")
		}
		return s.events.Record(ctx, tx, eventlog.DomainEvent{
			EventType:     enums.EventProductionCompleted,
			AggregateType: enums.AggregateProductionOrder,
			AggregateID:   order.ID,
			Actor:         &eventlog.ActorRef{UserID: userID},
			Version:       1,
			Data: map[string]any{
				"actual_minutes":   order.ActualMinutes,
				"demands_produced": produced,
			},
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete production order")
	}

	s.metrics.IncTransition("production_order", "complete")
	return s.Get(ctx, id)
}

// Cancel aborts the order from any open state.
func (s *service) Cancel(ctx context.Context, userID, id uuid.UUID) (*ProductionOrderDTO, error) {
	return s.close(ctx, userID, id, enums.ProductionOrderStatusCancelled, enums.EventProductionCancelled, "cancel")
}

// Fail records that the order cannot be finished.
func (s *service) Fail(ctx context.Context, userID, id uuid.UUID) (*ProductionOrderDTO, error) {
	return s.close(ctx, userID, id, enums.ProductionOrderStatusFailed, enums.EventProductionFailed, "fail")
}

func (s *service) close(ctx context.Context, userID, id uuid.UUID, to enums.ProductionOrderStatus, event enums.EventType, name string) (*ProductionOrderDTO, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, s.rejectTransition(order, name)
	}

	order.Status = to
	order.UpdatedBy = userID
	return s.persistTransition(ctx, userID, order, name, event, nil)
}

func (s *service) persistTransition(ctx context.Context, userID uuid.UUID, order *models.ProductionOrder, name string, event enums.EventType, data map[string]any) (*ProductionOrderDTO, error) {
	if data == nil {
		data = map[string]any{}
	}
	data["status"] = order.Status.String()

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Update(ctx, order); err != nil {
			if errors.Is(err, repo.ErrStaleRow) {
				return pkgerrors.New(pkgerrors.CodeConcurrentModification, "production order was modified concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update production order")
		}
		return s.events.Record(ctx, tx, eventlog.DomainEvent{
			EventType:     event,
			AggregateType: enums.AggregateProductionOrder,
			AggregateID:   order.ID,
			Actor:         &eventlog.ActorRef{UserID: userID},
			Version:       1,
			Data:          data,
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name)
	}

	s.metrics.IncTransition("production_order", name)
	return s.Get(ctx, order.ID)
}

func (s *service) rejectTransition(order *models.ProductionOrder, name string) error {
	s.metrics.IncRejected("production_order", name)
	return pkgerrors.New(pkgerrors.CodeIllegalTransition,
		fmt.Sprintf("cannot %s production order in status %s", name, order.Status)).
		WithDetails(map[string]any{"status": order.Status.String()})
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.ProductionOrder, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "production order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load production order")
	}
	return order, nil
}
