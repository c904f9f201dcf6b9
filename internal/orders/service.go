package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

// Service owns the sales order lifecycle. Lines are mutable only while the
// order is a draft; confirmation freezes them and spawns one demand per
// line.
type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	GetOrderByReference(ctx context.Context, reference string) (*OrderDTO, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]OrderDTO, error)

	AddItem(ctx context.Context, userID, orderID uuid.UUID, input AddItemInput) (*OrderDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*OrderDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*OrderDTO, error)

	Confirm(ctx context.Context, userID, orderID uuid.UUID, expectedDate *time.Time) (*OrderDTO, error)
	StartProduction(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	MarkReadyForDelivery(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	StartDelivery(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	Deliver(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	Complete(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
}

// CreateOrderInput holds the payload to open a draft order.
type CreateOrderInput struct {
	CustomerName string  `json:"customer_name" validate:"required,min=1,max=200"`
	Reference    string  `json:"reference" validate:"required,min=1,max=100"`
	Notes        *string `json:"notes" validate:"omitempty,max=2000"`
}

// AddItemInput holds the payload to add a line to a draft order.
type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=1"`
	Notes     *string   `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateItemInput holds optional line mutations.
type UpdateItemInput struct {
	Quantity *int    `json:"quantity" validate:"omitempty,gte=1"`
	Notes    *string `json:"notes" validate:"omitempty,max=2000"`
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

// NewService constructs the order lifecycle service. Metrics may be nil.
func NewService(repository *Repository, dbClient txRunner, recorder *eventlog.Recorder, workflow *metrics.WorkflowMetrics) (Service, error) {
	if repository == nil {
		return nil, fmt.Errorf("orders repository required")
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

// CreateOrder opens a draft order with no lines.
func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	order := &models.OrderEntry{
		CustomerName: input.CustomerName,
		Reference:    input.Reference,
		Status:       enums.OrderStatusDraft,
		Notes:        input.Notes,
		Total:        decimal.Zero,
		IsActive:     true,
		CreatedBy:    userID,
		UpdatedBy:    userID,
	}
	if _, err := s.repo.Create(ctx, order); err != nil {
		if db.IsUniqueViolation(err, "ux_orders_reference", "orders.reference") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order reference already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
	}
	return newOrderDTO(order), nil
}

// GetOrder returns the order with its lines.
func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return newOrderDTO(order), nil
}

// GetOrderByReference returns the active order carrying the reference.
func (s *service) GetOrderByReference(ctx context.Context, reference string) (*OrderDTO, error) {
	order, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order by reference")
	}
	return newOrderDTO(order), nil
}

// ListOrders returns active orders matching the filter.
func (s *service) ListOrders(ctx context.Context, filter ListFilter) ([]OrderDTO, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *newOrderDTO(&rows[i]))
	}
	return dtos, nil
}

// AddItem appends a line to a draft order, snapshotting the current unit
// price, and recomputes the order total.
func (s *service) AddItem(ctx context.Context, userID, orderID uuid.UUID, input AddItemInput) (*OrderDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditable(order, "add_item"); err != nil {
		return nil, err
	}

	product, err := s.repo.FindProductByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is inactive")
	}

	item := &models.OrderItem{
		OrderID:   orderID,
		ProductID: product.ID,
		Quantity:  input.Quantity,
		UnitPrice: product.UnitPrice,
		Notes:     input.Notes,
	}
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		bound := s.repo.WithTx(tx)
		if _, err := bound.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order item")
		}
		return s.recomputeTotal(ctx, bound, order, userID)
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add order item")
	}
	return s.GetOrder(ctx, orderID)
}

// UpdateItem changes quantity or notes of a draft order line.
func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*OrderDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, item.OrderID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditable(order, "update_item"); err != nil {
		return nil, err
	}

	if input.Quantity != nil {
		item.Quantity = *input.Quantity
	}
	if input.Notes != nil {
		item.Notes = input.Notes
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		bound := s.repo.WithTx(tx)
		if _, err := bound.UpdateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order item")
		}
		return s.recomputeTotal(ctx, bound, order, userID)
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item")
	}
	return s.GetOrder(ctx, order.ID)
}

// RemoveItem deletes a draft order line and recomputes the total.
func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*OrderDTO, error) {
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, item.OrderID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditable(order, "remove_item"); err != nil {
		return nil, err
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		bound := s.repo.WithTx(tx)
		if err := bound.DeleteItem(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete order item")
		}
		return s.recomputeTotal(ctx, bound, order, userID)
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove order item")
	}
	return s.GetOrder(ctx, order.ID)
}

// Confirm freezes the order and spawns one pending demand per line, all in
// one transaction with the confirmation event.
func (s *service) Confirm(ctx context.Context, userID, orderID uuid.UUID, expectedDate *time.Time) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusDraft {
		return nil, s.rejectTransition(order, "confirm")
	}
	if len(order.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items to confirm")
	}

	now := time.Now()
	order.Status = enums.OrderStatusConfirmed
	order.ConfirmedAt = &now
	order.UpdatedBy = userID

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		bound := s.repo.WithTx(tx)
		if _, err := bound.Update(ctx, order); err != nil {
			if errors.Is(err, repo.ErrStaleRow) {
				return pkgerrors.New(pkgerrors.CodeConcurrentModification, "order was modified concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order")
		}
		for i := range order.Items {
			item := &order.Items[i]
			demand := &models.Demand{
				OrderItemID:  item.ID,
				ProductID:    item.ProductID,
				Quantity:     item.Quantity,
				Status:       enums.DemandStatusPending,
				ExpectedDate: expectedDate,
				IsActive:     true,
				CreatedBy:    userID,
				UpdatedBy:    userID,
			}
			if _, err := bound.CreateDemand(ctx, demand); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert demand")
			}
		}
		return s.events.Record(ctx, tx, eventlog.DomainEvent{
			EventType:     enums.EventOrderConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &eventlog.ActorRef{UserID: userID},
			Version:       1,
			Data: map[string]any{
				"reference": order.Reference,
				"items":     len(order.Items),
				"total":     order.Total,
			},
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
	}

	s.metrics.IncTransition("order", "confirm")
	return s.GetOrder(ctx, orderID)
}

// StartProduction moves a confirmed order onto the shop floor.
func (s *service) StartProduction(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	return s.applyTransition(ctx, userID, orderID, transitionSpec{
		name:  "start_production",
		from:  []enums.OrderStatus{enums.OrderStatusConfirmed},
		to:    enums.OrderStatusInProduction,
		event: enums.EventOrderInProduction,
	})
}

// MarkReadyForDelivery records that production finished.
func (s *service) MarkReadyForDelivery(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	return s.applyTransition(ctx, userID, orderID, transitionSpec{
		name:  "mark_ready_for_delivery",
		from:  []enums.OrderStatus{enums.OrderStatusInProduction},
		to:    enums.OrderStatusReadyForDelivery,
		event: enums.EventOrderReadyForDelivery,
	})
}

// StartDelivery hands the order to the courier.
func (s *service) StartDelivery(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	return s.applyTransition(ctx, userID, orderID, transitionSpec{
		name:  "start_delivery",
		from:  []enums.OrderStatus{enums.OrderStatusReadyForDelivery},
		to:    enums.OrderStatusOutForDelivery,
		event: enums.EventOrderOutForDelivery,
	})
}

// Deliver records arrival at the customer.
func (s *service) Deliver(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	return s.applyTransition(ctx, userID, orderID, transitionSpec{
		name:  "deliver",
		from:  []enums.OrderStatus{enums.OrderStatusOutForDelivery},
		to:    enums.OrderStatusDelivered,
		event: enums.EventOrderDelivered,
		stamp: func(order *models.OrderEntry, now time.Time) {
			order.DeliveredAt = &now
		},
	})
}

// Complete closes a delivered order.
func (s *service) Complete(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	return s.applyTransition(ctx, userID, orderID, transitionSpec{
		name:  "complete",
		from:  []enums.OrderStatus{enums.OrderStatusDelivered},
		to:    enums.OrderStatusCompleted,
		event: enums.EventOrderCompleted,
		stamp: func(order *models.OrderEntry, now time.Time) {
			order.CompletedAt = &now
		},
	})
}

// Cancel aborts the order from any state that is not already final.
func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	return s.applyTransition(ctx, userID, orderID, transitionSpec{
		name: "cancel",
		from: []enums.OrderStatus{
			enums.OrderStatusDraft,
			enums.OrderStatusConfirmed,
			enums.OrderStatusInProduction,
			enums.OrderStatusReadyForDelivery,
			enums.OrderStatusOutForDelivery,
			enums.OrderStatusDelivered,
		},
		to:    enums.OrderStatusCancelled,
		event: enums.EventOrderCancelled,
		stamp: func(order *models.OrderEntry, now time.Time) {
			order.CancelledAt = &now
		},
	})
}

type transitionSpec struct {
	name  string
	from  []enums.OrderStatus
	to    enums.OrderStatus
	event enums.EventType
	stamp func(order *models.OrderEntry, now time.Time)
}

func (s *service) applyTransition(ctx context.Context, userID, orderID uuid.UUID, spec transitionSpec) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, from := range spec.from {
		if order.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, s.rejectTransition(order, spec.name)
	}

	now := time.Now()
	from := order.Status
	order.Status = spec.to
	order.UpdatedBy = userID
	if spec.stamp != nil {
		spec.stamp(order, now)
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Update(ctx, order); err != nil {
			if errors.Is(err, repo.ErrStaleRow) {
				return pkgerrors.New(pkgerrors.CodeConcurrentModification, "order was modified concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order")
		}
		return s.events.Record(ctx, tx, eventlog.DomainEvent{
			EventType:     spec.event,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &eventlog.ActorRef{UserID: userID},
			Version:       1,
			Data: map[string]any{
				"from": from.String(),
				"to":   spec.to.String(),
			},
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, spec.name)
	}

	s.metrics.IncTransition("order", spec.name)
	return s.GetOrder(ctx, orderID)
}

func (s *service) rejectTransition(order *models.OrderEntry, name string) error {
	s.metrics.IncRejected("order", name)
	return pkgerrors.New(pkgerrors.CodeIllegalTransition,
		fmt.Sprintf("cannot %s order in status %s", name, order.Status)).
		WithDetails(map[string]any{"status": order.Status.String()})
}

func (s *service) requireEditable(order *models.OrderEntry, action string) error {
	if order.IsEditable() {
		return nil
	}
	s.metrics.IncRejected("order", action)
	return pkgerrors.New(pkgerrors.CodeIllegalTransition,
		fmt.Sprintf("order items are frozen in status %s", order.Status)).
		WithDetails(map[string]any{"status": order.Status.String()})
}

// recomputeTotal re-sums the order's lines and persists the new total. The
// order row's lock version doubles as the concurrency guard for line edits.
func (s *service) recomputeTotal(ctx context.Context, bound *Repository, order *models.OrderEntry, userID uuid.UUID) error {
	fresh, err := bound.FindByID(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload order")
	}
	total := decimal.Zero
	for i := range fresh.Items {
		total = total.Add(fresh.Items[i].LineTotal())
	}
	order.Total = total
	order.UpdatedBy = userID
	if _, err := bound.Update(ctx, order); err != nil {
		if errors.Is(err, repo.ErrStaleRow) {
			return pkgerrors.New(pkgerrors.CodeConcurrentModification, "order was modified concurrently")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order total")
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderEntry, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	return order, nil
}

func (s *service) loadItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	item, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order item")
	}
	return item, nil
}
