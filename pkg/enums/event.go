package enums

// EventType names a recorded domain event.
type EventType string

const (
	EventOrderConfirmed        EventType = "order.confirmed"
	EventOrderInProduction     EventType = "order.in_production"
	EventOrderReadyForDelivery EventType = "order.ready_for_delivery"
	EventOrderOutForDelivery   EventType = "order.out_for_delivery"
	EventOrderDelivered        EventType = "order.delivered"
	EventOrderCompleted        EventType = "order.completed"
	EventOrderCancelled        EventType = "order.cancelled"

	EventDemandConfirmed EventType = "demand.confirmed"
	EventDemandProduced  EventType = "demand.produced"
	EventDemandEnding    EventType = "demand.ending"
	EventDemandDelivered EventType = "demand.delivered"
	EventDemandExpanded  EventType = "demand.expanded"

	EventProductionScheduled EventType = "production.scheduled"
	EventProductionStarted   EventType = "production.started"
	EventProductionPaused    EventType = "production.paused"
	EventProductionResumed   EventType = "production.resumed"
	EventProductionCompleted EventType = "production.completed"
	EventProductionCancelled EventType = "production.cancelled"
	EventProductionFailed    EventType = "production.failed"
)

// AggregateType names the entity kind an event belongs to.
type AggregateType string

const (
	AggregateOrder           AggregateType = "order"
	AggregateDemand          AggregateType = "demand"
	AggregateProductionOrder AggregateType = "production_order"
)
