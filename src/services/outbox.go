package services

import (
	"cwms/src/types"
	"log"
	"time"
)

// Event names emitted by the lifecycle services.
const (
	EVENT_BOOKING_CREATED         = "booking.created"
	EVENT_BOOKING_CONFIRMED       = "booking.confirmed"
	EVENT_BOOKING_RESCHEDULED     = "booking.rescheduled"
	EVENT_BOOKING_CANCELED        = "booking.cancelled"
	EVENT_SUBSCRIPTION_CREATED    = "subscription.created"
	EVENT_SUBSCRIPTION_ACTIVATED  = "subscription.activated"
	EVENT_SUBSCRIPTION_RENEWED    = "subscription.renewed"
	EVENT_SUBSCRIPTION_EXPIRING   = "subscription.expiring"
	EVENT_SUBSCRIPTION_EXPIRED    = "subscription.expired"
	EVENT_SUBSCRIPTION_CANCELED   = "subscription.cancelled"
	EVENT_SUBSCRIPTION_SUSPENDED  = "subscription.suspended"
	EVENT_APPLICATION_SUBMITTED   = "application.submitted"
	EVENT_APPLICATION_TRANSITION  = "application.transitioned"
	EVENT_INVOICE_FINALIZED       = "invoice.finalized"
	EVENT_INVOICE_PAID            = "invoice.paid"
	EVENT_INVOICE_VOIDED          = "invoice.voided"
	EVENT_INVOICE_OVERDUE         = "invoice.overdue"
)

// DomainEvent is an outbox entry. Lifecycle methods return the events they
// produced instead of dispatching them; the caller publishes AFTER the
// surrounding transaction has committed, so a rollback never leaks a
// notification.
type DomainEvent struct {
	Name       string      `json:"name"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    types.JSONB `json:"payload"`
}

func NewDomainEvent(name string, payload types.JSONB) DomainEvent {
	return DomainEvent{Name: name, OccurredAt: time.Now().UTC(), Payload: payload}
}

// Publisher is implemented by lib's RabbitMQ publisher. Nil publishers are
// tolerated so tests and offline runs skip dispatch.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

// PublishAll sends every event, best effort. Dispatch failures are logged and
// skipped: the state change is already durable and notifications are not
// allowed to fail a committed request.
func PublishAll(pub Publisher, events []DomainEvent) {
	if pub == nil || len(events) == 0 {
		return
	}
	for _, ev := range events {
		if err := pub.Publish(ev.Name, ev); err != nil {
			log.Printf("[outbox] Error publishing %s: %s\n", ev.Name, err.Error())
		}
	}
}
