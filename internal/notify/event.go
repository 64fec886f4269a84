// Package notify delivers trip events to RabbitMQ and to websocket subscribers.
// Delivery is best effort: callers log failures and carry on.
package notify

import (
	"context"
	"errors"
	"time"

	"ride-trip/internal/domain"
)

// EventType names a trip event. It is also the routing key suffix.
type EventType string

const (
	EventTripCreated         EventType = "tripCreated"
	EventTripUpdated         EventType = "tripUpdated"
	EventTripActivated       EventType = "tripActivated"
	EventDriversCalled       EventType = "driversCalled"
	EventDriverRejected      EventType = "driverRejected"
	EventDriverNotFound      EventType = "driverNotFound"
	EventDriverFound         EventType = "driverFound"
	EventDriverStatusUpdated EventType = "driverStatusUpdated"
	EventPaymentWaiting      EventType = "paymentWaiting"
	EventTripCompleted       EventType = "tripCompleted"
	EventTripRated           EventType = "tripRated"
	EventTripCancelled       EventType = "tripCancelled"
)

// Event is one trip event. Trip is the state after the change.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	TripID     string            `json:"tripId"`
	Status     domain.TripStatus `json:"status"`
	CustomerID string            `json:"customerId"`
	DriverID   string            `json:"driverId,omitempty"`
	Recipients []string          `json:"recipients,omitempty"`
	Trip       *domain.Trip      `json:"trip"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// RoutingKey returns the topic routing key of the event.
func (e Event) RoutingKey() string {
	return "trip." + string(e.Type)
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Fanout publishes every event to all of its publishers.
type Fanout []Publisher

// Publish delivers to each publisher and joins their errors.
func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

// Publish does nothing.
func (Discard) Publish(context.Context, Event) error { return nil }
