package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ride-trip/internal/domain"
	"ride-trip/internal/notify"
)

// NotificationService turns trip changes into events for the customer, the
// driver and drivers being solicited.
type NotificationService struct {
	publisher notify.Publisher
	logger    *slog.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(publisher notify.Publisher, logger *slog.Logger) *NotificationService {
	if publisher == nil {
		publisher = notify.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{publisher: publisher, logger: logger}
}

// NotifyTripCreated announces a new draft trip to its customer.
func (s *NotificationService) NotifyTripCreated(ctx context.Context, trip *domain.Trip) {
	s.send(ctx, notify.EventTripCreated, trip)
}

// NotifyTripUpdated announces a generic patch.
func (s *NotificationService) NotifyTripUpdated(ctx context.Context, trip *domain.Trip) {
	s.send(ctx, notify.EventTripUpdated, trip)
}

// NotifyTripActivated announces an activated trip.
func (s *NotificationService) NotifyTripActivated(ctx context.Context, trip *domain.Trip) {
	s.send(ctx, notify.EventTripActivated, trip)
}

// NotifyDriversCalled offers the trip to every driver of the call round.
func (s *NotificationService) NotifyDriversCalled(ctx context.Context, trip *domain.Trip) {
	s.send(ctx, notify.EventDriversCalled, trip, trip.CalledDriverIDs...)
}

// NotifyDriverRejected tells the customer one driver declined.
func (s *NotificationService) NotifyDriverRejected(ctx context.Context, trip *domain.Trip, driverID string) {
	s.send(ctx, notify.EventDriverRejected, trip, driverID)
}

// NotifyDriverNotFound tells the customer every called driver declined.
func (s *NotificationService) NotifyDriverNotFound(ctx context.Context, trip *domain.Trip) {
	s.send(ctx, notify.EventDriverNotFound, trip)
}

// NotifyDriverFound tells the customer a driver approved, and the other
// called drivers that the offer is gone.
func (s *NotificationService) NotifyDriverFound(ctx context.Context, trip *domain.Trip) {
	s.send(ctx, notify.EventDriverFound, trip, trip.CalledDriverIDs...)
}

// NotifyDriverStatusUpdated tells the customer where the driver is in the pickup flow.
func (s *NotificationService) NotifyDriverStatusUpdated(ctx context.Context, trip *domain.Trip) {
	s.send(ctx, notify.EventDriverStatusUpdated, trip)
}

// NotifyPaymentWaiting tells the customer the ride ended and payment is due.
func (s *NotificationService) NotifyPaymentWaiting(ctx context.Context, trip *domain.Trip) {
	s.send(ctx, notify.EventPaymentWaiting, trip)
}

// NotifyTripCompleted announces a settled trip.
func (s *NotificationService) NotifyTripCompleted(ctx context.Context, trip *domain.Trip) {
	s.send(ctx, notify.EventTripCompleted, trip)
}

// NotifyTripRated tells the driver about the rating.
func (s *NotificationService) NotifyTripRated(ctx context.Context, trip *domain.Trip) {
	s.send(ctx, notify.EventTripRated, trip)
}

// NotifyTripCancelled tells both parties the trip was cancelled.
func (s *NotificationService) NotifyTripCancelled(ctx context.Context, trip *domain.Trip, cancelledBy domain.UserType) {
	s.logger.Info("trip cancelled", "trip_id", trip.ID, "cancelled_by", cancelledBy)
	s.send(ctx, notify.EventTripCancelled, trip)
}

// send publishes the event; failures are logged and never returned.
func (s *NotificationService) send(ctx context.Context, eventType notify.EventType, trip *domain.Trip, recipients ...string) {
	event := notify.Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		TripID:     trip.ID,
		Status:     trip.Status,
		CustomerID: trip.Customer.ID,
		DriverID:   trip.DriverID(),
		Recipients: append([]string(nil), recipients...),
		Trip:       trip.Clone(),
		OccurredAt: time.Now().UTC(),
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish trip event", "type", eventType, "trip_id", trip.ID, "error", err)
		return
	}

	s.logger.Debug("trip event sent", "type", eventType, "trip_id", trip.ID, "status", trip.Status)
}
