package service

import (
	"context"
	"strings"

	"ride-trip/internal/domain"
)

// DriverStatuses are the only targets UpdateTripStatus accepts.
var DriverStatuses = []domain.TripStatus{
	domain.TripStatusDriverOnWayToPickup,
	domain.TripStatusArrivedAtPickup,
	domain.TripStatusTripInProgress,
}

func isDriverStatus(status domain.TripStatus) bool {
	for _, s := range DriverStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// UpdateTripStatus advances the pickup flow. Targets outside DriverStatuses
// are rejected without consulting the status graph.
func (s *TripOrchestrator) UpdateTripStatus(ctx context.Context, tripID string, status domain.TripStatus) Result {
	if !isDriverStatus(status) {
		names := make([]string, len(DriverStatuses))
		for i, st := range DriverStatuses {
			names[i] = string(st)
		}
		return fail(newTripError(ErrInvalidStatus, "Status %s cannot be set directly. Allowed statuses: %s", status, strings.Join(names, ", ")))
	}

	res := s.mutate(ctx, tripID, "update_status", func(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
		if err := s.transition(trip, status); err != nil {
			return nil, err
		}
		if err := s.save(ctx, trip); err != nil {
			return nil, err
		}
		return trip, nil
	})

	if res.Success {
		s.notifier.NotifyDriverStatusUpdated(ctx, res.Trip)
	}
	return res
}

// CompleteTrip ends the ride and hands it over to payment.
func (s *TripOrchestrator) CompleteTrip(ctx context.Context, tripID string) Result {
	res := s.mutate(ctx, tripID, "complete", func(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
		if err := s.transition(trip, domain.TripStatusPayment); err != nil {
			return nil, err
		}
		if err := s.save(ctx, trip); err != nil {
			return nil, err
		}
		return trip, nil
	})

	if res.Success {
		s.notifier.NotifyPaymentWaiting(ctx, res.Trip)
	}
	return res
}

// SettlePayment records a successful payment and completes the trip.
func (s *TripOrchestrator) SettlePayment(ctx context.Context, tripID, paymentMethodID string) Result {
	if paymentMethodID == "" {
		return fail(newTripError(ErrInvalidPaymentMethod, "Payment method id is required"))
	}

	res := s.mutate(ctx, tripID, "settle_payment", func(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
		if err := s.requireStatus(trip, domain.TripStatusPayment); err != nil {
			return nil, err
		}
		if err := s.transition(trip, domain.TripStatusCompleted); err != nil {
			return nil, err
		}

		trip.PaymentStatus = domain.PaymentStatusPaid
		trip.PaymentMethodID = paymentMethodID

		if err := s.save(ctx, trip); err != nil {
			return nil, err
		}

		s.releaseActivePointers(ctx, trip)
		return trip, nil
	})

	if res.Success {
		s.notifier.NotifyTripCompleted(ctx, res.Trip)
	}
	return res
}

// RateTrip stores the customer's rating and comment on a finished trip.
func (s *TripOrchestrator) RateTrip(ctx context.Context, tripID string, rating float64, comment string) Result {
	if err := validateRating(rating); err != nil {
		return fail(err)
	}

	res := s.mutate(ctx, tripID, "rate", func(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
		if err := s.requireStatus(trip, domain.TripStatusPayment, domain.TripStatusCompleted); err != nil {
			return nil, err
		}

		trip.Rating = &rating
		trip.Comment = comment

		if err := s.save(ctx, trip); err != nil {
			return nil, err
		}
		return trip, nil
	})

	if res.Success {
		s.notifier.NotifyTripRated(ctx, res.Trip)
	}
	return res
}

// CancelTrip cancels the caller's active trip: the customer's
// WAITING_FOR_DRIVER trip or the driver's APPROVED trip. The lookup runs
// unlocked, so the trip is read again under the lock before it is validated.
func (s *TripOrchestrator) CancelTrip(ctx context.Context, userID string, userType domain.UserType) Result {
	if !userType.IsValid() {
		return fail(newTripError(ErrInvalidUserType, "Invalid user type: %s", userType))
	}

	active, err := s.findActive(ctx, userID, userType)
	if err != nil {
		return fail(err)
	}

	res := s.mutate(ctx, active.ID, "cancel", func(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
		if err := checkParty(trip, userID, userType); err != nil {
			return nil, err
		}
		if err := s.transition(trip, domain.TripStatusCancelled); err != nil {
			return nil, err
		}
		if err := s.save(ctx, trip); err != nil {
			return nil, err
		}

		s.releaseActivePointers(ctx, trip)
		return trip, nil
	})

	if res.Success {
		s.notifier.NotifyTripCancelled(ctx, res.Trip, userType)
	}
	return res
}

func checkParty(trip *domain.Trip, userID string, userType domain.UserType) error {
	switch userType {
	case domain.UserTypeCustomer:
		if trip.Customer.ID == userID {
			return nil
		}
	case domain.UserTypeDriver:
		if trip.DriverID() == userID {
			return nil
		}
	}
	return newTripError(ErrInvalidStatus, "Trip %s no longer belongs to %s %s", trip.ID, userType, userID)
}
