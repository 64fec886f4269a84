package service

import (
	"context"
	"errors"

	"ride-trip/internal/directory"
	"ride-trip/internal/domain"
)

// CallDriversRequest contains the parameters for soliciting drivers.
type CallDriversRequest struct {
	TripID     string
	CustomerID string
	DriverIDs  []string
}

// CallDrivers starts a new call round: it records the solicited drivers,
// moves the trip to WAITING_FOR_DRIVER and points the customer at the trip.
func (s *TripOrchestrator) CallDrivers(ctx context.Context, req CallDriversRequest) Result {
	if req.CustomerID == "" {
		return fail(newTripError(ErrInvalidCustomerID, "Customer id is required"))
	}
	driverIDs := uniqueIDs(req.DriverIDs)
	if len(driverIDs) == 0 {
		return fail(newTripError(ErrInvalidDriverIDs, "At least one driver id is required"))
	}

	res := s.mutate(ctx, req.TripID, "call_drivers", func(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
		if err := s.requireStatus(trip, domain.TripStatusDraft, domain.TripStatusDriverNotFound); err != nil {
			return nil, err
		}
		if trip.Customer.ID != req.CustomerID {
			return nil, newTripError(ErrCustomerMismatch, "Trip %s does not belong to customer %s", trip.ID, req.CustomerID)
		}
		if err := s.checkCustomerFree(ctx, req.CustomerID, trip.ID); err != nil {
			return nil, err
		}

		before := trip.Clone()
		now := s.now().UTC()
		trip.CallRetryCount++
		trip.CalledDriverIDs = driverIDs
		trip.CallStartTime = &now

		if err := s.transition(trip, domain.TripStatusWaitingForDriver); err != nil {
			return nil, err
		}
		err := s.saveAndPoint(ctx, before, trip, func(ctx context.Context) error {
			if err := s.customers.SetActiveTrip(ctx, req.CustomerID, trip.ID); err != nil {
				return directoryError(err, "Failed to set active trip of customer %s", req.CustomerID)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return trip, nil
	})

	if res.Success {
		s.logger.Info("drivers called", "trip_id", res.Trip.ID, "drivers", len(driverIDs), "round", res.Trip.CallRetryCount)
		s.notifier.NotifyDriversCalled(ctx, res.Trip)
	}
	return res
}

// RejectDriver records that a driver declined. Repeating a rejection changes
// nothing. Once every driver of the call round has declined the trip moves
// to DRIVER_NOT_FOUND.
func (s *TripOrchestrator) RejectDriver(ctx context.Context, tripID, driverID string) Result {
	if driverID == "" {
		return fail(newTripError(ErrInvalidDriverID, "Driver id is required"))
	}

	var changed, exhausted bool
	res := s.mutate(ctx, tripID, "reject_driver", func(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
		if err := s.requireStatus(trip, domain.TripStatusWaitingForDriver); err != nil {
			return nil, err
		}

		if !trip.HasRejected(driverID) {
			trip.RejectedDriverIDs = append(trip.RejectedDriverIDs, driverID)
			changed = true
		}

		if trip.AllCalledRejected() {
			if err := s.transition(trip, domain.TripStatusDriverNotFound); err != nil {
				return nil, err
			}
			changed, exhausted = true, true
		}

		if !changed {
			return trip, nil
		}
		if err := s.save(ctx, trip); err != nil {
			return nil, err
		}
		return trip, nil
	})

	if res.Success && changed {
		s.notifier.NotifyDriverRejected(ctx, res.Trip, driverID)
		if exhausted {
			s.logger.Info("every called driver rejected", "trip_id", res.Trip.ID, "round", res.Trip.CallRetryCount)
			s.notifier.NotifyDriverNotFound(ctx, res.Trip)
		}
	}
	return res
}

// ApproveTrip assigns the driver: it snapshots the driver profile, moves the
// trip to APPROVED and points the driver at the trip. Approving again with the
// same driver only points the driver at the trip again.
func (s *TripOrchestrator) ApproveTrip(ctx context.Context, tripID, driverID string) Result {
	if tripID == "" {
		return fail(newTripError(ErrInvalidTripID, "Trip id is required"))
	}
	if driverID == "" {
		return fail(newTripError(ErrInvalidDriverID, "Driver id is required"))
	}

	profile, err := s.drivers.FindOne(ctx, driverID, domain.DriverProfileFields)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return fail(wrapTripError(ErrDirectory, err, "Driver %s not found", driverID))
		}
		result := fail(directoryError(err, "Failed to load driver %s", driverID))
		s.logFailure("approve", tripID, result)
		return result
	}

	var already bool
	res := s.mutate(ctx, tripID, "approve", func(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
		if trip.Status == domain.TripStatusApproved {
			if trip.DriverID() == driverID {
				already = true
				if err := s.drivers.SetActiveTrip(ctx, driverID, trip.ID); err != nil {
					return nil, directoryError(err, "Failed to set active trip of driver %s", driverID)
				}
				return trip, nil
			}
			return nil, newTripError(ErrInvalidStatus, "Trip %s is already approved by another driver", trip.ID)
		}

		before := trip.Clone()
		if err := s.transition(trip, domain.TripStatusApproved); err != nil {
			return nil, err
		}
		if err := s.checkDriverFree(ctx, driverID, trip.ID); err != nil {
			return nil, err
		}

		trip.Driver = profile.DriverSnapshot(driverID)
		err := s.saveAndPoint(ctx, before, trip, func(ctx context.Context) error {
			if err := s.drivers.SetActiveTrip(ctx, driverID, trip.ID); err != nil {
				return directoryError(err, "Failed to set active trip of driver %s", driverID)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return trip, nil
	})

	if res.Success && !already {
		s.logger.Info("trip approved", "trip_id", res.Trip.ID, "driver_id", driverID)
		s.notifier.NotifyDriverFound(ctx, res.Trip)
	}
	return res
}

// uniqueIDs drops blanks and duplicates, keeping first occurrence order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
