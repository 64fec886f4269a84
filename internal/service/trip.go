package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"ride-trip/internal/domain"
	"ride-trip/internal/lock"
	"ride-trip/internal/repository"
	"ride-trip/internal/statemachine"
)

// ErrInternal is the kind of failures that are not the caller's fault.
var ErrInternal = errors.New("internal error")

// Result is the outcome of a trip operation. Failures carry a message and an
// error that errors.Is matches against the sentinels of this package.
type Result struct {
	Success bool
	Trip    *domain.Trip
	Message string
	Err     error
}

// Code returns the API error code of a failed result.
func (r Result) Code() string {
	if r.Success {
		return ""
	}
	return ErrorCode(r.Err)
}

func ok(trip *domain.Trip) Result {
	return Result{Success: true, Trip: trip}
}

func fail(err error) Result {
	var tripErr *TripError
	if !errors.As(err, &tripErr) {
		tripErr = wrapTripError(ErrInternal, err, "%s", err.Error())
	}
	return Result{Message: tripErr.Message, Err: tripErr}
}

// TripOrchestratorDeps holds the collaborators of a TripOrchestrator.
type TripOrchestratorDeps struct {
	Trips        repository.TripRepository
	Locks        *lock.Coordinator
	StateMachine statemachine.StateMachine
	Customers    ProfileDirectory
	Drivers      ProfileDirectory
	Estimator    Estimator
	Cache        TripCache // optional
	Notifier     *NotificationService
	Logger       *slog.Logger
}

// TripOrchestrator implements every trip operation. Each mutation loads the
// trip, validates it and persists it while holding that trip's lock.
type TripOrchestrator struct {
	trips     repository.TripRepository
	locks     *lock.Coordinator
	sm        statemachine.StateMachine
	customers ProfileDirectory
	drivers   ProfileDirectory
	estimator Estimator
	cache     TripCache
	notifier  *NotificationService
	logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewTripOrchestrator creates a new TripOrchestrator.
func NewTripOrchestrator(deps TripOrchestratorDeps) *TripOrchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NewNotificationService(nil, logger)
	}

	return &TripOrchestrator{
		trips:     deps.Trips,
		locks:     deps.Locks,
		sm:        deps.StateMachine,
		customers: deps.Customers,
		drivers:   deps.Drivers,
		estimator: deps.Estimator,
		cache:     deps.Cache,
		notifier:  notifier,
		logger:    logger.With("component", "trip"),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

func tripLockKey(tripID string) string {
	return "trip:" + tripID
}

// mutate runs fn on a freshly loaded trip while holding the trip lock. The
// cached snapshot is dropped before the lock is released, whatever fn returns.
func (s *TripOrchestrator) mutate(ctx context.Context, tripID, op string, fn func(ctx context.Context, trip *domain.Trip) (*domain.Trip, error)) Result {
	if tripID == "" {
		return fail(newTripError(ErrInvalidTripID, "Trip id is required"))
	}

	res := lock.ExecuteWithLock(ctx, s.locks, tripLockKey(tripID), func(ctx context.Context) (*domain.Trip, error) {
		trip, err := s.load(ctx, tripID)
		if err != nil {
			return nil, err
		}
		defer s.invalidate(ctx, tripID)
		return fn(ctx, trip)
	}, lock.WithFailureMessage(fmt.Sprintf("Trip %s is being updated by another request, try again later", tripID)))

	if !res.Success {
		err := res.Err
		switch {
		case errors.Is(err, lock.ErrNotAcquired):
			err = wrapTripError(ErrTripLocked, err, "%s", res.Message)
		case errors.Is(err, lock.ErrOperationPanicked):
			err = wrapTripError(ErrInternal, err, "Unexpected error while processing trip %s", tripID)
		}
		result := fail(err)
		s.logFailure(op, tripID, result)
		return result
	}
	return ok(res.Value)
}

func (s *TripOrchestrator) logFailure(op, tripID string, result Result) {
	switch result.Code() {
	case CodeInternal, CodeDirectory:
		s.logger.Error("trip operation failed", "op", op, "trip_id", tripID, "error", result.Err)
	default:
		s.logger.Warn("trip operation rejected", "op", op, "trip_id", tripID, "code", result.Code(), "message", result.Message)
	}
}

func (s *TripOrchestrator) load(ctx context.Context, tripID string) (*domain.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, wrapTripError(ErrTripNotFound, err, "Trip %s not found", tripID)
		}
		return nil, fmt.Errorf("load trip %s: %w", tripID, err)
	}
	return trip, nil
}

func (s *TripOrchestrator) save(ctx context.Context, trip *domain.Trip) error {
	if err := s.trips.Update(ctx, trip); err != nil {
		switch {
		case errors.Is(err, repository.ErrActiveTripConflict):
			return wrapTripError(ErrActiveTripConflict, err, "Trip %s conflicts with another active trip of the same customer or driver", trip.ID)
		case errors.Is(err, repository.ErrNotFound):
			return wrapTripError(ErrTripNotFound, err, "Trip %s not found", trip.ID)
		}
		return fmt.Errorf("save trip %s: %w", trip.ID, err)
	}
	return nil
}

// transition moves trip to target if the status graph allows it.
func (s *TripOrchestrator) transition(trip *domain.Trip, target domain.TripStatus) error {
	if v := s.sm.CanTransition(trip.Status, target); !v.Valid {
		return newTripError(ErrInvalidStatus, "%s", v.Message)
	}
	trip.Status = target
	return nil
}

func (s *TripOrchestrator) requireStatus(trip *domain.Trip, allowed ...domain.TripStatus) error {
	var v statemachine.Validation
	if len(allowed) == 1 {
		v = s.sm.ValidateStatus(trip.Status, allowed[0])
	} else {
		v = s.sm.ValidateMultipleStatuses(trip.Status, allowed...)
	}
	if !v.Valid {
		return newTripError(ErrInvalidStatus, "%s (current status: %s)", v.Message, trip.Status)
	}
	return nil
}

// checkCustomerFree fails when the customer waits on a trip other than tripID.
func (s *TripOrchestrator) checkCustomerFree(ctx context.Context, customerID, tripID string) error {
	active, err := s.trips.FindActiveByCustomerID(ctx, customerID)
	if err != nil {
		return fmt.Errorf("find active trip of customer %s: %w", customerID, err)
	}
	if active != nil && active.ID != tripID {
		return newTripError(ErrActiveTripConflict, "Customer %s already has an active trip: %s", customerID, active.ID)
	}
	return nil
}

// checkDriverFree fails when the driver has approved a trip other than tripID.
func (s *TripOrchestrator) checkDriverFree(ctx context.Context, driverID, tripID string) error {
	active, err := s.trips.FindActiveByDriverID(ctx, driverID)
	if err != nil {
		return fmt.Errorf("find active trip of driver %s: %w", driverID, err)
	}
	if active != nil && active.ID != tripID {
		return newTripError(ErrActiveTripConflict, "Driver %s already has an active trip: %s", driverID, active.ID)
	}
	return nil
}

// saveAndPoint persists trip and then points a directory user at it. When the
// directory call fails the stored trip is put back to before, so the caller
// sees a failure with no write behind it.
func (s *TripOrchestrator) saveAndPoint(ctx context.Context, before, trip *domain.Trip, point func(ctx context.Context) error) error {
	if err := s.save(ctx, trip); err != nil {
		return err
	}
	if err := point(ctx); err != nil {
		if rbErr := s.save(context.WithoutCancel(ctx), before); rbErr != nil {
			s.logger.Error("failed to restore trip after directory failure", "trip_id", trip.ID, "status", before.Status, "error", rbErr)
		}
		return err
	}
	return nil
}

// releaseActivePointers clears the directory pointers of a trip that reached a
// terminal status. The trip is already persisted, so failures are only logged.
func (s *TripOrchestrator) releaseActivePointers(ctx context.Context, trip *domain.Trip) {
	if err := s.customers.RemoveActiveTrip(ctx, trip.Customer.ID); err != nil {
		s.logger.Error("failed to remove customer active trip", "trip_id", trip.ID, "customer_id", trip.Customer.ID, "error", err)
	}
	if driverID := trip.DriverID(); driverID != "" {
		if err := s.drivers.RemoveActiveTrip(ctx, driverID); err != nil {
			s.logger.Error("failed to remove driver active trip", "trip_id", trip.ID, "driver_id", driverID, "error", err)
		}
	}
}

func (s *TripOrchestrator) invalidate(ctx context.Context, tripID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTrip(ctx, tripID); err != nil {
		s.logger.Warn("failed to invalidate trip cache", "trip_id", tripID, "error", err)
	}
}

func directoryError(err error, format string, args ...any) error {
	return wrapTripError(ErrDirectory, err, "%s: %v", fmt.Sprintf(format, args...), err)
}

// ValidateRoute checks waypoint count and coordinate ranges.
func ValidateRoute(route []domain.Waypoint) error {
	if len(route) < 2 {
		return newTripError(ErrInvalidRoute, "Route must have at least 2 waypoints, got %d", len(route))
	}
	for i, p := range route {
		if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
			return newTripError(ErrInvalidRoute, "Waypoint %d has invalid latitude %v", i, p.Lat)
		}
		if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
			return newTripError(ErrInvalidRoute, "Waypoint %d has invalid longitude %v", i, p.Lon)
		}
	}
	return nil
}

// Estimate prices a route without creating a trip.
func (s *TripOrchestrator) Estimate(ctx context.Context, route []domain.Waypoint) (domain.Estimate, error) {
	if err := ValidateRoute(route); err != nil {
		return domain.Estimate{}, err
	}

	est, err := s.estimator.Estimate(ctx, route)
	if err != nil {
		return domain.Estimate{}, wrapTripError(ErrEstimate, err, "Failed to calculate estimate: %v", err)
	}
	return est, nil
}

// CreateTripRequest contains the parameters for creating a trip.
type CreateTripRequest struct {
	CustomerID string
	Route      []domain.Waypoint
}

// CreateTrip persists a new DRAFT trip carrying a snapshot of the customer
// profile and the route estimate. A new trip has no prior state to race
// against, so no lock is taken.
func (s *TripOrchestrator) CreateTrip(ctx context.Context, req CreateTripRequest) Result {
	if req.CustomerID == "" {
		return fail(newTripError(ErrInvalidCustomerID, "Customer id is required"))
	}

	est, err := s.Estimate(ctx, req.Route)
	if err != nil {
		return fail(err)
	}

	profile, err := s.customers.FindOne(ctx, req.CustomerID, domain.CustomerProfileFields)
	if err != nil {
		result := fail(directoryError(err, "Failed to load customer %s", req.CustomerID))
		s.logFailure("create", "", result)
		return result
	}

	trip := &domain.Trip{
		ID:                s.newID(),
		Status:            domain.TripStatusDraft,
		Customer:          profile.CustomerSnapshot(req.CustomerID),
		Route:             append([]domain.Waypoint(nil), req.Route...),
		PaymentStatus:     domain.PaymentStatusUnpaid,
		EstimatedDistance: est.Distance,
		EstimatedDuration: est.Duration,
		EstimatedCost:     est.Cost,
		CalledDriverIDs:   []string{},
		RejectedDriverIDs: []string{},
	}

	if err := s.trips.Create(ctx, trip); err != nil {
		return fail(fmt.Errorf("create trip: %w", err))
	}

	s.logger.Info("trip created", "trip_id", trip.ID, "customer_id", req.CustomerID)
	s.notifier.NotifyTripCreated(ctx, trip)
	return ok(trip)
}

// GetTrip retrieves a trip, reading through the cache when one is configured.
func (s *TripOrchestrator) GetTrip(ctx context.Context, tripID string) Result {
	if tripID == "" {
		return fail(newTripError(ErrInvalidTripID, "Trip id is required"))
	}

	if s.cache != nil {
		cached, err := s.cache.GetTrip(ctx, tripID)
		if err != nil {
			s.logger.Warn("trip cache read failed", "trip_id", tripID, "error", err)
		} else if cached != nil {
			return ok(cached)
		}
	}

	trip, err := s.load(ctx, tripID)
	if err != nil {
		return fail(err)
	}

	if s.cache != nil && !s.tripLocked(ctx, tripID) {
		if err := s.cache.SetTrip(ctx, trip); err != nil {
			s.logger.Warn("trip cache write failed", "trip_id", tripID, "error", err)
		}
	}
	return ok(trip)
}

// tripLocked reports whether a mutation may be in flight. A row read while the
// lock is held can be older than what that mutation is about to write.
func (s *TripOrchestrator) tripLocked(ctx context.Context, tripID string) bool {
	ttl, err := s.locks.RemainingTTL(ctx, tripLockKey(tripID))
	if err != nil {
		s.logger.Warn("trip lock lookup failed", "trip_id", tripID, "error", err)
		return true
	}
	return ttl != lock.TTLKeyMissing
}

// GetActiveTrip returns the customer's WAITING_FOR_DRIVER trip or the driver's APPROVED trip.
func (s *TripOrchestrator) GetActiveTrip(ctx context.Context, userID string, userType domain.UserType) Result {
	trip, err := s.findActive(ctx, userID, userType)
	if err != nil {
		return fail(err)
	}
	return ok(trip)
}

func (s *TripOrchestrator) findActive(ctx context.Context, userID string, userType domain.UserType) (*domain.Trip, error) {
	if userID == "" {
		return nil, newTripError(ErrInvalidCustomerID, "User id is required")
	}

	var trip *domain.Trip
	var err error

	switch userType {
	case domain.UserTypeCustomer:
		trip, err = s.trips.FindActiveByCustomerID(ctx, userID)
	case domain.UserTypeDriver:
		trip, err = s.trips.FindActiveByDriverID(ctx, userID)
	default:
		return nil, newTripError(ErrInvalidUserType, "Invalid user type: %s", userType)
	}
	if err != nil {
		return nil, fmt.Errorf("find active trip of %s %s: %w", userType, userID, err)
	}
	if trip == nil {
		return nil, newTripError(ErrTripNotFound, "No active trip found for %s %s", userType, userID)
	}
	return trip, nil
}

// TripPatch lists the fields a generic update may change. Nil fields are left as is.
type TripPatch struct {
	Status          *domain.TripStatus
	PaymentStatus   *domain.PaymentStatus
	PaymentMethodID *string
	Rating          *float64
	Comment         *string
}

func (p TripPatch) touchesClosure() bool {
	return p.PaymentStatus != nil || p.PaymentMethodID != nil || p.Rating != nil || p.Comment != nil
}

// UpdateTrip applies a patch. A status change must follow the status graph
// and closure metadata may only change while the trip is in PAYMENT or COMPLETED.
func (s *TripOrchestrator) UpdateTrip(ctx context.Context, tripID string, patch TripPatch) Result {
	if patch.PaymentStatus != nil && !patch.PaymentStatus.IsValid() {
		return fail(newTripError(ErrInvalidPaymentStatus, "Invalid payment status: %s", *patch.PaymentStatus))
	}
	if patch.Rating != nil {
		if err := validateRating(*patch.Rating); err != nil {
			return fail(err)
		}
	}

	var wasTerminal bool
	res := s.mutate(ctx, tripID, "update", func(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
		wasTerminal = trip.Status.IsTerminal()

		if patch.Status != nil && *patch.Status != trip.Status {
			if err := s.transition(trip, *patch.Status); err != nil {
				return nil, err
			}
		}

		if patch.touchesClosure() {
			if err := s.requireStatus(trip, domain.TripStatusPayment, domain.TripStatusCompleted); err != nil {
				return nil, err
			}
			if patch.PaymentStatus != nil {
				trip.PaymentStatus = *patch.PaymentStatus
			}
			if patch.PaymentMethodID != nil {
				trip.PaymentMethodID = *patch.PaymentMethodID
			}
			if patch.Rating != nil {
				r := *patch.Rating
				trip.Rating = &r
			}
			if patch.Comment != nil {
				trip.Comment = *patch.Comment
			}
		}

		if err := s.save(ctx, trip); err != nil {
			return nil, err
		}

		if !wasTerminal && trip.Status.IsTerminal() {
			s.releaseActivePointers(ctx, trip)
		}
		return trip, nil
	})

	if res.Success {
		s.notifier.NotifyTripUpdated(ctx, res.Trip)
	}
	return res
}

// ActivateTrip moves a trip to WAITING_FOR_DRIVER, or to APPROVED when a driver
// is already attached, provided neither party has another active trip.
func (s *TripOrchestrator) ActivateTrip(ctx context.Context, tripID string) Result {
	res := s.mutate(ctx, tripID, "activate", func(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
		if err := s.checkCustomerFree(ctx, trip.Customer.ID, trip.ID); err != nil {
			return nil, err
		}

		target := domain.TripStatusWaitingForDriver
		if driverID := trip.DriverID(); driverID != "" {
			if err := s.checkDriverFree(ctx, driverID, trip.ID); err != nil {
				return nil, err
			}
			target = domain.TripStatusApproved
		}

		if err := s.transition(trip, target); err != nil {
			return nil, err
		}
		if err := s.save(ctx, trip); err != nil {
			return nil, err
		}
		return trip, nil
	})

	if res.Success {
		s.notifier.NotifyTripActivated(ctx, res.Trip)
	}
	return res
}

func validateRating(rating float64) error {
	if math.IsNaN(rating) || rating < 1 || rating > 5 {
		return newTripError(ErrInvalidRating, "Rating must be between 1 and 5, got %v", rating)
	}
	return nil
}
