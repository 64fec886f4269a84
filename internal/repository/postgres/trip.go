package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ride-trip/internal/domain"
	"ride-trip/internal/repository"
)

// uniqueViolation is the SQLSTATE raised when a partial unique index rejects a row.
const uniqueViolation = "23505"

const tripColumns = `id, status, customer, driver, route, payment_status, payment_method_id, rating, comment,
		estimated_distance, estimated_duration, estimated_cost,
		called_driver_ids, rejected_driver_ids, call_start_time, call_retry_count,
		created_at, updated_at`

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q   Querier
	now func() time.Time
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db, now: time.Now}
}

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (id, customer_id, driver_id, status, customer, driver, route,
			payment_status, payment_method_id, rating, comment,
			estimated_distance, estimated_duration, estimated_cost,
			called_driver_ids, rejected_driver_ids, call_start_time, call_retry_count,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	now := r.now().UTC()
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = now
	}
	trip.UpdatedAt = now

	args, err := tripArgs(trip)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		trip.ID,
		args.customerID,
		args.driverID,
		trip.Status,
		args.customer,
		args.driver,
		args.route,
		trip.PaymentStatus,
		trip.PaymentMethodID,
		args.rating,
		trip.Comment,
		trip.EstimatedDistance,
		trip.EstimatedDuration,
		trip.EstimatedCost,
		pq.Array(trip.CalledDriverIDs),
		pq.Array(trip.RejectedDriverIDs),
		args.callStartTime,
		trip.CallRetryCount,
		trip.CreatedAt,
		trip.UpdatedAt,
	)

	return mapWriteError(err)
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// Update replaces the stored trip and refreshes its UpdatedAt.
func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips
		SET customer_id = $1, driver_id = $2, status = $3, customer = $4, driver = $5, route = $6,
			payment_status = $7, payment_method_id = $8, rating = $9, comment = $10,
			estimated_distance = $11, estimated_duration = $12, estimated_cost = $13,
			called_driver_ids = $14, rejected_driver_ids = $15, call_start_time = $16, call_retry_count = $17,
			updated_at = $18
		WHERE id = $19
	`

	args, err := tripArgs(trip)
	if err != nil {
		return err
	}

	updatedAt := r.now().UTC()

	result, err := r.q.ExecContext(ctx, query,
		args.customerID,
		args.driverID,
		trip.Status,
		args.customer,
		args.driver,
		args.route,
		trip.PaymentStatus,
		trip.PaymentMethodID,
		args.rating,
		trip.Comment,
		trip.EstimatedDistance,
		trip.EstimatedDuration,
		trip.EstimatedCost,
		pq.Array(trip.CalledDriverIDs),
		pq.Array(trip.RejectedDriverIDs),
		args.callStartTime,
		trip.CallRetryCount,
		updatedAt,
		trip.ID,
	)
	if err != nil {
		return mapWriteError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	trip.UpdatedAt = updatedAt
	return nil
}

// FindActiveByCustomerID retrieves the trip a customer is waiting on.
// Returns nil if no such trip exists.
func (r *TripRepository) FindActiveByCustomerID(ctx context.Context, customerID string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE customer_id = $1 AND status = $2 LIMIT 1`

	return r.findOne(ctx, query, customerID, domain.TripStatusWaitingForDriver)
}

// FindActiveByDriverID retrieves the trip a driver has approved.
// Returns nil if no such trip exists.
func (r *TripRepository) FindActiveByDriverID(ctx context.Context, driverID string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE driver_id = $1 AND status = $2 LIMIT 1`

	return r.findOne(ctx, query, driverID, domain.TripStatusApproved)
}

func (r *TripRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Trip, error) {
	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return trip, nil
}

type rowArgs struct {
	customerID    string
	driverID      sql.NullString
	customer      []byte
	driver        any // NULL without a driver
	route         []byte
	rating        sql.NullFloat64
	callStartTime sql.NullTime
}

func tripArgs(trip *domain.Trip) (rowArgs, error) {
	var a rowArgs
	var err error

	a.customerID = trip.Customer.ID

	if a.customer, err = json.Marshal(trip.Customer); err != nil {
		return a, fmt.Errorf("encode customer snapshot: %w", err)
	}
	if trip.Driver != nil {
		a.driverID = sql.NullString{String: trip.Driver.ID, Valid: true}
		driver, err := json.Marshal(trip.Driver)
		if err != nil {
			return a, fmt.Errorf("encode driver snapshot: %w", err)
		}
		a.driver = driver
	}
	if a.route, err = json.Marshal(trip.Route); err != nil {
		return a, fmt.Errorf("encode route: %w", err)
	}

	if trip.Rating != nil {
		a.rating = sql.NullFloat64{Float64: *trip.Rating, Valid: true}
	}
	if trip.CallStartTime != nil {
		a.callStartTime = sql.NullTime{Time: *trip.CallStartTime, Valid: true}
	}

	return a, nil
}

func scanTrip(row *sql.Row) (*domain.Trip, error) {
	var trip domain.Trip
	var customer, driver, route []byte
	var rating sql.NullFloat64
	var callStartTime sql.NullTime

	err := row.Scan(
		&trip.ID,
		&trip.Status,
		&customer,
		&driver,
		&route,
		&trip.PaymentStatus,
		&trip.PaymentMethodID,
		&rating,
		&trip.Comment,
		&trip.EstimatedDistance,
		&trip.EstimatedDuration,
		&trip.EstimatedCost,
		pq.Array(&trip.CalledDriverIDs),
		pq.Array(&trip.RejectedDriverIDs),
		&callStartTime,
		&trip.CallRetryCount,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(customer, &trip.Customer); err != nil {
		return nil, fmt.Errorf("decode customer snapshot: %w", err)
	}
	if len(driver) > 0 && string(driver) != "null" {
		trip.Driver = &domain.DriverSnapshot{}
		if err := json.Unmarshal(driver, trip.Driver); err != nil {
			return nil, fmt.Errorf("decode driver snapshot: %w", err)
		}
	}
	if err := json.Unmarshal(route, &trip.Route); err != nil {
		return nil, fmt.Errorf("decode route: %w", err)
	}

	if rating.Valid {
		trip.Rating = &rating.Float64
	}
	if callStartTime.Valid {
		t := callStartTime.Time
		trip.CallStartTime = &t
	}

	return &trip, nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrActiveTripConflict, pqErr.Constraint)
	}
	return err
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
