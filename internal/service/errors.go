package service

import (
	"errors"
	"fmt"
)

var (
	// ErrTripNotFound is returned when the trip id does not resolve.
	ErrTripNotFound = errors.New("trip not found")

	// ErrInvalidStatus is returned when a transition or status precondition fails.
	ErrInvalidStatus = errors.New("invalid trip status")

	// ErrTripLocked is returned when another operation holds the trip lock.
	ErrTripLocked = errors.New("trip is locked")

	// ErrActiveTripConflict is returned when a customer or driver already has an active trip.
	ErrActiveTripConflict = errors.New("active trip conflict")

	// ErrDirectory is returned when the user directory call fails after its retries.
	ErrDirectory = errors.New("user directory error")

	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidCustomerID is returned when customer ID is empty.
	ErrInvalidCustomerID = errors.New("invalid customer id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidDriverIDs is returned when a call round names no drivers.
	ErrInvalidDriverIDs = errors.New("driver ids must not be empty")

	// ErrInvalidUserType is returned for a user type other than customer or driver.
	ErrInvalidUserType = errors.New("invalid user type")

	// ErrInvalidRoute is returned when the route is too short or has an out-of-range coordinate.
	ErrInvalidRoute = errors.New("invalid route")

	// ErrInvalidRating is returned when the rating is outside 1..5.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrInvalidPaymentStatus is returned for an unknown payment status.
	ErrInvalidPaymentStatus = errors.New("invalid payment status")

	// ErrInvalidPaymentMethod is returned when the payment method id is empty.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrCustomerMismatch is returned when the caller is not the trip's customer.
	ErrCustomerMismatch = errors.New("customer does not own trip")

	// ErrEstimate is returned when the estimator fails.
	ErrEstimate = errors.New("estimate failed")
)

// Error codes surfaced to API consumers.
const (
	CodeTripNotFound   = "TRIP_NOT_FOUND"
	CodeInvalidStatus  = "TRIP_INVALID_STATUS"
	CodeTripLocked     = "TRIP_LOCKED"
	CodeActiveConflict = "TRIP_ACTIVE_CONFLICT"
	CodeDirectory      = "DIRECTORY_ERROR"
	CodeValidation     = "VALIDATION_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
)

// TripError is a failure with a human readable message. errors.Is matches
// both its kind (one of the sentinels above) and the underlying cause.
type TripError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *TripError) Error() string {
	return e.Message
}

func (e *TripError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func newTripError(kind error, format string, args ...any) *TripError {
	return &TripError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapTripError(kind, cause error, format string, args ...any) *TripError {
	return &TripError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ErrorCode returns the API error code for err.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrTripNotFound):
		return CodeTripNotFound
	case errors.Is(err, ErrInvalidStatus):
		return CodeInvalidStatus
	case errors.Is(err, ErrTripLocked):
		return CodeTripLocked
	case errors.Is(err, ErrActiveTripConflict):
		return CodeActiveConflict
	case errors.Is(err, ErrDirectory):
		return CodeDirectory
	case IsValidation(err):
		return CodeValidation
	default:
		return CodeInternal
	}
}

// IsValidation reports whether err was caused by bad input.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidTripID),
		errors.Is(err, ErrInvalidCustomerID),
		errors.Is(err, ErrInvalidDriverID),
		errors.Is(err, ErrInvalidDriverIDs),
		errors.Is(err, ErrInvalidUserType),
		errors.Is(err, ErrInvalidRoute),
		errors.Is(err, ErrInvalidRating),
		errors.Is(err, ErrInvalidPaymentStatus),
		errors.Is(err, ErrInvalidPaymentMethod),
		errors.Is(err, ErrCustomerMismatch):
		return true
	}
	return false
}
