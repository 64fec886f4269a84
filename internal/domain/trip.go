package domain

import "time"

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusDraft               TripStatus = "DRAFT"
	TripStatusWaitingForDriver    TripStatus = "WAITING_FOR_DRIVER"
	TripStatusDriverNotFound      TripStatus = "DRIVER_NOT_FOUND"
	TripStatusApproved            TripStatus = "APPROVED"
	TripStatusDriverOnWayToPickup TripStatus = "DRIVER_ON_WAY_TO_PICKUP"
	TripStatusArrivedAtPickup     TripStatus = "ARRIVED_AT_PICKUP"
	TripStatusTripInProgress      TripStatus = "TRIP_IN_PROGRESS"
	TripStatusPayment             TripStatus = "PAYMENT"
	TripStatusCompleted           TripStatus = "COMPLETED"
	TripStatusCancelled           TripStatus = "CANCELLED"
)

// AllTripStatuses lists every status in lifecycle order.
var AllTripStatuses = []TripStatus{
	TripStatusDraft,
	TripStatusWaitingForDriver,
	TripStatusDriverNotFound,
	TripStatusApproved,
	TripStatusDriverOnWayToPickup,
	TripStatusArrivedAtPickup,
	TripStatusTripInProgress,
	TripStatusPayment,
	TripStatusCompleted,
	TripStatusCancelled,
}

// IsTerminal reports whether no further transition is possible from s.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// Trip is the aggregate record of one ride request, from creation to a terminal state.
type Trip struct {
	ID       string           `json:"id"`
	Status   TripStatus       `json:"status"`
	Customer CustomerSnapshot `json:"customer"`
	Driver   *DriverSnapshot  `json:"driver,omitempty"`
	Route    []Waypoint       `json:"route"`

	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	PaymentMethodID string        `json:"paymentMethodId,omitempty"`
	Rating          *float64      `json:"rating,omitempty"`
	Comment         string        `json:"comment,omitempty"`

	EstimatedDistance float64 `json:"estimatedDistance"` // meters
	EstimatedDuration float64 `json:"estimatedDuration"` // seconds
	EstimatedCost     float64 `json:"estimatedCost"`

	CalledDriverIDs   []string   `json:"calledDriverIds"`
	RejectedDriverIDs []string   `json:"rejectedDriverIds"`
	CallStartTime     *time.Time `json:"callStartTime,omitempty"`
	CallRetryCount    int        `json:"callRetryCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DriverID returns the id of the attached driver, or "" when none is attached.
func (t *Trip) DriverID() string {
	if t.Driver == nil {
		return ""
	}
	return t.Driver.ID
}

// HasRejected reports whether driverID has already declined this trip.
func (t *Trip) HasRejected(driverID string) bool {
	for _, id := range t.RejectedDriverIDs {
		if id == driverID {
			return true
		}
	}
	return false
}

// AllCalledRejected reports whether every driver of the current call round has declined.
// An empty call round never counts as fully rejected.
func (t *Trip) AllCalledRejected() bool {
	if len(t.CalledDriverIDs) == 0 {
		return false
	}
	for _, id := range t.CalledDriverIDs {
		if !t.HasRejected(id) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the trip.
func (t *Trip) Clone() *Trip {
	c := *t
	c.Customer = t.Customer.clone()
	if t.Driver != nil {
		d := *t.Driver
		c.Driver = &d
	}
	if t.Rating != nil {
		r := *t.Rating
		c.Rating = &r
	}
	if t.CallStartTime != nil {
		ts := *t.CallStartTime
		c.CallStartTime = &ts
	}
	c.Route = append([]Waypoint(nil), t.Route...)
	c.CalledDriverIDs = append([]string(nil), t.CalledDriverIDs...)
	c.RejectedDriverIDs = append([]string(nil), t.RejectedDriverIDs...)
	return &c
}
