package domain

// UserType distinguishes the two parties of a trip.
type UserType string

const (
	UserTypeCustomer UserType = "customer"
	UserTypeDriver   UserType = "driver"
)

// IsValid reports whether u is a known user type.
func (u UserType) IsValid() bool {
	return u == UserTypeCustomer || u == UserTypeDriver
}

// Vehicle describes the customer's own vehicle (the driver drives it).
type Vehicle struct {
	TransmissionType string `json:"transmissionType,omitempty"`
	LicensePlate     string `json:"licensePlate,omitempty"`
}

// CustomerSnapshot is a copy of the customer profile taken when the trip was created.
type CustomerSnapshot struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Surname  string   `json:"surname,omitempty"`
	Rating   *float64 `json:"rate,omitempty"`
	Vehicle  *Vehicle `json:"vehicle,omitempty"`
	PhotoKey string   `json:"photoKey,omitempty"`
}

// CustomerProfileFields is the projection requested from the directory when creating a trip.
var CustomerProfileFields = []string{"name", "surname", "rate", "vehicle", "photoKey"}

func (c CustomerSnapshot) clone() CustomerSnapshot {
	if c.Rating != nil {
		r := *c.Rating
		c.Rating = &r
	}
	if c.Vehicle != nil {
		v := *c.Vehicle
		c.Vehicle = &v
	}
	return c
}

// UserProfile is the subset of a directory profile this service reads.
type UserProfile struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Surname  string   `json:"surname,omitempty"`
	Rating   *float64 `json:"rate,omitempty"`
	Vehicle  *Vehicle `json:"vehicle,omitempty"`
	PhotoKey string   `json:"photoKey,omitempty"`
}

// CustomerSnapshot copies the profile into a customer snapshot for user id.
func (p UserProfile) CustomerSnapshot(id string) CustomerSnapshot {
	return CustomerSnapshot{
		ID:       id,
		Name:     p.Name,
		Surname:  p.Surname,
		Rating:   p.Rating,
		Vehicle:  p.Vehicle,
		PhotoKey: p.PhotoKey,
	}.clone()
}

// DriverSnapshot copies the profile into a driver snapshot for user id.
func (p UserProfile) DriverSnapshot(id string) *DriverSnapshot {
	d := &DriverSnapshot{
		ID:       id,
		Name:     p.Name,
		Surname:  p.Surname,
		PhotoKey: p.PhotoKey,
	}
	if p.Rating != nil {
		r := *p.Rating
		d.Rating = &r
	}
	return d
}
