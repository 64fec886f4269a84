package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"ride-trip/internal/domain"
	"ride-trip/internal/lock"
	"ride-trip/internal/statemachine"
)

type fixture struct {
	svc       *TripOrchestrator
	trips     *MockTripRepository
	lockStore *MockLockStore
	customers *MockDirectory
	drivers   *MockDirectory
	cache     *MockTripCache
	events    *MockPublisher
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		trips:     NewMockTripRepository(),
		lockStore: NewMockLockStore(),
		customers: NewMockDirectory(),
		drivers:   NewMockDirectory(),
		cache:     NewMockTripCache(),
		events:    &MockPublisher{},
	}

	logger := discardLogger()
	rating := 4.9
	f.customers.AddProfile(&domain.UserProfile{ID: "cust-1", Name: "Ada", Surname: "Lovelace", Rating: &rating, Vehicle: &domain.Vehicle{TransmissionType: "automatic", LicensePlate: "34ABC12"}})
	f.customers.AddProfile(&domain.UserProfile{ID: "cust-2", Name: "Alan"})
	f.drivers.AddProfile(&domain.UserProfile{ID: "drv-1", Name: "Sam", Surname: "Carter", Rating: &rating, PhotoKey: "drivers/drv-1.jpg"})
	f.drivers.AddProfile(&domain.UserProfile{ID: "drv-2", Name: "Kim"})

	f.svc = NewTripOrchestrator(TripOrchestratorDeps{
		Trips:        f.trips,
		Locks:        lock.NewCoordinator(f.lockStore, lock.Config{RetryDelay: time.Millisecond}, logger),
		StateMachine: statemachine.New(),
		Customers:    f.customers,
		Drivers:      f.drivers,
		Estimator:    &MockEstimator{Result: domain.Estimate{Distance: 5000, Duration: 600, Cost: 10}},
		Cache:        f.cache,
		Notifier:     NewNotificationService(f.events, logger),
		Logger:       logger,
	})
	return f
}

var testRoute = []domain.Waypoint{
	{Lat: 41.0082, Lon: 28.9784, Name: "Sultanahmet"},
	{Lat: 41.0369, Lon: 28.9850, Name: "Taksim"},
}

// seed stores a trip in the given status for customer cust-1.
func (f *fixture) seed(id string, status domain.TripStatus) *domain.Trip {
	trip := &domain.Trip{
		ID:                id,
		Status:            status,
		Customer:          domain.CustomerSnapshot{ID: "cust-1", Name: "Ada"},
		Route:             testRoute,
		PaymentStatus:     domain.PaymentStatusUnpaid,
		CalledDriverIDs:   []string{},
		RejectedDriverIDs: []string{},
	}
	f.trips.AddTrip(trip)
	return trip
}

// seedWithDriver stores a trip in the given status with driverID attached.
func (f *fixture) seedWithDriver(id string, status domain.TripStatus, driverID string) *domain.Trip {
	trip := &domain.Trip{
		ID:                id,
		Status:            status,
		Customer:          domain.CustomerSnapshot{ID: "cust-1", Name: "Ada"},
		Driver:            &domain.DriverSnapshot{ID: driverID},
		Route:             testRoute,
		PaymentStatus:     domain.PaymentStatusUnpaid,
		CalledDriverIDs:   []string{driverID},
		RejectedDriverIDs: []string{},
	}
	f.trips.AddTrip(trip)
	return trip
}

func expectFailure(t *testing.T, res Result, code string) {
	t.Helper()

	if res.Success {
		t.Fatalf("expected failure with %s, got success", code)
	}
	if res.Code() != code {
		t.Fatalf("expected code %s, got %s (%s)", code, res.Code(), res.Message)
	}
	if res.Message == "" {
		t.Error("expected a failure message")
	}
}

func expectSuccess(t *testing.T, res Result) *domain.Trip {
	t.Helper()

	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Code(), res.Message)
	}
	if res.Trip == nil {
		t.Fatal("expected a trip in the result")
	}
	return res.Trip
}
