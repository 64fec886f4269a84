package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ride-trip/internal/domain"
	"ride-trip/internal/notify"
	"ride-trip/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is an in-memory TripRepository. Like the trips table it
// rejects a second WAITING_FOR_DRIVER trip per customer and a second APPROVED
// trip per driver.
type MockTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
	GetError    error
	UpdatePanic bool

	// Hook run inside FindActiveByDriverID, before the lookup.
	BeforeFindActiveDriver func()
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// AddTrip stores a trip without constraint checks.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip.Clone()
}

// GetTrip returns a copy of the stored trip for test assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil
	}
	return trip.Clone()
}

func (m *MockTripRepository) violates(trip *domain.Trip) bool {
	for id, other := range m.trips {
		if id == trip.ID || other.Status != trip.Status {
			continue
		}
		switch trip.Status {
		case domain.TripStatusWaitingForDriver:
			if other.Customer.ID == trip.Customer.ID {
				return true
			}
		case domain.TripStatusApproved:
			if other.DriverID() != "" && other.DriverID() == trip.DriverID() {
				return true
			}
		}
	}
	return false
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.violates(trip) {
		return repository.ErrActiveTripConflict
	}
	now := time.Now()
	trip.CreatedAt, trip.UpdatedAt = now, now
	m.trips[trip.ID] = trip.Clone()
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	return trip.Clone(), nil
}

func (m *MockTripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if m.UpdatePanic {
		panic("update exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[trip.ID]; !ok {
		return repository.ErrNotFound
	}
	if m.violates(trip) {
		return repository.ErrActiveTripConflict
	}
	trip.UpdatedAt = time.Now()
	m.trips[trip.ID] = trip.Clone()
	return nil
}

func (m *MockTripRepository) FindActiveByCustomerID(ctx context.Context, customerID string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, trip := range m.trips {
		if trip.Customer.ID == customerID && trip.Status == domain.TripStatusWaitingForDriver {
			return trip.Clone(), nil
		}
	}
	return nil, nil
}

func (m *MockTripRepository) FindActiveByDriverID(ctx context.Context, driverID string) (*domain.Trip, error) {
	if m.BeforeFindActiveDriver != nil {
		m.BeforeFindActiveDriver()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, trip := range m.trips {
		if trip.DriverID() == driverID && trip.Status == domain.TripStatusApproved {
			return trip.Clone(), nil
		}
	}
	return nil, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is an in-memory lock.Store with expiry.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	SetNXCallCount int32
	DelCallCount   int32

	// Error injection
	SetNXError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.SetNXCallCount, 1)
	if m.SetNXError != nil {
		return false, m.SetNXError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) Del(ctx context.Context, key string) (int64, error) {
	atomic.AddInt32(&m.DelCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks[key]
	delete(m.locks, key)
	if !exists || !time.Now().Before(expiry) {
		return 0, nil
	}
	return 1, nil
}

func (m *MockLockStore) PTTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks[key]
	if !exists || !time.Now().Before(expiry) {
		return -2, nil
	}
	return time.Until(expiry), nil
}

// IsLocked checks if a key is held (for test assertions).
func (m *MockLockStore) IsLocked(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks[key]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK DIRECTORY
// ──────────────────────────────────────────────

// MockDirectory is an in-memory ProfileDirectory.
type MockDirectory struct {
	mu       sync.Mutex
	profiles map[string]*domain.UserProfile
	active   map[string]string

	// Counters
	FindOneCallCount int32
	SetCallCount     int32
	RemoveCallCount  int32

	// Error injection
	FindOneError error
	SetError     error
	RemoveError  error
}

// NewMockDirectory creates a new mock directory.
func NewMockDirectory() *MockDirectory {
	return &MockDirectory{
		profiles: make(map[string]*domain.UserProfile),
		active:   make(map[string]string),
	}
}

// AddProfile adds a profile to the mock directory.
func (m *MockDirectory) AddProfile(p *domain.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

// ActiveTrip returns the active-trip pointer of a user (for test assertions).
func (m *MockDirectory) ActiveTrip(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[id]
}

func (m *MockDirectory) FindOne(ctx context.Context, id string, fields []string) (*domain.UserProfile, error) {
	atomic.AddInt32(&m.FindOneCallCount, 1)
	if m.FindOneError != nil {
		return nil, m.FindOneError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, errors.New("profile not found")
	}
	copy := *p
	return &copy, nil
}

func (m *MockDirectory) SetActiveTrip(ctx context.Context, id, tripID string) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[id] = tripID
	return nil
}

func (m *MockDirectory) RemoveActiveTrip(ctx context.Context, id string) error {
	atomic.AddInt32(&m.RemoveCallCount, 1)
	if m.RemoveError != nil {
		return m.RemoveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, id)
	return nil
}

// ──────────────────────────────────────────────
// MOCK ESTIMATOR, CACHE AND PUBLISHER
// ──────────────────────────────────────────────

// MockEstimator returns a fixed estimate.
type MockEstimator struct {
	Result domain.Estimate
	Error  error
}

func (m *MockEstimator) Estimate(ctx context.Context, route []domain.Waypoint) (domain.Estimate, error) {
	if m.Error != nil {
		return domain.Estimate{}, m.Error
	}
	return m.Result, nil
}

// MockTripCache is an in-memory TripCache.
type MockTripCache struct {
	mu    sync.Mutex
	trips map[string]*domain.Trip

	GetCallCount        int32
	InvalidateCallCount int32
}

// NewMockTripCache creates a new mock trip cache.
func NewMockTripCache() *MockTripCache {
	return &MockTripCache{trips: make(map[string]*domain.Trip)}
}

func (m *MockTripCache) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, nil
	}
	return trip.Clone(), nil
}

func (m *MockTripCache) SetTrip(ctx context.Context, trip *domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip.Clone()
	return nil
}

func (m *MockTripCache) InvalidateTrip(ctx context.Context, tripID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trips, tripID)
	return nil
}

// Cached reports whether a trip is cached (for test assertions).
func (m *MockTripCache) Cached(tripID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.trips[tripID]
	return ok
}

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []notify.Event

	PublishError error
}

func (m *MockPublisher) Publish(ctx context.Context, event notify.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.PublishError
}

// Types returns the published event types in order.
func (m *MockPublisher) Types() []notify.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]notify.EventType, len(m.events))
	for i, e := range m.events {
		types[i] = e.Type
	}
	return types
}

// Last returns the most recent event.
func (m *MockPublisher) Last() (notify.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return notify.Event{}, false
	}
	return m.events[len(m.events)-1], true
}
