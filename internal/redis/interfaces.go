package redis

import (
	"ride-trip/internal/lock"
	"ride-trip/internal/middleware"
	"ride-trip/internal/service"
)

// Ensure concrete types implement interfaces.
var (
	_ lock.Store        = (*LockStore)(nil)
	_ service.TripCache = (*CacheStore)(nil)

	_ middleware.ResponseStore = (*IdempotencyStore)(nil)
)
