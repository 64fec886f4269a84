package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// memStore is an in-memory Store with Redis-like expiry semantics.
type memStore struct {
	mu      sync.Mutex
	entries map[string]memEntry

	SetNXCallCount int32
	DelCallCount   int32

	SetNXError error
	DelError   error
}

type memEntry struct {
	value   string
	expires time.Time // zero means no expiry
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]memEntry)}
}

func (m *memStore) live(key string) (memEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memEntry{}, false
	}
	if !e.expires.IsZero() && !time.Now().Before(e.expires) {
		delete(m.entries, key)
		return memEntry{}, false
	}
	return e, true
}

func (m *memStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.SetNXCallCount, 1)
	if m.SetNXError != nil {
		return false, m.SetNXError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(key); ok {
		return false, nil
	}
	m.entries[key] = memEntry{value: value, expires: time.Now().Add(ttl)}
	return true, nil
}

func (m *memStore) Del(ctx context.Context, key string) (int64, error) {
	atomic.AddInt32(&m.DelCallCount, 1)
	if m.DelError != nil {
		return 0, m.DelError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(key); !ok {
		return 0, nil
	}
	delete(m.entries, key)
	return 1, nil
}

func (m *memStore) PTTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return -2, nil
	}
	if e.expires.IsZero() {
		return -1, nil
	}
	return time.Until(e.expires), nil
}

// setPersistent stores a key without expiry.
func (m *memStore) setPersistent(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memEntry{value: "x"}
}

func newTestCoordinator(store Store) (*Coordinator, *[]time.Duration) {
	c := NewCoordinator(store, Config{}, nil)
	var sleeps []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return c, &sleeps
}

func TestNewCoordinator_Defaults(t *testing.T) {
	c := NewCoordinator(newMemStore(), Config{}, nil)

	if c.defaults.ttl != 30*time.Second {
		t.Errorf("expected default ttl 30s, got %v", c.defaults.ttl)
	}
	if c.defaults.retries != 1 {
		t.Errorf("expected default retries 1, got %d", c.defaults.retries)
	}
	if c.defaults.retryDelay != 200*time.Millisecond {
		t.Errorf("expected default retry delay 200ms, got %v", c.defaults.retryDelay)
	}
}

func TestAcquire_SecondCallerFailsWithoutRetry(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	c, sleeps := newTestCoordinator(store)

	ok, err := c.Acquire(ctx, "trip:1")
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, got %v %v", ok, err)
	}

	ok, err = c.Acquire(ctx, "trip:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected second acquire to fail")
	}
	if len(*sleeps) != 0 {
		t.Errorf("expected no sleeps with a single attempt, got %d", len(*sleeps))
	}

	// Different keys are independent.
	ok, _ = c.Acquire(ctx, "trip:2")
	if !ok {
		t.Error("expected a different key to be acquirable")
	}
}

func TestAcquire_RetriesWithFixedDelay(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	c, sleeps := newTestCoordinator(store)

	if ok, _ := c.Acquire(ctx, "trip:1"); !ok {
		t.Fatal("setup acquire failed")
	}

	ok, err := c.Acquire(ctx, "trip:1", WithRetries(4), WithRetryDelay(50*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected acquire to fail while held")
	}

	if store.SetNXCallCount != 5 {
		t.Errorf("expected 5 SetNX calls (1 setup + 4 attempts), got %d", store.SetNXCallCount)
	}
	if len(*sleeps) != 3 {
		t.Fatalf("expected 3 pauses between 4 attempts, got %d", len(*sleeps))
	}
	for i, d := range *sleeps {
		if d != 50*time.Millisecond {
			t.Errorf("pause %d: expected fixed 50ms, got %v", i, d)
		}
	}
}

func TestAcquire_SucceedsOnLaterAttempt(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	c, _ := newTestCoordinator(store)

	if ok, _ := c.Acquire(ctx, "trip:1"); !ok {
		t.Fatal("setup acquire failed")
	}

	// The holder releases while the second caller is pausing.
	c.sleep = func(ctx context.Context, d time.Duration) error {
		_, _ = c.Release(ctx, "trip:1")
		return nil
	}

	ok, err := c.Acquire(ctx, "trip:1", WithRetries(3))
	if err != nil || !ok {
		t.Fatalf("expected acquire to succeed on retry, got %v %v", ok, err)
	}
}

func TestAcquire_ExpiredLockIsReacquirable(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCoordinator(newMemStore())

	if ok, _ := c.Acquire(ctx, "trip:1", WithTTL(10*time.Millisecond)); !ok {
		t.Fatal("setup acquire failed")
	}

	time.Sleep(20 * time.Millisecond)

	// A slow holder loses its lock once the TTL passes; a second caller gets in.
	if ok, _ := c.Acquire(ctx, "trip:1"); !ok {
		t.Error("expected expired lock to be acquirable")
	}
}

func TestAcquire_ContextCancelledDuringPause(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, Config{}, nil)

	if ok, _ := c.Acquire(context.Background(), "trip:1"); !ok {
		t.Fatal("setup acquire failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Acquire(ctx, "trip:1", WithRetries(3), WithRetryDelay(time.Second))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAcquire_StoreError(t *testing.T) {
	store := newMemStore()
	store.SetNXError = errors.New("connection refused")
	c, _ := newTestCoordinator(store)

	ok, err := c.Acquire(context.Background(), "trip:1")
	if ok || err == nil {
		t.Fatalf("expected store error, got %v %v", ok, err)
	}
	if !errors.Is(err, store.SetNXError) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCoordinator(newMemStore())

	if released, _ := c.Release(ctx, "trip:1"); released {
		t.Error("expected release of a never-held key to report false")
	}

	_, _ = c.Acquire(ctx, "trip:1")

	released, err := c.Release(ctx, "trip:1")
	if err != nil || !released {
		t.Fatalf("expected release to succeed, got %v %v", released, err)
	}

	if released, _ := c.Release(ctx, "trip:1"); released {
		t.Error("expected second release to report false")
	}
}

func TestRelease_NotOwnershipChecked(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	holder, _ := newTestCoordinator(store)
	other, _ := newTestCoordinator(store)

	_, _ = holder.Acquire(ctx, "trip:1")

	// A caller that never acquired the lock can still remove it.
	if ok, _ := other.Acquire(ctx, "trip:1"); ok {
		t.Fatal("expected other to fail acquiring")
	}
	if released, _ := other.Release(ctx, "trip:1"); !released {
		t.Error("expected unowned release to delete the key")
	}
}

func TestRemainingTTL(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	c, _ := newTestCoordinator(store)

	ttl, err := c.RemainingTTL(ctx, "trip:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ttl != TTLKeyMissing {
		t.Errorf("expected %d for a missing key, got %d", TTLKeyMissing, ttl)
	}

	_, _ = c.Acquire(ctx, "trip:1", WithTTL(5*time.Second))
	ttl, _ = c.RemainingTTL(ctx, "trip:1")
	if ttl <= 0 || ttl > 5000 {
		t.Errorf("expected remaining ttl in (0, 5000], got %d", ttl)
	}

	store.setPersistent(keyPrefix + "trip:2")
	ttl, _ = c.RemainingTTL(ctx, "trip:2")
	if ttl != TTLNoExpiry {
		t.Errorf("expected %d for a key without expiry, got %d", TTLNoExpiry, ttl)
	}
}

func TestExecuteWithLock_Success(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	c, _ := newTestCoordinator(store)

	res := ExecuteWithLock(ctx, c, "trip:1", func(ctx context.Context) (string, error) {
		ttl, _ := c.RemainingTTL(ctx, "trip:1")
		if ttl <= 0 {
			t.Error("expected lock to be held while the operation runs")
		}
		return "done", nil
	})

	if !res.Success || res.Value != "done" || res.Err != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if ttl, _ := c.RemainingTTL(ctx, "trip:1"); ttl != TTLKeyMissing {
		t.Error("expected lock to be released after success")
	}
}

func TestExecuteWithLock_ReleasesAfterError(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCoordinator(newMemStore())
	opErr := errors.New("boom")

	res := ExecuteWithLock(ctx, c, "trip:1", func(ctx context.Context) (int, error) {
		return 0, opErr
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Message != "boom" || !errors.Is(res.Err, opErr) {
		t.Errorf("unexpected result: %+v", res)
	}

	if ok, _ := c.Acquire(ctx, "trip:1", WithRetries(1)); !ok {
		t.Error("expected lock to be free after a failed operation")
	}
}

func TestExecuteWithLock_ReleasesAfterPanic(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCoordinator(newMemStore())

	res := ExecuteWithLock(ctx, c, "trip:1", func(ctx context.Context) (int, error) {
		panic("unexpected nil trip")
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, ErrOperationPanicked) {
		t.Errorf("expected ErrOperationPanicked, got %v", res.Err)
	}
	if res.Message != "unexpected nil trip" {
		t.Errorf("unexpected message: %q", res.Message)
	}

	if ok, _ := c.Acquire(ctx, "trip:1", WithRetries(1)); !ok {
		t.Error("expected lock to be free after a panicking operation")
	}
}

func TestExecuteWithLock_ReleasesWhenContextCancelled(t *testing.T) {
	store := newMemStore()
	c, _ := newTestCoordinator(store)
	ctx, cancel := context.WithCancel(context.Background())

	res := ExecuteWithLock(ctx, c, "trip:1", func(ctx context.Context) (int, error) {
		cancel()
		return 0, ctx.Err()
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	if ttl, _ := c.RemainingTTL(context.Background(), "trip:1"); ttl != TTLKeyMissing {
		t.Error("expected lock to be released even though the context was cancelled")
	}
}

func TestExecuteWithLock_BusyDoesNotRunOperation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	c, _ := newTestCoordinator(store)

	_, _ = c.Acquire(ctx, "trip:1")

	ran := false
	res := ExecuteWithLock(ctx, c, "trip:1", func(ctx context.Context) (int, error) {
		ran = true
		return 1, nil
	}, WithFailureMessage("trip is locked"))

	if ran {
		t.Fatal("operation must not run without the lock")
	}
	if res.Success || res.Message != "trip is locked" || !errors.Is(res.Err, ErrNotAcquired) {
		t.Errorf("unexpected result: %+v", res)
	}
	if store.DelCallCount != 0 {
		t.Errorf("a caller that never acquired must not release, got %d deletes", store.DelCallCount)
	}

	res = ExecuteWithLock(ctx, c, "trip:1", func(ctx context.Context) (int, error) { return 1, nil })
	if res.Message != "Failed to acquire lock for key: trip:1" {
		t.Errorf("unexpected default message: %q", res.Message)
	}
}

func TestExecuteWithLock_SerializesConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(newMemStore(), Config{RetryDelay: time.Millisecond}, nil)

	var inside, maxInside, done int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := ExecuteWithLock(ctx, c, "trip:1", func(ctx context.Context) (int, error) {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return 0, nil
			}, WithRetries(500))
			if res.Success {
				atomic.AddInt32(&done, 1)
			}
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("expected at most one holder at a time, saw %d", maxInside)
	}
	if done != 8 {
		t.Errorf("expected all 8 callers to eventually run, got %d", done)
	}
}
