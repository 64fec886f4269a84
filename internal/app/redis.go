package app

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ride-trip/internal/config"
)

// NewRedisClient creates a new Redis client with optional New Relic instrumentation.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, nrApp *newrelic.Application) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if nrApp != nil {
		client.AddHook(newNRRedisHook(cfg))
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// Datastore collections reported for the key namespaces of this service.
const (
	collectionTripLock    = "trip_lock"
	collectionTripCache   = "trip_cache"
	collectionIdempotency = "idempotency"
	collectionOther       = "redis"
)

var keyNamespaces = []struct {
	prefix     string
	collection string
}{
	{"lock:trip:", collectionTripLock},
	{"cache:trip:", collectionTripCache},
	{"idempotency:", collectionIdempotency},
}

// redisCollection maps the key a command touches to its datastore collection.
func redisCollection(cmd redis.Cmder) string {
	args := cmd.Args()
	if len(args) < 2 {
		return collectionOther
	}
	key, ok := args[1].(string)
	if !ok {
		return collectionOther
	}
	for _, ns := range keyNamespaces {
		if strings.HasPrefix(key, ns.prefix) {
			return ns.collection
		}
	}
	return collectionOther
}

// pipelineCollection reports a single collection when every command shares one.
func pipelineCollection(cmds []redis.Cmder) string {
	if len(cmds) == 0 {
		return collectionOther
	}
	collection := redisCollection(cmds[0])
	for _, cmd := range cmds[1:] {
		if redisCollection(cmd) != collection {
			return collectionOther
		}
	}
	return collection
}

// nrRedisHook implements redis.Hook for New Relic instrumentation.
type nrRedisHook struct {
	host     string
	port     string
	database string
}

func newNRRedisHook(cfg config.RedisConfig) *nrRedisHook {
	host, port, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		host = cfg.Addr
	}
	return &nrRedisHook{host: host, port: port, database: strconv.Itoa(cfg.DB)}
}

func (h *nrRedisHook) segment(txn *newrelic.Transaction, operation, collection string) *newrelic.DatastoreSegment {
	return &newrelic.DatastoreSegment{
		StartTime:    txn.StartSegmentNow(),
		Product:      newrelic.DatastoreRedis,
		Operation:    operation,
		Collection:   collection,
		Host:         h.host,
		PortPathOrID: h.port,
		DatabaseName: h.database,
	}
}

func (h *nrRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *nrRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if txn := newrelic.FromContext(ctx); txn != nil {
			defer h.segment(txn, cmd.Name(), redisCollection(cmd)).End()
		}
		return next(ctx, cmd)
	}
}

func (h *nrRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if txn := newrelic.FromContext(ctx); txn != nil {
			defer h.segment(txn, "pipeline", pipelineCollection(cmds)).End()
		}
		return next(ctx, cmds)
	}
}
