// Package revocation checks whether an access token has been revoked,
// keyed by the token's jti claim. The check sits on the request critical
// path, so it runs under a short timeout and reports store failures as an
// explicit StatusUnavailable instead of an error the caller might be
// tempted to fail on. The fail-soft policy (unavailable counts as "not
// revoked") belongs to the caller and is visible in the Status type.
package revocation

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status is the tri-state outcome of a revocation check.
type Status uint8

const (
	// StatusNotRevoked means the store answered and the token is live.
	StatusNotRevoked Status = iota
	// StatusRevoked means the store answered and the token is revoked.
	StatusRevoked
	// StatusUnavailable means the store failed or timed out; the caller
	// decides what that means. This subsystem treats it as not revoked.
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusNotRevoked:
		return "not_revoked"
	case StatusRevoked:
		return "revoked"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Checker answers revocation queries.
type Checker interface {
	// Check never returns a hard failure: the error is diagnostic detail
	// accompanying StatusUnavailable, for logging only.
	Check(ctx context.Context, jti string) (Status, error)
}

// Config for the Redis-backed store.
type Config struct {
	CheckTimeout time.Duration `env:"REVOCATION_CHECK_TIMEOUT" envDefault:"150ms"` // CheckTimeout bounds each lookup; it sits on the request critical path.
	KeyPrefix    string        `env:"REVOCATION_KEY_PREFIX" envDefault:"revoked_jti:"`
}

// existsClient is the slice of the Redis API the store needs.
// *redis.Client satisfies it; tests provide fakes.
type existsClient interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore checks a Redis blacklist of revoked jti values.
type RedisStore struct {
	client  existsClient
	timeout time.Duration
	prefix  string
}

// NewRedisStore creates a Checker backed by the given Redis client.
func NewRedisStore(client *redis.Client, cfg Config) *RedisStore {
	return newRedisStore(client, cfg)
}

func newRedisStore(client existsClient, cfg Config) *RedisStore {
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = 150 * time.Millisecond
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "revoked_jti:"
	}
	return &RedisStore{
		client:  client,
		timeout: cfg.CheckTimeout,
		prefix:  cfg.KeyPrefix,
	}
}

// Check looks up the jti in the blacklist under the configured timeout.
func (s *RedisStore) Check(ctx context.Context, jti string) (Status, error) {
	if jti == "" {
		return StatusNotRevoked, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return StatusUnavailable, err
	}
	if n > 0 {
		return StatusRevoked, nil
	}
	return StatusNotRevoked, nil
}

// Healthcheck returns a probe for readiness endpoints.
func Healthcheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
