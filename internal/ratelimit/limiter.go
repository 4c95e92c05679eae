package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrRedisUnavailable  = errors.New("redis unavailable")
)

type Scope string

const (
	ScopeIP     Scope = "ip"
	ScopeAction Scope = "action"
)

type Decision struct {
	Scope      Scope
	Limit      int
	Remaining  int
	Reset      time.Time // When the window resets
	RetryAfter int       // Seconds
	Allowed    bool
}

type LimitConfig struct {
	Rate   int           `yaml:"rate"`
	Window time.Duration `yaml:"window"`
}

func (c LimitConfig) Enabled() bool {
	return c.Rate > 0 && c.Window > 0
}

// Fixed window anchored at the first hit: INCR, arm the expiry on the first
// hit, and report the remaining TTL so Reset is exact.
var windowScript = redis.NewScript(`
	local current = redis.call("INCR", KEYS[1])
	if tonumber(current) == 1 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
	end
	local ttl = redis.call("PTTL", KEYS[1])
	return {current, ttl}
`)

type Limiter struct {
	client *redis.Client
	salt   string // For IP hashing stability
	now    func() time.Time
}

func NewLimiter(client *redis.Client, salt string) *Limiter {
	if salt == "" {
		salt = "cctv-console"
	}
	return &Limiter{client: client, salt: salt, now: time.Now}
}

// HashIP keeps raw client addresses out of Redis.
func (l *Limiter) HashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip + l.salt))
	return hex.EncodeToString(hash[:])
}

func Key(scope Scope, parts ...string) string {
	key := "rl:" + string(scope)
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// CheckRateLimit counts one hit against key. Any Redis failure is reported
// as ErrRedisUnavailable so callers can pick a failure policy.
func (l *Limiter) CheckRateLimit(ctx context.Context, scope Scope, key string, config LimitConfig) (*Decision, error) {
	if !config.Enabled() {
		return nil, fmt.Errorf("ratelimit: invalid config rate=%d window=%s", config.Rate, config.Window)
	}

	res, err := windowScript.Run(ctx, l.client, []string{key}, config.Window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		return nil, ErrRedisUnavailable
	}
	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if ttl < 0 {
		ttl = config.Window
	}

	remaining := config.Rate - count
	if remaining < 0 {
		remaining = 0
	}

	retry := int((ttl + time.Second - 1) / time.Second)
	if retry < 1 {
		retry = 1
	}

	return &Decision{
		Scope:      scope,
		Limit:      config.Rate,
		Remaining:  remaining,
		Reset:      l.now().Add(ttl),
		RetryAfter: retry,
		Allowed:    count <= config.Rate,
	}, nil
}
