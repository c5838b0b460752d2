package deliverability

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Lua script for atomic check-and-increment against the hourly and daily
// counters. Checks both limits BEFORE incrementing, so a denial leaves the
// counters untouched; a GET → check → INCR sequence from Go would race
// against other dispatcher processes.
const admitLuaScript = `
local hourKey = KEYS[1]
local dayKey = KEYS[2]
local hourLimit = tonumber(ARGV[1])
local dayLimit = tonumber(ARGV[2])
local hourTTL = tonumber(ARGV[3])
local dayTTL = tonumber(ARGV[4])

local hourCurrent = tonumber(redis.call("GET", hourKey) or "0")
local dayCurrent = tonumber(redis.call("GET", dayKey) or "0")

if hourCurrent + 1 > hourLimit then
    return {0, 1, hourCurrent}
end
if dayCurrent + 1 > dayLimit then
    return {0, 2, dayCurrent}
end

local newHour = redis.call("INCR", hourKey)
if newHour == 1 then
    redis.call("EXPIRE", hourKey, hourTTL)
end

local newDay = redis.call("INCR", dayKey)
if newDay == 1 then
    redis.call("EXPIRE", dayKey, dayTTL)
end

return {1, 0, newDay}
`

// RedisAdmitter is the distributed counterpart of AdmissionCoordinator:
// when multiple dispatcher processes share one sending identity, the cap
// counters live in Redis and check-and-record runs as one atomic Lua call.
// Quiet hours and minimum spacing are stateless and stay local.
type RedisAdmitter struct {
	redis  *redis.Client
	gate   *Gate
	script *redis.Script

	// keyPrefix isolates counters per sending identity.
	keyPrefix string

	// now is swappable for tests.
	now func() time.Time
}

// NewRedisAdmitter wires an admitter onto an existing Redis client. The
// prefix names the sending identity the caps protect.
func NewRedisAdmitter(client *redis.Client, gate *Gate, keyPrefix string) *RedisAdmitter {
	return &RedisAdmitter{
		redis:     client,
		gate:      gate,
		script:    redis.NewScript(admitLuaScript),
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// NewRedisAdmitterFromURL connects to Redis and verifies the connection
// before returning an admitter.
func NewRedisAdmitterFromURL(redisURL string, gate *Gate, keyPrefix string) (*RedisAdmitter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	log.Printf("[Admitter] Connected to Redis for %q caps", keyPrefix)

	return NewRedisAdmitter(client, gate, keyPrefix), nil
}

// Admit atomically checks and reserves one send slot. A denial reports the
// failing cap and leaves the counters unchanged.
func (a *RedisAdmitter) Admit(ctx context.Context, candidate domain.ScheduledSend) (bool, RejectReason, error) {
	now := a.now()

	if a.gate.inQuietHours(now.Hour()) {
		return false, ReasonQuietHours, nil
	}
	if wait := candidate.ScheduledAt.Sub(now); wait > 0 && wait < a.gate.MinSpacing {
		return false, ReasonMinSpacing, nil
	}

	hourKey := fmt.Sprintf("admit:%s:hour:%s", a.keyPrefix, now.Format("2006-01-02T15"))
	dayKey := fmt.Sprintf("admit:%s:day:%s", a.keyPrefix, now.Format("2006-01-02"))

	result, err := a.script.Run(ctx, a.redis,
		[]string{hourKey, dayKey},
		a.gate.HourlyLimit,
		a.gate.DailyLimit,
		7200,  // hour TTL with slack
		90000, // daily TTL (25 hours)
	).Slice()
	if err != nil {
		return false, ReasonNone, fmt.Errorf("admission check failed: %w", err)
	}

	if result[0].(int64) == 1 {
		return true, ReasonNone, nil
	}
	switch result[1].(int64) {
	case 1:
		return false, ReasonHourlyCap, nil
	default:
		return false, ReasonDailyCap, nil
	}
}

// Usage reports the current hourly and daily counter values, for the
// schedule-summary surface.
func (a *RedisAdmitter) Usage(ctx context.Context) (map[string]int64, error) {
	now := a.now()
	hourKey := fmt.Sprintf("admit:%s:hour:%s", a.keyPrefix, now.Format("2006-01-02T15"))
	dayKey := fmt.Sprintf("admit:%s:day:%s", a.keyPrefix, now.Format("2006-01-02"))

	pipe := a.redis.Pipeline()
	hourCmd := pipe.Get(ctx, hourKey)
	dayCmd := pipe.Get(ctx, dayKey)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("usage read failed: %w", err)
	}

	hour, _ := hourCmd.Int64()
	day, _ := dayCmd.Int64()

	return map[string]int64{
		"hourly_current": hour,
		"hourly_limit":   int64(a.gate.HourlyLimit),
		"daily_current":  day,
		"daily_limit":    int64(a.gate.DailyLimit),
	}, nil
}

// Close closes the underlying Redis connection.
func (a *RedisAdmitter) Close() error {
	return a.redis.Close()
}
