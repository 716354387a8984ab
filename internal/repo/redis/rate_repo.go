package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// consumeScript trims, counts, and conditionally records the request in
// one atomic step, so concurrent requests for the same key cannot all
// observe a not-yet-full window. Returns {admitted, count, oldest score}.
var consumeScript = goredis.NewScript(`
local cutoff = ARGV[1]
local score = ARGV[2]
local member = ARGV[3]
local limit = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', cutoff)
local count = redis.call('ZCARD', KEYS[1])
local admitted = 0
if count < limit then
  redis.call('ZADD', KEYS[1], score, member)
  redis.call('PEXPIRE', KEYS[1], ttl)
  count = count + 1
  admitted = 1
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
local oldestScore = '0'
if oldest[2] then
  oldestScore = tostring(oldest[2])
end
return {admitted, count, oldestScore}
`)

// RateRepo is the shared sliding-window store: one sorted set per actor
// key, scored by request time in milliseconds, so every instance of the
// API sees the same trailing window.
type RateRepo struct {
	client *goredis.Client
	seq    atomic.Uint64
}

func NewRateRepo(client *goredis.Client) *RateRepo {
	return &RateRepo{client: client}
}

func (r *RateRepo) Consume(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, int, time.Time, error) {
	if r.client == nil {
		return false, 0, time.Time{}, fmt.Errorf("redis client is nil")
	}
	if key == "" || window <= 0 || limit <= 0 {
		return false, 0, time.Time{}, fmt.Errorf("invalid rate window payload")
	}

	setKey := "rate:qna:" + key
	cutoff := now.Add(-window).UnixMilli()
	// The sequence suffix keeps members unique when requests share a
	// millisecond; a duplicate member would be absorbed by ZADD and
	// undercount the window.
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + strconv.FormatUint(r.seq.Add(1), 10)

	res, err := consumeScript.Run(ctx, r.client, []string{setKey},
		cutoff, now.UnixMilli(), member, limit, window.Milliseconds()).Result()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("consume rate window: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 3 {
		return false, 0, time.Time{}, fmt.Errorf("consume rate window: unexpected reply %v", res)
	}

	admitted, _ := vals[0].(int64)
	count, _ := vals[1].(int64)
	oldest, err := parseOldest(vals[2])
	if err != nil {
		return admitted == 1, int(count), time.Time{}, err
	}

	return admitted == 1, int(count), oldest, nil
}

func parseOldest(v interface{}) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("read oldest rate entry: unexpected reply %v", v)
	}
	ms, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("read oldest rate entry: %w", err)
	}
	if ms <= 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(int64(ms)), nil
}
