package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/suPer8Hu/prompt-lab/internal/chat"
)

const (
	activeSessionKey = "prompt-lab:active_session"
	rateKeyPrefix    = "prompt-lab:rate:"
)

var (
	// deletes the key only while it still holds ARGV[1]
	clearIfScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	// fixed window counter: the first hit starts the window
	hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`)
)

// Store keeps state shared by every server and worker process: the
// active-session pointer and rate limit counters.
type Store struct {
	rdb redis.UniversalClient
}

var _ chat.ActiveSession = (*Store)(nil)

func New(addr, password string, db int) *Store {
	return NewFromClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

func NewFromClient(rdb redis.UniversalClient) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) Get(ctx context.Context) (string, bool, error) {
	id, err := s.rdb.Get(ctx, activeSessionKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, id != "", nil
}

func (s *Store) Set(ctx context.Context, sessionID string) error {
	return s.rdb.Set(ctx, activeSessionKey, sessionID, 0).Err()
}

func (s *Store) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, activeSessionKey).Err()
}

func (s *Store) ClearIf(ctx context.Context, sessionID string) error {
	return clearIfScript.Run(ctx, s.rdb, []string{activeSessionKey}, sessionID).Err()
}

// Allow counts one hit for key and reports whether it is within limit hits
// per window.
func (s *Store) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := hitScript.Run(ctx, s.rdb, []string{rateKeyPrefix + key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n <= int64(limit), nil
}
