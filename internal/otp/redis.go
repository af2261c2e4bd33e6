package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "otp:"

// RedisStore keeps each code in a hash {code, attempts} whose TTL is the code's lifetime,
// so several API instances share the same pending codes.
type RedisStore struct {
	client      redis.UniversalClient
	maxAttempts int
}

func NewRedisStore(client redis.UniversalClient, maxAttempts int) *RedisStore {
	return &RedisStore{client: client, maxAttempts: maxAttempts}
}

func (s *RedisStore) key(phone string) string {
	return keyPrefix + phone
}

func (s *RedisStore) Save(ctx context.Context, phone, code string, ttl time.Duration) error {
	key := s.key(phone)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "code", code, "attempts", 0)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save otp: %w", err)
	}
	return nil
}

// verifyScript checks and consumes a code in one step. A key that expired between
// calls is never recreated by the attempt counter.
var verifyScript = redis.NewScript(`
local stored = redis.call("HGET", KEYS[1], "code")
if not stored then
	return 0
end
if stored == ARGV[1] then
	redis.call("DEL", KEYS[1])
	return 1
end
local attempts = redis.call("HINCRBY", KEYS[1], "attempts", 1)
if attempts >= tonumber(ARGV[2]) then
	redis.call("DEL", KEYS[1])
	return 3
end
return 2
`)

const (
	verifyMissing = iota
	verifyOK
	verifyMismatch
	verifyExhausted
)

// Verify cannot tell an expired code from one never issued; both surface as ErrNotFound.
func (s *RedisStore) Verify(ctx context.Context, phone, code string) error {
	result, err := verifyScript.Run(ctx, s.client, []string{s.key(phone)}, code, s.maxAttempts).Int()
	if err != nil {
		return fmt.Errorf("failed to verify otp: %w", err)
	}
	switch result {
	case verifyOK:
		return nil
	case verifyMismatch:
		return ErrMismatch
	case verifyExhausted:
		return ErrTooManyAttempts
	}
	return ErrNotFound
}

func (s *RedisStore) Delete(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, s.key(phone)).Err(); err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}
