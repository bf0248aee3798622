package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore keeps short-lived opaque values such as revoked session tokens
// and email verification tokens.
type TokenStore interface {
	// Put stores value under key until ttl elapses.
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Take returns the value under key and removes it.
	Take(ctx context.Context, key string) (string, bool, error)
	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)
}

// NewTokenStore prefers Redis and falls back to process memory when no client
// is configured.
func NewTokenStore(rc *redis.Client) TokenStore {
	if rc == nil {
		return NewMemoryTokenStore()
	}
	return &redisTokenStore{rc: rc}
}

type redisTokenStore struct {
	rc *redis.Client
}

func (s *redisTokenStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.rc.Set(ctx, key, value, ttl).Err()
}

// takeScript is the GET+DEL fallback for servers without GETDEL (< 6.2).
const takeScript = `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`

func (s *redisTokenStore) Take(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rc.GetDel(ctx, key).Result()
	if err == nil {
		return val, true, nil
	}
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	res, err := s.rc.Eval(ctx, takeScript, []string{key}).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	str, ok := res.(string)
	return str, ok, nil
}

func (s *redisTokenStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rc.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type tokenEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryTokenStore is the in-process TokenStore. Expired entries are dropped
// lazily on access.
type MemoryTokenStore struct {
	mu      sync.Mutex
	entries map[string]tokenEntry
	now     func() time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{entries: map[string]tokenEntry{}, now: time.Now}
}

func (s *MemoryTokenStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	s.entries[key] = tokenEntry{value: value, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) Take(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(key)
	if !ok {
		return "", false, nil
	}
	delete(s.entries, key)
	return entry.value, true, nil
}

func (s *MemoryTokenStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live(key)
	return ok, nil
}

func (s *MemoryTokenStore) live(key string) (tokenEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return tokenEntry{}, false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return tokenEntry{}, false
	}
	return entry, true
}
