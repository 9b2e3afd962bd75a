package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/replygate/ReplyGate/internal/pkg/env"
)

// Entry is one cached value with its fetch timestamp and a last-write-wins
// version stamp. An entry is only valid while now - FetchedAt < TTL; the
// store enforces that via expiration, readers may re-check FetchedAt.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
	Version   int64           `json:"version"`
}

// Store is the explicit cache dependency handed to services. Implementations
// must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// NewEntry wraps a value for caching, stamping it with the current time.
func NewEntry(v any) (Entry, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Entry{}, err
	}
	now := time.Now().UTC()
	return Entry{Data: data, FetchedAt: now, Version: now.UnixNano()}, nil
}

// ---------------------------------------------------------------------------
// Redis store

type redisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing go-redis client.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

// NewRedisStoreFromEnv connects using CACHE_HOST/CACHE_PORT and pings once so
// misconfiguration shows up at startup instead of on the first request.
func NewRedisStoreFromEnv() Store {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	if pong, err := client.Ping(context.Background()).Result(); err != nil {
		log.Printf("Warning: Could not connect to cache server: %v", err)
	} else {
		log.Printf("Successfully connected to cache server: %s", pong)
	}

	return NewRedisStore(client)
}

func (s *redisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// Corrupted entry: drop it and report a miss.
		_ = s.client.Del(ctx, key).Err()
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	// Redis serializes writes per key, so last write wins without extra
	// coordination here.
	return s.client.Set(ctx, key, raw, ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// ---------------------------------------------------------------------------
// In-memory store

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore returns a process-local Store used in tests and single-node
// development runs.
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]memoryEntry)}
}

func (s *memoryStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	me, ok := s.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	if time.Now().After(me.expiresAt) {
		delete(s.entries, key)
		return Entry{}, false, nil
	}
	return me.entry, true, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Last write wins by version stamp: a concurrent older write must not
	// clobber a newer entry.
	if existing, ok := s.entries[key]; ok && existing.entry.Version > entry.Version {
		return nil
	}
	s.entries[key] = memoryEntry{entry: entry, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
