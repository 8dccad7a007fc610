package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session binding: an opaque token travels as a cookie and maps to the
// player/room pair it logged in as. A reconnect inside the TTL reattaches
// to the same player; expiry is equivalent to an explicit leave.

const sessionCookieName = "ludod_session"

type sessionBinding struct {
	PlayerID string `json:"playerId"`
	RoomID   string `json:"roomId"`
}

// sessionStore is the whole contract with the backing store: get, set with
// expiry, delete.
type sessionStore interface {
	get(ctx context.Context, token string) (sessionBinding, bool, error)
	set(ctx context.Context, token string, b sessionBinding, ttl time.Duration) error
	delete(ctx context.Context, token string) error
}

// getOrSetSessionToken reads the session cookie, minting a fresh token
// when the client has none.
func getOrSetSessionToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	token := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return token
}

// ---- in-memory store ----

type memoryEntry struct {
	binding sessionBinding
	expires time.Time
}

type memorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func newMemorySessionStore(janitorInterval time.Duration) *memorySessionStore {
	s := &memorySessionStore{
		entries: make(map[string]memoryEntry),
	}
	if janitorInterval > 0 {
		go s.janitorLoop(janitorInterval)
	}
	return s
}

func (s *memorySessionStore) get(_ context.Context, token string) (sessionBinding, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok {
		return sessionBinding{}, false, nil
	}
	if time.Now().After(e.expires) {
		delete(s.entries, token)
		return sessionBinding{}, false, nil
	}
	return e.binding, true, nil
}

func (s *memorySessionStore) set(_ context.Context, token string, b sessionBinding, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[token] = memoryEntry{
		binding: b,
		expires: time.Now().Add(ttl),
	}
	return nil
}

func (s *memorySessionStore) delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, token)
	return nil
}

func (s *memorySessionStore) janitorLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	for range ticker.C {
		now := time.Now()

		s.mu.Lock()
		for token, e := range s.entries {
			if now.After(e.expires) {
				delete(s.entries, token)
			}
		}
		s.mu.Unlock()
	}
}

// ---- redis store ----

type redisSessionStore struct {
	rdb *redis.Client
}

func newRedisSessionStore(ctx context.Context, addr string) (*redisSessionStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &redisSessionStore{rdb: rdb}, nil
}

func sessionKey(token string) string {
	return "ludod:session:" + token
}

func (s *redisSessionStore) get(ctx context.Context, token string) (sessionBinding, bool, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return sessionBinding{}, false, nil
	}
	if err != nil {
		return sessionBinding{}, false, err
	}

	var b sessionBinding
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return sessionBinding{}, false, err
	}
	return b, true, nil
}

func (s *redisSessionStore) set(ctx context.Context, token string, b sessionBinding, ttl time.Duration) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(token), raw, ttl).Err()
}

func (s *redisSessionStore) delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, sessionKey(token)).Err()
}
