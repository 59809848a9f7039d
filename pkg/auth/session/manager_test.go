package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redislib.Nil
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string {
	return "session:" + accessID
}

type failingStore struct {
	*memoryStore
}

func (failingStore) Get(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func TestGenerateStoresDigestNotToken(t *testing.T) {
	store := newMemoryStore()
	m := &Manager{store: store, ttl: 30 * 24 * time.Hour}

	token, err := m.Generate(context.Background(), "jti-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	stored := store.data["session:jti-1"]
	if stored == token {
		t.Fatal("refresh token must not be stored in plaintext")
	}
	if stored != digest(token) {
		t.Fatalf("expected digest of token, got %q", stored)
	}
	if store.ttls["session:jti-1"] != 30*24*time.Hour {
		t.Fatalf("unexpected ttl %v", store.ttls["session:jti-1"])
	}
	if _, err := m.Generate(context.Background(), "  "); err == nil {
		t.Fatal("expected blank access id to fail")
	}
}

func TestRotateReplacesSession(t *testing.T) {
	store := newMemoryStore()
	m := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	token, err := m.Generate(ctx, "jti-old")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, err := m.Rotate(ctx, "jti-old", token+"x"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid token for wrong refresh, got %v", err)
	}

	newID, newToken, err := m.Rotate(ctx, "jti-old", token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if newID == "jti-old" || newToken == token {
		t.Fatal("rotation must issue fresh credentials")
	}
	if _, ok := store.data["session:jti-old"]; ok {
		t.Fatal("old session should be gone")
	}
	if _, _, err := m.Rotate(ctx, "jti-old", token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("refresh token must be single use, got %v", err)
	}
	if ok, err := m.HasSession(ctx, newID); err != nil || !ok {
		t.Fatalf("new session should be active, ok=%v err=%v", ok, err)
	}
}

func TestRevokeAndHasSession(t *testing.T) {
	store := newMemoryStore()
	m := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	id := NewAccessID()
	if _, err := m.Generate(ctx, id); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ok, _ := m.HasSession(ctx, id); !ok {
		t.Fatal("expected active session")
	}
	if err := m.Revoke(ctx, id); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, err := m.HasSession(ctx, id); err != nil || ok {
		t.Fatalf("expected closed session, ok=%v err=%v", ok, err)
	}
	if _, err := m.HasSession(ctx, ""); err == nil {
		t.Fatal("expected blank access id to fail")
	}
}

func TestHasSessionSurfacesStoreErrors(t *testing.T) {
	m := &Manager{store: failingStore{newMemoryStore()}, ttl: time.Hour}
	if _, err := m.HasSession(context.Background(), "jti"); err == nil {
		t.Fatal("expected store error to propagate")
	}
	if _, _, err := m.Rotate(context.Background(), "jti", "token"); err == nil || errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected raw store error from rotate, got %v", err)
	}
}
