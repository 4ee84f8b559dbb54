package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"planfusion/internal/domain"
)

// fakeRedisKV emula Get/Set/Del y el script de reemplazo sobre un mapa.
type fakeRedisKV struct {
	data     map[string]string
	ttls     map[string]time.Duration
	evalKeys []string
	evalArgs []interface{}
	err      error
}

func newFakeRedisKV() *fakeRedisKV {
	return &fakeRedisKV{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedisKV) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	val, ok := f.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (f *fakeRedisKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedisKV) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	for _, k := range keys {
		delete(f.data, k)
	}
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func (f *fakeRedisKV) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.evalKeys = keys
	f.evalArgs = args
	cmd := redis.NewCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	if script == redisReplaceSessionScript {
		delete(f.data, keys[0])
		f.data[keys[1]] = args[0].(string)
		f.ttls[keys[1]] = time.Duration(args[1].(int64)) * time.Millisecond
	}
	cmd.SetVal(int64(1))
	return cmd
}

func testSession(token string, phase domain.SessionPhase, now time.Time) domain.Session {
	s := domain.Session{
		Token:     token,
		Phase:     phase,
		CreatedAt: now,
		ExpiresAt: now.Add(15 * time.Minute),
	}
	if phase == domain.SessionAuthenticated {
		s.AuthenticatedEmail = "user@example.com"
	} else {
		s.PendingEmail = "user@example.com"
	}
	return s
}

func TestMemorySessionStore_ReplaceAndExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore().(*memorySessionStore)
	store.now = func() time.Time { return now }

	pending := testSession("old", domain.SessionOTPPending, now)
	if err := store.Save(ctx, pending); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	next := testSession("new", domain.SessionAuthenticated, now)
	if err := store.Replace(ctx, "old", next); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if _, err := store.Get(ctx, "old"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected old token gone, got %v", err)
	}
	got, err := store.Get(ctx, "new")
	if err != nil {
		t.Fatalf("expected new session, got %v", err)
	}
	if got.IsPending() || !got.IsAuthenticated() {
		t.Fatalf("expected authenticated only, got %+v", got)
	}

	now = now.Add(16 * time.Minute)
	if _, err := store.Get(ctx, "new"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Fatalf("expected idempotent delete, got %v", err)
	}
}

func TestRedisSessionStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	kv := newFakeRedisKV()
	store := &redisSessionStore{client: kv, prefix: "pf:session:", now: func() time.Time { return now }}

	pending := testSession("tok-1", domain.SessionPasswordPending, now)
	if err := store.Save(ctx, pending); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if kv.ttls["pf:session:tok-1"] != 15*time.Minute {
		t.Fatalf("expected ttl from expires_at, got %v", kv.ttls["pf:session:tok-1"])
	}
	got, err := store.Get(ctx, "tok-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Token != "tok-1" || got.PendingEmail != "user@example.com" || got.Phase != domain.SessionPasswordPending {
		t.Fatalf("unexpected session %+v", got)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRedisSessionStore_ReplaceUsesSingleScript(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	kv := newFakeRedisKV()
	store := &redisSessionStore{client: kv, prefix: "pf:session:", now: func() time.Time { return now }}

	_ = store.Save(ctx, testSession("old", domain.SessionOTPPending, now))
	next := testSession("new", domain.SessionAuthenticated, now)
	next.ExpiresAt = now.Add(24 * time.Hour)
	if err := store.Replace(ctx, "old", next); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if len(kv.evalKeys) != 2 || kv.evalKeys[0] != "pf:session:old" || kv.evalKeys[1] != "pf:session:new" {
		t.Fatalf("unexpected keys %v", kv.evalKeys)
	}
	if kv.evalArgs[1].(int64) != (24 * time.Hour).Milliseconds() {
		t.Fatalf("unexpected ttl arg %v", kv.evalArgs[1])
	}
	if _, ok := kv.data["pf:session:old"]; ok {
		t.Fatalf("expected pending record removed")
	}
	got, err := store.Get(ctx, "new")
	if err != nil || !got.IsAuthenticated() || got.PendingEmail != "" {
		t.Fatalf("expected clean authenticated session, got %+v %v", got, err)
	}
}

func TestRedisSessionStore_Errors(t *testing.T) {
	ctx := context.Background()
	kv := newFakeRedisKV()
	kv.err = errors.New("redis down")
	store := &redisSessionStore{client: kv, prefix: "pf:session:", now: time.Now}

	if _, err := store.Get(ctx, "tok"); err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if err := store.Delete(ctx, ""); err != nil {
		t.Fatalf("expected empty token delete to be noop, got %v", err)
	}
}
