package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"planfusion/internal/domain"
)

const redisTimeout = 500 * time.Millisecond

var ErrSessionNotFound = errors.New("session not found")

// SessionStore guarda sesiones por token opaco.
type SessionStore interface {
	Save(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, token string) (domain.Session, error)
	// Replace borra oldToken y guarda next en un solo paso.
	Replace(ctx context.Context, oldToken string, next domain.Session) error
	Delete(ctx context.Context, token string) error
}

type memorySessionStore struct {
	mu    sync.Mutex
	items map[string]domain.Session
	now   func() time.Time
}

func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		items: make(map[string]domain.Session),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *memorySessionStore) Save(_ context.Context, session domain.Session) error {
	if strings.TrimSpace(session.Token) == "" {
		return ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[session.Token] = session
	return nil
}

func (s *memorySessionStore) Get(_ context.Context, token string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.items[token]
	if !ok {
		return domain.Session{}, ErrSessionNotFound
	}
	if !session.ExpiresAt.IsZero() && s.now().After(session.ExpiresAt) {
		delete(s.items, token)
		return domain.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *memorySessionStore) Replace(_ context.Context, oldToken string, next domain.Session) error {
	if strings.TrimSpace(next.Token) == "" {
		return ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, oldToken)
	s.items[next.Token] = next
	return nil
}

func (s *memorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, token)
	return nil
}

const redisReplaceSessionScript = `
redis.call("DEL", KEYS[1])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[2])
return 1
`

type redisKV interface {
	redisEvaler
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisSessionStore struct {
	client redisKV
	prefix string
	now    func() time.Time
}

func NewRedisSessionStore(client *redis.Client) SessionStore {
	if client == nil {
		return nil
	}
	return &redisSessionStore{
		client: client,
		prefix: "pf:session:",
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *redisSessionStore) ttl(session domain.Session) time.Duration {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func (s *redisSessionStore) Save(ctx context.Context, session domain.Session) error {
	if strings.TrimSpace(session.Token) == "" {
		return ErrSessionNotFound
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	return s.client.Set(ctx, s.prefix+session.Token, payload, s.ttl(session)).Err()
}

func (s *redisSessionStore) Get(ctx context.Context, token string) (domain.Session, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Session{}, ErrSessionNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	raw, err := s.client.Get(ctx, s.prefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, err
	}
	session.Token = token
	return session, nil
}

func (s *redisSessionStore) Replace(ctx context.Context, oldToken string, next domain.Session) error {
	if strings.TrimSpace(next.Token) == "" {
		return ErrSessionNotFound
	}
	payload, err := json.Marshal(next)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	keys := []string{s.prefix + oldToken, s.prefix + next.Token}
	return s.client.Eval(ctx, redisReplaceSessionScript, keys, string(payload), s.ttl(next).Milliseconds()).Err()
}

func (s *redisSessionStore) Delete(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	return s.client.Del(ctx, s.prefix+token).Err()
}
