package redis

import (
	"context"
	"sync"
	"time"

	"certprep-study-service/internal/app"
	"certprep-study-service/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions (open quiz, running exam clock) stay in a local map; they hold
//     goroutines and channels that cannot be serialized.
//   - Redis marks which profiles are live on this instance. The marker TTL is
//     refreshed on access so a crashed instance's markers expire on their own.
type SessionStore struct {
	client  *redis.Client
	ttl     time.Duration
	log     *zap.Logger
	refresh singleflight.Group

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration, log *zap.Logger) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		log:      logger.OrNop(log),
		sessions: make(map[string]*app.Session),
	}
}

// Acquire returns the profile's session, building it on first use, and retains it.
func (s *SessionStore) Acquire(profileID string, build func() *app.Session) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[profileID]; ok {
		session.Retain()
		return session
	}
	session := build()
	session.Retain()
	s.sessions[profileID] = session
	// best-effort liveness marker
	if err := s.client.Set(context.Background(), s.key(profileID), "1", s.ttl).Err(); err != nil {
		s.log.Warn("set session marker", zap.String("profile", profileID), zap.Error(err))
	}
	return session
}

func (s *SessionStore) Get(profileID string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[profileID]
	s.mu.RUnlock()
	if ok {
		s.touch(profileID)
	}
	return session, ok
}

// DeleteIfIdle drops and closes the session once no connection is attached.
func (s *SessionStore) DeleteIfIdle(profileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[profileID]
	if !ok {
		return
	}
	if session.IsIdle() {
		delete(s.sessions, profileID)
		session.Close()
		_ = s.client.Del(context.Background(), s.key(profileID)).Err()
	}
}

// Live reports whether any instance holds a marker for the profile.
func (s *SessionStore) Live(ctx context.Context, profileID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(profileID)).Result()
	return n > 0, err
}

// touch extends the marker TTL; concurrent refreshes for one profile collapse into one call.
func (s *SessionStore) touch(profileID string) {
	if s.ttl <= 0 {
		return
	}
	_, err, _ := s.refresh.Do(profileID, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return nil, s.client.Expire(ctx, s.key(profileID), s.ttl).Err()
	})
	if err != nil {
		s.log.Debug("refresh session marker", zap.String("profile", profileID), zap.Error(err))
	}
}

func (s *SessionStore) key(profileID string) string {
	return "study:session:" + profileID
}
