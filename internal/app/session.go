package app

import (
	"context"
	"sync"
	"time"

	"certprep-study-service/internal/exam"
	"certprep-study-service/internal/quiz"
	"certprep-study-service/internal/wronganswer"
)

// Session is the in-memory study state of one profile: the open quiz, the
// mock exam and the wrong-answer store they share.
type Session struct {
	profileID string
	wrong     *wronganswer.Store
	exam      *exam.Session
	now       func() time.Time

	mu       sync.RWMutex
	quiz     *quiz.Session
	clients  int
	lastSeen time.Time
}

// NewSession is exported for infrastructure layers and tests that seed sessions.
func NewSession(profileID string, wrong *wronganswer.Store, examSession *exam.Session) *Session {
	return &Session{
		profileID: profileID,
		wrong:     wrong,
		exam:      examSession,
		now:       time.Now,
		lastSeen:  time.Now(),
	}
}

func (s *Session) ProfileID() string { return s.profileID }

// LastSeen is the time of the latest attach or detach.
func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// IsIdle reports whether no connection is attached.
func (s *Session) IsIdle() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clients == 0
}

// Close stops the exam clock and its subscriptions.
func (s *Session) Close() {
	s.exam.Close()
}

// Clients is the number of attached connections.
func (s *Session) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clients
}

// Retain counts one more attached connection. Repositories call it under the
// same lock DeleteIfIdle takes, so a retained session is never torn down.
func (s *Session) Retain() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients++
	s.lastSeen = s.now()
	return s.clients
}

// Release drops one attached connection and returns how many remain.
func (s *Session) Release() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients > 0 {
		s.clients--
	}
	s.lastSeen = s.now()
	return s.clients
}

func (s *Session) setQuiz(q *quiz.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quiz = q
}

func (s *Session) activeQuiz() *quiz.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quiz
}

func (s *Session) summary(ctx context.Context) Summary {
	sum := Summary{
		ProfileID:    s.profileID,
		WrongAnswers: len(s.wrong.List(ctx)),
		Exam:         s.exam.State().View(),
	}
	if q := s.activeQuiz(); q != nil {
		v := q.State().View()
		sum.Quiz = &v
	}
	return sum
}
