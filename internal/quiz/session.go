package quiz

import (
	"context"
	"sync"

	"certprep-study-service/internal/domain"
	"certprep-study-service/internal/logger"

	"go.uber.org/zap"
)

// Recorder is the slice of the wrong-answer store a quiz needs.
type Recorder interface {
	Record(ctx context.Context, chapterKey string, questionID, selected int) (bool, error)
	Clear(ctx context.Context, chapterKey string, questionID int) error
}

// Session holds the current State of one chapter and records wrong answers on grading.
type Session struct {
	mu    sync.Mutex
	state State
	wrong Recorder
	log   *zap.Logger
}

// NewSession opens a chapter. A chapter without questions counts as not found.
func NewSession(set domain.QuestionSet, wrong Recorder, log *zap.Logger) (*Session, error) {
	if len(set.Questions) == 0 {
		return nil, domain.ErrChapterNotFound
	}
	return &Session{state: New(set), wrong: wrong, log: logger.OrNop(log)}, nil
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Select(option int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.state.Select(option)
	if err != nil {
		return s.state, err
	}
	s.state = next
	return next, nil
}

// Submit grades the current question. A correct answer redeems any stored wrong
// answer for it; an incorrect one is recorded. Storage failures are logged only.
func (s *Session) Submit(ctx context.Context) (State, Grade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, grade, err := s.state.Submit()
	if err != nil {
		return s.state, Grade{}, err
	}
	question := s.state.Question()
	key := s.state.ChapterKey()
	s.state = next

	if grade.Correct {
		if err := s.wrong.Clear(ctx, key, question.ID); err != nil {
			s.log.Warn("clear wrong answer", zap.String("chapter", key), zap.Int("question", question.ID), zap.Error(err))
		}
	} else {
		if _, err := s.wrong.Record(ctx, key, question.ID, grade.Selected); err != nil {
			s.log.Warn("record wrong answer", zap.String("chapter", key), zap.Int("question", question.ID), zap.Error(err))
		}
	}
	return next, grade, nil
}

func (s *Session) Next() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state, _ = s.state.Next()
	return s.state
}

func (s *Session) Prev() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state, _ = s.state.Prev()
	return s.state
}

func (s *Session) GoTo(i int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.state.GoTo(i)
	if err != nil {
		return s.state, err
	}
	s.state = next
	return next, nil
}
