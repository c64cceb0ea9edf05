package exam

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"certprep-study-service/internal/domain"
	"certprep-study-service/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Phase is the mock-exam lifecycle: ready -> in_progress -> completed.
type Phase string

const (
	Ready      Phase = "ready"
	InProgress Phase = "in_progress"
	Completed  Phase = "completed"
)

// ChapterSource supplies every authored chapter.
type ChapterSource interface {
	AllChapters() []domain.QuestionSet
}

// Recorder persists a wrong answer.
type Recorder interface {
	Record(ctx context.Context, chapterKey string, questionID, selected int) (bool, error)
}

// State is a snapshot of a mock exam. Snapshots never share mutable data with the session.
type State struct {
	Phase     Phase
	RunID     string
	Questions []domain.ExamQuestion
	Answers   map[int]int
	StartedAt time.Time
	Elapsed   time.Duration
	Result    *domain.ExamResult
	Preview   []domain.SubjectCount
}

// Answered is the number of questions with a chosen option.
func (s State) Answered() int { return len(s.Answers) }

// Unanswered is the number of questions without a chosen option.
func (s State) Unanswered() int { return len(s.Questions) - len(s.Answers) }

// Session runs mock exams for one learner. The elapsed clock ticks subscribers
// while an exam is in progress and stops on completion, restart or Close.
type Session struct {
	content ChapterSource
	wrong   Recorder
	policy  Policy
	rnd     *rand.Rand
	now     func() time.Time
	tick    time.Duration
	log     *zap.Logger

	mu          sync.Mutex
	state       State
	stopClock   chan struct{}
	subscribers map[chan State]struct{}
	closed      bool
}

// Option customizes a Session.
type Option func(*Session)

// WithRand fixes the shuffle source, e.g. rand.New(rand.NewSource(seed)).
func WithRand(rnd *rand.Rand) Option { return func(s *Session) { s.rnd = rnd } }

// WithClock is test-only for deterministic elapsed times.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// WithTick sets the clock broadcast interval; values <= 0 disable ticking.
func WithTick(d time.Duration) Option { return func(s *Session) { s.tick = d } }

func WithLogger(l *zap.Logger) Option { return func(s *Session) { s.log = logger.OrNop(l) } }

func NewSession(content ChapterSource, wrong Recorder, policy Policy, opts ...Option) *Session {
	s := &Session{
		content:     content,
		wrong:       wrong,
		policy:      policy,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
		tick:        time.Second,
		log:         zap.NewNop(),
		subscribers: make(map[chan State]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.readyStateLocked()
	return s
}

// State returns the current snapshot with a live elapsed time.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Start builds a fresh exam and starts the clock. Only legal from ready.
func (s *Session) Start(_ context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != Ready {
		return s.snapshotLocked(), domain.ErrInvalidPhase
	}
	questions := Build(s.content.AllChapters(), s.policy.QuestionsPerSubject, s.rnd)
	if len(questions) == 0 {
		return s.snapshotLocked(), domain.ErrEmptyExam
	}

	s.state = State{
		Phase:     InProgress,
		RunID:     uuid.NewString(),
		Questions: questions,
		Answers:   map[int]int{},
		StartedAt: s.now(),
	}
	s.startClockLocked()
	s.log.Info("mock exam started", zap.String("run", s.state.RunID), zap.Int("questions", len(questions)))
	return s.broadcastLocked(), nil
}

// Answer stores the chosen option for an exam index, replacing any earlier choice.
func (s *Session) Answer(index, option int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != InProgress {
		return s.snapshotLocked(), domain.ErrInvalidPhase
	}
	if index < 0 || index >= len(s.state.Questions) {
		return s.snapshotLocked(), domain.ErrInvalidOption
	}
	if !s.state.Questions[index].HasOption(option) {
		return s.snapshotLocked(), domain.ErrInvalidOption
	}

	answers := make(map[int]int, len(s.state.Answers)+1)
	for k, v := range s.state.Answers {
		answers[k] = v
	}
	answers[index] = option
	s.state.Answers = answers
	return s.broadcastLocked(), nil
}

// Submit completes the exam. With unanswered questions it returns
// ErrUnansweredQuestions unless confirm is set. Completion freezes the clock,
// scores the run and records each incorrect question exactly once.
func (s *Session) Submit(ctx context.Context, confirm bool) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != InProgress {
		return s.snapshotLocked(), domain.ErrInvalidPhase
	}
	if s.state.Unanswered() > 0 && !confirm {
		return s.snapshotLocked(), domain.ErrUnansweredQuestions
	}

	s.stopClockLocked()
	result := Score(s.state.Questions, s.state.Answers, s.policy)
	s.state.Elapsed = s.now().Sub(s.state.StartedAt)
	result.ElapsedSeconds = int64(s.state.Elapsed / time.Second)
	s.state.Result = &result
	s.state.Phase = Completed

	for _, i := range result.Wrong {
		q := s.state.Questions[i]
		if _, err := s.wrong.Record(ctx, q.ChapterKey, q.ID, s.state.Answers[i]); err != nil {
			s.log.Warn("record mock exam wrong answer", zap.String("chapter", q.ChapterKey), zap.Int("question", q.ID), zap.Error(err))
		}
	}
	s.log.Info("mock exam completed",
		zap.String("run", s.state.RunID),
		zap.Int("average", result.Average),
		zap.Bool("passed", result.Passed),
		zap.Duration("elapsed", s.state.Elapsed),
	)
	return s.broadcastLocked(), nil
}

// Restart discards the current exam and returns to ready.
func (s *Session) Restart() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopClockLocked()
	s.state = s.readyStateLocked()
	return s.broadcastLocked()
}

// Subscribe returns a channel of snapshots: one immediately, then every
// transition and clock tick. The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close stops the clock and closes every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopClockLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.closed = true
}

// Ticking reports whether the elapsed clock is running.
func (s *Session) Ticking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopClock != nil
}

func (s *Session) readyStateLocked() State {
	return State{
		Phase:   Ready,
		Preview: Preview(s.content.AllChapters(), s.policy.QuestionsPerSubject),
	}
}

func (s *Session) startClockLocked() {
	s.stopClockLocked()
	if s.tick <= 0 {
		return
	}
	stop := make(chan struct{})
	s.stopClock = stop
	ticker := time.NewTicker(s.tick)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				if s.stopClock == stop {
					s.broadcastLocked()
				}
				s.mu.Unlock()
			}
		}
	}()
}

func (s *Session) stopClockLocked() {
	if s.stopClock != nil {
		close(s.stopClock)
		s.stopClock = nil
	}
}

func (s *Session) snapshotLocked() State {
	snap := s.state
	if snap.Phase == InProgress {
		snap.Elapsed = s.now().Sub(snap.StartedAt)
	}
	return snap
}

func (s *Session) broadcastLocked() State {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the oldest pending snapshot so slow readers only miss stale states
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}
