package app

import (
	"context"

	"certprep-study-service/internal/domain"
	"certprep-study-service/internal/exam"
	"certprep-study-service/internal/logger"
	"certprep-study-service/internal/quiz"
	"certprep-study-service/internal/wronganswer"

	"go.uber.org/zap"
)

// SessionRepository abstracts how live study sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	// Acquire returns the profile's session, building it on first use, and
	// retains it for one more connection before the repository lock is released.
	Acquire(profileID string, build func() *Session) *Session
	Get(profileID string) (*Session, bool)
	DeleteIfIdle(profileID string)
}

// ContentRepository is the read side of the content store.
type ContentRepository interface {
	Chapter(subject domain.Subject, chapterID string) (domain.QuestionSet, bool)
	ChapterByKey(key string) (domain.QuestionSet, bool)
	AllChapters() []domain.QuestionSet
	Question(chapterKey string, questionID int) (domain.Question, bool)
}

// StorageFactory returns the wrong-answer storage scoped to one profile.
type StorageFactory func(profileID string) wronganswer.Storage

// StudyService contains the quiz, mock-exam and review use cases.
type StudyService struct {
	sessions SessionRepository
	content  ContentRepository
	storage  StorageFactory
	policy   exam.Policy
	examOpts []exam.Option
	log      *zap.Logger
}

func NewStudyService(sessions SessionRepository, content ContentRepository, storage StorageFactory, policy exam.Policy, log *zap.Logger, examOpts ...exam.Option) *StudyService {
	log = logger.OrNop(log)
	return &StudyService{
		sessions: sessions,
		content:  content,
		storage:  storage,
		policy:   policy,
		examOpts: append([]exam.Option{exam.WithLogger(log)}, examOpts...),
		log:      log,
	}
}

// Summary is what a client receives on attach.
type Summary struct {
	ProfileID    string     `json:"profileId"`
	WrongAnswers int        `json:"wrongAnswers"`
	Quiz         *quiz.View `json:"quiz,omitempty"`
	Exam         exam.View  `json:"exam"`
}

// Attach registers a connection for a profile, creating its session on first use.
func (s *StudyService) Attach(ctx context.Context, profileID string) (Summary, error) {
	if profileID == "" {
		return Summary{}, domain.ErrSessionNotFound
	}
	session := s.sessions.Acquire(profileID, func() *Session {
		return s.newSession(profileID)
	})
	s.log.Debug("profile attached", zap.String("profile", profileID), zap.Int("clients", session.Clients()))
	return session.summary(ctx), nil
}

// Detach releases a connection; the last one tears the session down.
func (s *StudyService) Detach(_ context.Context, profileID string) {
	session, ok := s.sessions.Get(profileID)
	if !ok {
		return
	}
	if session.Release() == 0 {
		s.sessions.DeleteIfIdle(profileID)
		s.log.Debug("profile detached", zap.String("profile", profileID))
	}
}

// OpenChapter starts a fresh quiz over one chapter, replacing any open quiz.
func (s *StudyService) OpenChapter(_ context.Context, profileID string, subject domain.Subject, chapterID string) (quiz.State, error) {
	session, err := s.session(profileID)
	if err != nil {
		return quiz.State{}, err
	}
	if !subject.Valid() {
		return quiz.State{}, domain.ErrSubjectNotFound
	}
	set, ok := s.content.Chapter(subject, chapterID)
	if !ok {
		return quiz.State{}, domain.ErrChapterNotFound
	}
	q, err := quiz.NewSession(set, session.wrong, s.log)
	if err != nil {
		return quiz.State{}, err
	}
	session.setQuiz(q)
	return q.State(), nil
}

func (s *StudyService) SelectOption(_ context.Context, profileID string, option int) (quiz.State, error) {
	q, err := s.activeQuiz(profileID)
	if err != nil {
		return quiz.State{}, err
	}
	return q.Select(option)
}

// SubmitAnswer grades the pending selection and updates the wrong-answer log.
func (s *StudyService) SubmitAnswer(ctx context.Context, profileID string) (quiz.State, quiz.Grade, error) {
	q, err := s.activeQuiz(profileID)
	if err != nil {
		return quiz.State{}, quiz.Grade{}, err
	}
	return q.Submit(ctx)
}

func (s *StudyService) NextQuestion(_ context.Context, profileID string) (quiz.State, error) {
	q, err := s.activeQuiz(profileID)
	if err != nil {
		return quiz.State{}, err
	}
	return q.Next(), nil
}

func (s *StudyService) PrevQuestion(_ context.Context, profileID string) (quiz.State, error) {
	q, err := s.activeQuiz(profileID)
	if err != nil {
		return quiz.State{}, err
	}
	return q.Prev(), nil
}

func (s *StudyService) GoToQuestion(_ context.Context, profileID string, index int) (quiz.State, error) {
	q, err := s.activeQuiz(profileID)
	if err != nil {
		return quiz.State{}, err
	}
	return q.GoTo(index)
}

func (s *StudyService) QuizState(_ context.Context, profileID string) (quiz.State, error) {
	q, err := s.activeQuiz(profileID)
	if err != nil {
		return quiz.State{}, err
	}
	return q.State(), nil
}

// ExamPreview lists per-subject pool sizes; it needs no session.
func (s *StudyService) ExamPreview(_ context.Context) []domain.SubjectCount {
	return exam.Preview(s.content.AllChapters(), s.policy.QuestionsPerSubject)
}

func (s *StudyService) StartExam(ctx context.Context, profileID string) (exam.State, error) {
	session, err := s.session(profileID)
	if err != nil {
		return exam.State{}, err
	}
	return session.exam.Start(ctx)
}

func (s *StudyService) AnswerExam(_ context.Context, profileID string, index, option int) (exam.State, error) {
	session, err := s.session(profileID)
	if err != nil {
		return exam.State{}, err
	}
	return session.exam.Answer(index, option)
}

// SubmitExam completes the running exam; see exam.Session.Submit for confirm.
func (s *StudyService) SubmitExam(ctx context.Context, profileID string, confirm bool) (exam.State, error) {
	session, err := s.session(profileID)
	if err != nil {
		return exam.State{}, err
	}
	return session.exam.Submit(ctx, confirm)
}

func (s *StudyService) RestartExam(_ context.Context, profileID string) (exam.State, error) {
	session, err := s.session(profileID)
	if err != nil {
		return exam.State{}, err
	}
	return session.exam.Restart(), nil
}

func (s *StudyService) ExamState(_ context.Context, profileID string) (exam.State, error) {
	session, err := s.session(profileID)
	if err != nil {
		return exam.State{}, err
	}
	return session.exam.State(), nil
}

// SubscribeExam returns a channel of exam states: transitions plus clock ticks.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *StudyService) SubscribeExam(_ context.Context, profileID string) (<-chan exam.State, func(), error) {
	session, err := s.session(profileID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.exam.Subscribe()
	return ch, cancel, nil
}

// ReviewItem joins a wrong-answer record with its question. Missing marks
// records whose question is no longer authored.
type ReviewItem struct {
	domain.WrongAnswer
	Subject     domain.Subject   `json:"subject,omitempty"`
	SubjectName string           `json:"subjectName,omitempty"`
	ChapterID   string           `json:"chapterId,omitempty"`
	ChapterName string           `json:"chapterName,omitempty"`
	Question    *domain.Question `json:"question,omitempty"`
	Missing     bool             `json:"missing,omitempty"`
}

// WrongAnswers lists the profile's records in insertion order.
func (s *StudyService) WrongAnswers(ctx context.Context, profileID string) []ReviewItem {
	records := s.wrongStore(profileID).List(ctx)
	items := make([]ReviewItem, 0, len(records))
	for _, r := range records {
		item := ReviewItem{WrongAnswer: r}
		set, ok := s.content.ChapterByKey(r.ChapterKey)
		if ok {
			item.Subject = set.Subject
			item.SubjectName = set.SubjectName
			item.ChapterID = set.ChapterID
			item.ChapterName = set.ChapterName
		}
		if q, found := s.content.Question(r.ChapterKey, r.QuestionID); found {
			item.Question = &q
		} else {
			item.Missing = true
		}
		items = append(items, item)
	}
	return items
}

func (s *StudyService) DeleteWrongAnswer(ctx context.Context, profileID, chapterKey string, questionID int) error {
	return s.wrongStore(profileID).Clear(ctx, chapterKey, questionID)
}

func (s *StudyService) ClearWrongAnswers(ctx context.Context, profileID string) error {
	return s.wrongStore(profileID).ClearAll(ctx)
}

func (s *StudyService) newSession(profileID string) *Session {
	wrong := wronganswer.NewStore(s.storage(profileID), s.log.With(zap.String("profile", profileID)))
	return NewSession(profileID, wrong, exam.NewSession(s.content, wrong, s.policy, s.examOpts...))
}

func (s *StudyService) session(profileID string) (*Session, error) {
	session, ok := s.sessions.Get(profileID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *StudyService) activeQuiz(profileID string) (*quiz.Session, error) {
	session, err := s.session(profileID)
	if err != nil {
		return nil, err
	}
	q := session.activeQuiz()
	if q == nil {
		return nil, domain.ErrNoActiveQuiz
	}
	return q, nil
}

// wrongStore prefers the attached session's store so writes share one lock.
func (s *StudyService) wrongStore(profileID string) *wronganswer.Store {
	if session, ok := s.sessions.Get(profileID); ok {
		return session.wrong
	}
	return wronganswer.NewStore(s.storage(profileID), s.log.With(zap.String("profile", profileID)))
}
