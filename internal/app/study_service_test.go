package app_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"certprep-study-service/internal/app"
	"certprep-study-service/internal/content"
	"certprep-study-service/internal/domain"
	"certprep-study-service/internal/exam"
	"certprep-study-service/internal/infra/memory"
	"certprep-study-service/internal/wronganswer"
)

func TestQuizFlowRecordsWrongAnswers(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	if _, err := service.Attach(ctx, "p1"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	state, err := service.OpenChapter(ctx, "p1", domain.SystemSecurity, "1")
	if err != nil {
		t.Fatalf("open chapter: %v", err)
	}
	if state.Total() != 3 {
		t.Fatalf("expected 3 questions, got %d", state.Total())
	}

	// Question 1 is answered by option 2.
	if _, err := service.SelectOption(ctx, "p1", 1); err != nil {
		t.Fatalf("select: %v", err)
	}
	_, grade, err := service.SubmitAnswer(ctx, "p1")
	if err != nil || grade.Correct {
		t.Fatalf("expected wrong grade, got %+v err=%v", grade, err)
	}

	items := service.WrongAnswers(ctx, "p1")
	if len(items) != 1 || items[0].QuestionID != 1 || items[0].SelectedAnswer != 1 {
		t.Fatalf("unexpected review items %+v", items)
	}
	if items[0].Question == nil || items[0].ChapterName != "단말 시스템" || items[0].Missing {
		t.Fatalf("expected joined question, got %+v", items[0])
	}

	state, _ = service.NextQuestion(ctx, "p1")
	if state.Current != 1 {
		t.Fatalf("expected second question, got %d", state.Current)
	}
	state, _ = service.PrevQuestion(ctx, "p1")
	if state.Current != 0 {
		t.Fatalf("expected first question, got %d", state.Current)
	}
	if _, err := service.GoToQuestion(ctx, "p1", 7); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestOpenChapterErrors(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	if _, err := service.OpenChapter(ctx, "p1", domain.SystemSecurity, "1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound before attach, got %v", err)
	}
	_, _ = service.Attach(ctx, "p1")
	if _, err := service.OpenChapter(ctx, "p1", domain.Subject("cooking"), "1"); !errors.Is(err, domain.ErrSubjectNotFound) {
		t.Fatalf("expected ErrSubjectNotFound, got %v", err)
	}
	if _, err := service.OpenChapter(ctx, "p1", domain.SystemSecurity, "99"); !errors.Is(err, domain.ErrChapterNotFound) {
		t.Fatalf("expected ErrChapterNotFound, got %v", err)
	}
	if _, err := service.QuizState(ctx, "p1"); !errors.Is(err, domain.ErrNoActiveQuiz) {
		t.Fatalf("expected ErrNoActiveQuiz, got %v", err)
	}
}

func TestExamThroughService(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)
	_, _ = service.Attach(ctx, "p1")

	preview := service.ExamPreview(ctx)
	if preview[0].Available != 3 || preview[1].Available != 2 {
		t.Fatalf("unexpected preview %+v", preview)
	}

	ch, cancel, err := service.SubscribeExam(ctx, "p1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-ch // initial snapshot

	st, err := service.StartExam(ctx, "p1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(st.Questions) != 5 {
		t.Fatalf("expected 5 exam questions, got %d", len(st.Questions))
	}
	if update := <-ch; update.Phase != exam.InProgress {
		t.Fatalf("expected in_progress update, got %s", update.Phase)
	}

	if _, err := service.AnswerExam(ctx, "p1", 0, st.Questions[0].AnswerIndex); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := service.SubmitExam(ctx, "p1", false); !errors.Is(err, domain.ErrUnansweredQuestions) {
		t.Fatalf("expected ErrUnansweredQuestions, got %v", err)
	}
	st, err = service.SubmitExam(ctx, "p1", true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if st.Result.TotalCorrect != 1 || st.Result.Passed {
		t.Fatalf("unexpected result %+v", st.Result)
	}
	if items := service.WrongAnswers(ctx, "p1"); len(items) != 4 {
		t.Fatalf("expected 4 wrong answers recorded, got %d", len(items))
	}

	st, _ = service.RestartExam(ctx, "p1")
	if st.Phase != exam.Ready {
		t.Fatalf("expected ready after restart, got %s", st.Phase)
	}
	if st, _ := service.ExamState(ctx, "p1"); st.Phase != exam.Ready {
		t.Fatalf("expected ready exam state, got %s", st.Phase)
	}
}

func TestWrongAnswersWithoutSession(t *testing.T) {
	ctx := context.Background()
	service, storage, _ := newTestService(t)

	// A record whose question was removed from the content.
	store := wronganswer.NewStore(storage.For("p2"), nil)
	if _, err := store.Record(ctx, "system-security/1", 42, 3); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := store.Record(ctx, "network-security/1", 2, 1); err != nil {
		t.Fatalf("record: %v", err)
	}

	items := service.WrongAnswers(ctx, "p2")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if !items[0].Missing || items[0].Question != nil {
		t.Fatalf("expected first item missing, got %+v", items[0])
	}
	if items[1].Missing || items[1].Subject != domain.NetworkSecurity {
		t.Fatalf("expected second item resolved, got %+v", items[1])
	}

	if err := service.DeleteWrongAnswer(ctx, "p2", "system-security/1", 42); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if items := service.WrongAnswers(ctx, "p2"); len(items) != 1 {
		t.Fatalf("expected 1 item after delete, got %d", len(items))
	}
	if err := service.ClearWrongAnswers(ctx, "p2"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if string(storage.For("p2").Raw()) != "[]" {
		t.Fatalf("expected empty array persisted, got %s", storage.For("p2").Raw())
	}
}

func TestDetachTearsDownLastConnection(t *testing.T) {
	ctx := context.Background()
	service, _, sessions := newTestService(t)

	_, _ = service.Attach(ctx, "p1")
	_, _ = service.Attach(ctx, "p1")
	if _, err := service.StartExam(ctx, "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	service.Detach(ctx, "p1")
	if sessions.Len() != 1 {
		t.Fatalf("session should survive while a connection remains")
	}
	service.Detach(ctx, "p1")
	if sessions.Len() != 0 {
		t.Fatalf("session should be removed after last detach")
	}
	if _, err := service.ExamState(ctx, "p1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	summary, _ := service.Attach(ctx, "p1")
	if summary.Exam.Phase != exam.Ready {
		t.Fatalf("fresh session should be ready, got %s", summary.Exam.Phase)
	}
}

// interleavedSessions runs onAcquire once, right after the wrapped store hands
// out a session, to stand in for another connection acting in that window.
type interleavedSessions struct {
	*memory.SessionStore
	onAcquire func()
}

func (s *interleavedSessions) Acquire(profileID string, build func() *app.Session) *app.Session {
	session := s.SessionStore.Acquire(profileID, build)
	if hook := s.onAcquire; hook != nil {
		s.onAcquire = nil
		hook()
	}
	return session
}

func TestAttachSurvivesConcurrentLastDetach(t *testing.T) {
	ctx := context.Background()
	store, err := content.Load(ctx, memory.NewStaticContentLoader([]domain.QuestionSet{
		questionSet(domain.SystemSecurity, "1", "단말 시스템", 3),
	}, nil), nil)
	if err != nil {
		t.Fatalf("load content: %v", err)
	}
	storage := memory.NewStorageFactory()
	sessions := &interleavedSessions{SessionStore: memory.NewSessionStore()}
	service := app.NewStudyService(sessions, store, func(profileID string) wronganswer.Storage {
		return storage.For(profileID)
	}, exam.DefaultPolicy(), nil, exam.WithTick(0))

	if _, err := service.Attach(ctx, "p1"); err != nil {
		t.Fatalf("first attach: %v", err)
	}
	// the first connection leaves while the second one is attaching
	sessions.onAcquire = func() { service.Detach(ctx, "p1") }
	if _, err := service.Attach(ctx, "p1"); err != nil {
		t.Fatalf("second attach: %v", err)
	}

	if _, err := service.OpenChapter(ctx, "p1", domain.SystemSecurity, "1"); err != nil {
		t.Fatalf("open chapter after attach: %v", err)
	}
	updates, cancel, err := service.SubscribeExam(ctx, "p1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	if _, ok := <-updates; !ok {
		t.Fatalf("exam subscription of the attached session is closed")
	}
	if _, err := service.StartExam(ctx, "p1"); err != nil {
		t.Fatalf("start exam: %v", err)
	}
	if sessions.Len() != 1 {
		t.Fatalf("expected one live session, got %d", sessions.Len())
	}

	service.Detach(ctx, "p1")
	if sessions.Len() != 0 {
		t.Fatalf("expected session removed after the remaining connection left")
	}
}

func TestAttachRequiresProfile(t *testing.T) {
	service, _, _ := newTestService(t)
	if _, err := service.Attach(context.Background(), ""); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func newTestService(t *testing.T) (*app.StudyService, *memory.StorageFactory, *memory.SessionStore) {
	t.Helper()
	store, err := content.Load(context.Background(), memory.NewStaticContentLoader([]domain.QuestionSet{
		questionSet(domain.SystemSecurity, "1", "단말 시스템", 3),
		questionSet(domain.NetworkSecurity, "1", "네트워크 기초", 2),
	}, nil), nil)
	if err != nil {
		t.Fatalf("load content: %v", err)
	}
	storage := memory.NewStorageFactory()
	sessions := memory.NewSessionStore()
	service := app.NewStudyService(sessions, store, func(profileID string) wronganswer.Storage {
		return storage.For(profileID)
	}, exam.DefaultPolicy(), nil, exam.WithTick(0), exam.WithRand(rand.New(rand.NewSource(3))))
	return service, storage, sessions
}

// questionSet answers question i with option (i % 4) + 1.
func questionSet(subject domain.Subject, chapterID, name string, n int) domain.QuestionSet {
	set := domain.QuestionSet{Subject: subject, ChapterID: chapterID, ChapterName: name}
	for i := 1; i <= n; i++ {
		set.Questions = append(set.Questions, domain.Question{
			ID:          i,
			Text:        "question",
			Options:     []string{"a", "b", "c", "d"},
			AnswerIndex: (i % 4) + 1,
		})
	}
	return set
}
