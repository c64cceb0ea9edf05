package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"certprep-study-service/internal/app"
	"certprep-study-service/internal/domain"
	"certprep-study-service/internal/logger"
	"certprep-study-service/internal/quiz"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WSHandler struct {
	service  *app.StudyService
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewWSHandler(service *app.StudyService, log *zap.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger.OrNop(log),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type openPayload struct {
	Subject string `json:"subject"`
	Chapter string `json:"chapter"`
}

type optionPayload struct {
	Option int `json:"option"`
}

type indexPayload struct {
	Index int `json:"index"`
}

type examAnswerPayload struct {
	Index  int `json:"index"`
	Option int `json:"option"`
}

type examSubmitPayload struct {
	Confirm bool `json:"confirm"`
}

type wrongDeletePayload struct {
	ChapterKey string `json:"chapterKey"`
	QuestionID int    `json:"questionId"`
}

type answerResult struct {
	ChapterKey  string   `json:"chapterKey"`
	QuestionID  int      `json:"questionId"`
	Selected    int      `json:"selected"`
	Correct     bool     `json:"correct"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	Unanswered int    `json:"unanswered,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the study use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	profileID := r.URL.Query().Get("profileId")
	if profileID == "" {
		http.Error(w, "missing profileId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	summary, err := h.service.Attach(ctx, profileID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorFor(err)})
		return
	}
	defer h.service.Detach(context.WithoutCancel(ctx), profileID)

	updates, cancel, err := h.service.SubscribeExam(ctx, profileID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorFor(err)})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections support one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.String("profile", profileID), zap.Error(err))
				// unblock the reader so teardown runs
				_ = conn.Close()
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "attached", Payload: summary}
	// drop the subscription's initial snapshot; attached already carries it
	<-updates

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "examState", Payload: update.View()}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !deliver(send, writerDone, h.dispatch(ctx, profileID, inbound)) {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// deliver queues replies for the writer and reports false once the writer has stopped.
func deliver(send chan<- outboundMessage[any], writerDone <-chan struct{}, msgs []outboundMessage[any]) bool {
	for _, msg := range msgs {
		select {
		case send <- msg:
		case <-writerDone:
			return false
		}
	}
	return true
}

// dispatch runs one inbound command and returns the replies. Exam transitions
// reach the client through the exam subscription, so exam commands only reply on error.
func (h *WSHandler) dispatch(ctx context.Context, profileID string, in inboundMessage) []outboundMessage[any] {
	fail := func(err error) []outboundMessage[any] {
		return []outboundMessage[any]{{Type: "error", Payload: errorFor(err)}}
	}
	invalid := func() []outboundMessage[any] {
		return []outboundMessage[any]{{Type: "error", Payload: errorPayload{Message: "invalid " + in.Type + " payload", Code: "bad_request"}}}
	}
	quizReply := func(state quiz.State, err error) []outboundMessage[any] {
		if err != nil {
			return fail(err)
		}
		return []outboundMessage[any]{{Type: "quizState", Payload: state.View()}}
	}

	switch in.Type {
	case "quiz.open":
		var p openPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return invalid()
		}
		subject, err := domain.ParseSubject(p.Subject)
		if err != nil {
			return fail(err)
		}
		return quizReply(h.service.OpenChapter(ctx, profileID, subject, p.Chapter))
	case "quiz.select":
		var p optionPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return invalid()
		}
		return quizReply(h.service.SelectOption(ctx, profileID, p.Option))
	case "quiz.submit":
		state, grade, err := h.service.SubmitAnswer(ctx, profileID)
		if err != nil {
			return fail(err)
		}
		q := state.Question()
		return []outboundMessage[any]{
			{Type: "answerResult", Payload: answerResult{
				ChapterKey:  state.ChapterKey(),
				QuestionID:  q.ID,
				Selected:    grade.Selected,
				Correct:     grade.Correct,
				Answer:      q.AnswerIndex,
				Explanation: q.Explanation,
				Keywords:    q.Keywords,
			}},
			{Type: "quizState", Payload: state.View()},
		}
	case "quiz.next":
		return quizReply(h.service.NextQuestion(ctx, profileID))
	case "quiz.prev":
		return quizReply(h.service.PrevQuestion(ctx, profileID))
	case "quiz.goto":
		var p indexPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return invalid()
		}
		return quizReply(h.service.GoToQuestion(ctx, profileID, p.Index))
	case "exam.preview":
		return []outboundMessage[any]{{Type: "examPreview", Payload: h.service.ExamPreview(ctx)}}
	case "exam.start":
		if _, err := h.service.StartExam(ctx, profileID); err != nil {
			return fail(err)
		}
	case "exam.answer":
		var p examAnswerPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return invalid()
		}
		if _, err := h.service.AnswerExam(ctx, profileID, p.Index, p.Option); err != nil {
			return fail(err)
		}
	case "exam.submit":
		var p examSubmitPayload
		if len(in.Payload) > 0 {
			if err := json.Unmarshal(in.Payload, &p); err != nil {
				return invalid()
			}
		}
		state, err := h.service.SubmitExam(ctx, profileID, p.Confirm)
		if errors.Is(err, domain.ErrUnansweredQuestions) {
			payload := errorFor(err)
			payload.Unanswered = state.Unanswered()
			return []outboundMessage[any]{{Type: "error", Payload: payload}}
		}
		if err != nil {
			return fail(err)
		}
	case "exam.restart":
		if _, err := h.service.RestartExam(ctx, profileID); err != nil {
			return fail(err)
		}
	case "wrong.list":
		return []outboundMessage[any]{{Type: "wrongAnswers", Payload: h.service.WrongAnswers(ctx, profileID)}}
	case "wrong.delete":
		var p wrongDeletePayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return invalid()
		}
		if err := h.service.DeleteWrongAnswer(ctx, profileID, p.ChapterKey, p.QuestionID); err != nil {
			return fail(err)
		}
		return []outboundMessage[any]{{Type: "wrongAnswers", Payload: h.service.WrongAnswers(ctx, profileID)}}
	case "wrong.clear":
		if err := h.service.ClearWrongAnswers(ctx, profileID); err != nil {
			return fail(err)
		}
		return []outboundMessage[any]{{Type: "wrongAnswers", Payload: h.service.WrongAnswers(ctx, profileID)}}
	default:
		return []outboundMessage[any]{{Type: "error", Payload: errorPayload{Message: "unsupported message type", Code: "bad_request"}}}
	}
	return nil
}

// errorFor gives clients a stable code next to the message.
func errorFor(err error) errorPayload {
	code := "internal"
	switch {
	case errors.Is(err, domain.ErrSubjectNotFound):
		code = "subject_not_found"
	case errors.Is(err, domain.ErrChapterNotFound):
		code = "chapter_not_found"
	case errors.Is(err, domain.ErrQuestionNotFound):
		code = "question_not_found"
	case errors.Is(err, domain.ErrInvalidOption):
		code = "invalid_option"
	case errors.Is(err, domain.ErrNoSelection):
		code = "no_selection"
	case errors.Is(err, domain.ErrAlreadyGraded):
		code = "already_graded"
	case errors.Is(err, domain.ErrNoActiveQuiz):
		code = "no_active_quiz"
	case errors.Is(err, domain.ErrInvalidPhase):
		code = "invalid_phase"
	case errors.Is(err, domain.ErrUnansweredQuestions):
		code = "unanswered_questions"
	case errors.Is(err, domain.ErrEmptyExam):
		code = "empty_exam"
	case errors.Is(err, domain.ErrSessionNotFound):
		code = "session_not_found"
	}
	return errorPayload{Message: err.Error(), Code: code}
}
