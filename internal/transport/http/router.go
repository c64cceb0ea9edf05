package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"certprep-study-service/internal/app"
	"certprep-study-service/internal/content"
	"certprep-study-service/internal/domain"
	"certprep-study-service/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter mounts the read-only content API, the wrong-answer review API and the websocket endpoint.
func NewRouter(store *content.Store, service *app.StudyService, ws *WSHandler, allowedOrigins []string, log *zap.Logger) http.Handler {
	h := &restHandler{store: store, service: service, log: logger.OrNop(log)}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, h.logRequests, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if ws != nil {
		r.Get("/ws", ws.ServeWS)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/subjects", h.listSubjects)
		r.Route("/subjects/{subject}", func(r chi.Router) {
			r.Get("/chapters", h.listChapters)
			r.Get("/chapters/{chapter}", h.getChapter)
			r.Get("/posts", h.listPosts)
			r.Get("/posts/{post}", h.getPost)
		})
		r.Get("/routes", h.listRoutes)
		r.Get("/exam/preview", h.examPreview)

		r.Route("/profiles/{profile}/wrong-answers", func(r chi.Router) {
			r.Get("/", h.listWrongAnswers)
			r.Delete("/", h.clearWrongAnswers)
			r.Delete("/{subject}/{chapter}/{question}", h.deleteWrongAnswer)
		})
	})
	return r
}

type restHandler struct {
	store   *content.Store
	service *app.StudyService
	log     *zap.Logger
}

type subjectSummary struct {
	Subject   domain.Subject `json:"subject"`
	Name      string         `json:"name"`
	Chapters  int            `json:"chapters"`
	Questions int            `json:"questions"`
	Posts     int            `json:"posts"`
}

type chapterSummary struct {
	Subject   domain.Subject `json:"subject"`
	ChapterID string         `json:"chapter"`
	Name      string         `json:"chapterName"`
	Questions int            `json:"questions"`
}

type chapterResponse struct {
	domain.QuestionSet
	Meta domain.PageMeta `json:"meta"`
}

type postResponse struct {
	domain.Post
	Meta domain.PageMeta `json:"meta"`
}

func (h *restHandler) listSubjects(w http.ResponseWriter, _ *http.Request) {
	out := make([]subjectSummary, 0, len(domain.Subjects()))
	for _, subject := range domain.Subjects() {
		out = append(out, subjectSummary{
			Subject:   subject,
			Name:      subject.Name(),
			Chapters:  len(h.store.ChaptersForSubject(subject)),
			Questions: h.store.QuestionCount(subject),
			Posts:     len(h.store.Posts(subject)),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *restHandler) listChapters(w http.ResponseWriter, r *http.Request) {
	subject, err := domain.ParseSubject(chi.URLParam(r, "subject"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	chapters := h.store.ChaptersForSubject(subject)
	out := make([]chapterSummary, 0, len(chapters))
	for _, set := range chapters {
		out = append(out, chapterSummary{
			Subject:   subject,
			ChapterID: set.ChapterID,
			Name:      set.ChapterName,
			Questions: len(set.Questions),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *restHandler) getChapter(w http.ResponseWriter, r *http.Request) {
	subject, err := domain.ParseSubject(chi.URLParam(r, "subject"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	chapterID := chi.URLParam(r, "chapter")
	meta, err := h.store.ChapterMeta(subject, chapterID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	set, _ := h.store.Chapter(subject, chapterID)
	writeJSON(w, http.StatusOK, chapterResponse{QuestionSet: set, Meta: meta})
}

func (h *restHandler) listPosts(w http.ResponseWriter, r *http.Request) {
	subject, err := domain.ParseSubject(chi.URLParam(r, "subject"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	posts := h.store.Posts(subject)
	if posts == nil {
		posts = []domain.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *restHandler) getPost(w http.ResponseWriter, r *http.Request) {
	subject, err := domain.ParseSubject(chi.URLParam(r, "subject"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	postID := chi.URLParam(r, "post")
	meta, err := h.store.PostMeta(subject, postID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	post, _ := h.store.Post(subject, postID)
	writeJSON(w, http.StatusOK, postResponse{Post: post, Meta: meta})
}

func (h *restHandler) listRoutes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Routes())
}

func (h *restHandler) examPreview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ExamPreview(r.Context()))
}

func (h *restHandler) listWrongAnswers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.WrongAnswers(r.Context(), chi.URLParam(r, "profile")))
}

func (h *restHandler) clearWrongAnswers(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearWrongAnswers(r.Context(), chi.URLParam(r, "profile")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *restHandler) deleteWrongAnswer(w http.ResponseWriter, r *http.Request) {
	subject, err := domain.ParseSubject(chi.URLParam(r, "subject"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	questionID, err := strconv.Atoi(chi.URLParam(r, "question"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid question id"})
		return
	}
	key := domain.ChapterKey(subject, chi.URLParam(r, "chapter"))
	if err := h.service.DeleteWrongAnswer(r.Context(), chi.URLParam(r, "profile"), key, questionID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *restHandler) respondError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, code, errorPayload{Message: err.Error()})
}

func (h *restHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSubjectNotFound),
		errors.Is(err, domain.ErrChapterNotFound),
		errors.Is(err, domain.ErrPostNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidOption),
		errors.Is(err, domain.ErrNoSelection),
		errors.Is(err, domain.ErrNoActiveQuiz):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyGraded),
		errors.Is(err, domain.ErrInvalidPhase),
		errors.Is(err, domain.ErrUnansweredQuestions),
		errors.Is(err, domain.ErrEmptyExam):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
