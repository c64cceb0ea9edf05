package domain

import "errors"

var (
	// ErrSubjectNotFound is returned for identifiers outside the five subjects.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrChapterNotFound indicates no question set exists for the chapter key.
	ErrChapterNotFound = errors.New("chapter not found")
	// ErrPostNotFound indicates no theory post exists for the id.
	ErrPostNotFound = errors.New("post not found")
	// ErrQuestionNotFound indicates a question ID or index is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidOption indicates a selected option is outside the question's options.
	ErrInvalidOption = errors.New("option not found")
	// ErrNoSelection is returned when grading is requested before an option is chosen.
	ErrNoSelection = errors.New("no option selected")
	// ErrAlreadyGraded is returned when changing a question that was already graded.
	ErrAlreadyGraded = errors.New("question already graded")
	// ErrInvalidPhase is returned when an exam action does not fit the current phase.
	ErrInvalidPhase = errors.New("action not allowed in current exam phase")
	// ErrUnansweredQuestions requires the caller to confirm submitting a partial exam.
	ErrUnansweredQuestions = errors.New("exam has unanswered questions")
	// ErrEmptyExam is returned when no subject has questions to sample.
	ErrEmptyExam = errors.New("no questions available for mock exam")
	// ErrNoActiveQuiz is returned when no chapter has been opened.
	ErrNoActiveQuiz = errors.New("no active quiz")
	// ErrSessionNotFound is returned when a profile has no attached session.
	ErrSessionNotFound = errors.New("study session not found")
	// ErrInvalidContent indicates authored content violates a question or chapter invariant.
	ErrInvalidContent = errors.New("invalid content")
)
