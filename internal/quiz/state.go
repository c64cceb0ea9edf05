// Package quiz drives a single chapter question by question.
//
// State is an immutable value: every transition returns a new State and leaves
// the receiver untouched. Session layers wrong-answer bookkeeping on top.
package quiz

import (
	"certprep-study-service/internal/domain"
)

// Phase is the per-question state.
type Phase string

const (
	Unanswered Phase = "unanswered"
	Selected   Phase = "selected"
	Graded     Phase = "graded"
)

// Grade is the outcome of submitting one question.
type Grade struct {
	Selected int  `json:"selected"`
	Correct  bool `json:"correct"`
}

// State is a snapshot of one chapter session.
type State struct {
	Set      domain.QuestionSet
	Current  int
	selected int // pending choice on the current question, 0 = none
	graded   map[int]Grade
	correct  int
}

// New starts a session on the first question of set.
func New(set domain.QuestionSet) State {
	return State{Set: set, graded: map[int]Grade{}}
}

// ChapterKey identifies the chapter.
func (s State) ChapterKey() string { return s.Set.Key() }

// Total is the number of questions in the chapter.
func (s State) Total() int { return len(s.Set.Questions) }

// Question returns the question under the cursor.
func (s State) Question() domain.Question { return s.Set.Questions[s.Current] }

// Phase reports the state of the current question.
func (s State) Phase() Phase {
	if _, ok := s.graded[s.Current]; ok {
		return Graded
	}
	if s.selected != 0 {
		return Selected
	}
	return Unanswered
}

// Selection is the pending or graded choice on the current question (0 = none).
func (s State) Selection() int {
	if g, ok := s.graded[s.Current]; ok {
		return g.Selected
	}
	return s.selected
}

// GradeAt returns the grade for question index i, if it was graded.
func (s State) GradeAt(i int) (Grade, bool) {
	g, ok := s.graded[i]
	return g, ok
}

// GradedCount is the number of graded questions.
func (s State) GradedCount() int { return len(s.graded) }

// CorrectCount is the number of questions graded correct.
func (s State) CorrectCount() int { return s.correct }

// Progress is graded / total in [0,1].
func (s State) Progress() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(len(s.graded)) / float64(s.Total())
}

// RunningScore is correct / graded in [0,1]; 0 before anything is graded.
func (s State) RunningScore() float64 {
	if len(s.graded) == 0 {
		return 0
	}
	return float64(s.correct) / float64(len(s.graded))
}

// IsLast reports whether the cursor is on the final question.
func (s State) IsLast() bool { return s.Current == s.Total()-1 }

// Complete reports whether the session-complete action is available:
// the last question is under the cursor and graded.
func (s State) Complete() bool {
	return s.IsLast() && s.Phase() == Graded
}

// Select chooses an option on the current question. Allowed until it is graded;
// choosing again replaces the pending choice.
func (s State) Select(option int) (State, error) {
	if s.Phase() == Graded {
		return s, domain.ErrAlreadyGraded
	}
	if !s.Question().HasOption(option) {
		return s, domain.ErrInvalidOption
	}
	next := s
	next.selected = option
	return next, nil
}

// Submit grades the pending choice on the current question.
func (s State) Submit() (State, Grade, error) {
	if s.Phase() == Graded {
		return s, Grade{}, domain.ErrAlreadyGraded
	}
	if s.selected == 0 {
		return s, Grade{}, domain.ErrNoSelection
	}
	grade := Grade{Selected: s.selected, Correct: s.Question().IsCorrect(s.selected)}

	next := s.withGraded(s.Current, grade)
	next.selected = 0
	if grade.Correct {
		next.correct++
	}
	return next, grade, nil
}

// Next moves forward one question; at the last question it returns ok=false.
func (s State) Next() (State, bool) {
	if s.IsLast() {
		return s, false
	}
	return s.moveTo(s.Current + 1), true
}

// Prev moves back one question; at the first question it returns ok=false.
func (s State) Prev() (State, bool) {
	if s.Current == 0 {
		return s, false
	}
	return s.moveTo(s.Current - 1), true
}

// GoTo jumps to question index i (navigator).
func (s State) GoTo(i int) (State, error) {
	if i < 0 || i >= s.Total() {
		return s, domain.ErrQuestionNotFound
	}
	return s.moveTo(i), nil
}

// moveTo resets the pending choice; graded answers stay graded.
func (s State) moveTo(i int) State {
	next := s
	next.Current = i
	next.selected = 0
	return next
}

func (s State) withGraded(i int, g Grade) State {
	graded := make(map[int]Grade, len(s.graded)+1)
	for k, v := range s.graded {
		graded[k] = v
	}
	graded[i] = g
	next := s
	next.graded = graded
	return next
}
