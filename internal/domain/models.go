package domain

import "time"

// Question models a multiple-choice item. AnswerIndex is 1-based into Options.
type Question struct {
	ID          int      `json:"id"`
	Text        string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer"`
	Explanation string   `json:"explanation"`
	Keywords    []string `json:"keywords"`
}

// IsCorrect reports whether the 1-based option matches the answer key.
func (q Question) IsCorrect(option int) bool {
	return option == q.AnswerIndex
}

// HasOption reports whether option is a valid 1-based index for this question.
func (q Question) HasOption(option int) bool {
	return option >= 1 && option <= len(q.Options)
}

// Clone returns a copy that shares no slices with q.
func (q Question) Clone() Question {
	q.Options = cloneStrings(q.Options)
	q.Keywords = cloneStrings(q.Keywords)
	return q
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// QuestionSet is one chapter of questions for a subject.
type QuestionSet struct {
	Subject     Subject    `json:"subject"`
	SubjectName string     `json:"subjectName"`
	ChapterID   string     `json:"chapter"`
	ChapterName string     `json:"chapterName"`
	Questions   []Question `json:"questions"`
}

// Key returns the chapter key ("subject/chapter").
func (s QuestionSet) Key() string {
	return ChapterKey(s.Subject, s.ChapterID)
}

// Clone returns a deep copy of the chapter.
func (s QuestionSet) Clone() QuestionSet {
	if s.Questions != nil {
		questions := make([]Question, len(s.Questions))
		for i, q := range s.Questions {
			questions[i] = q.Clone()
		}
		s.Questions = questions
	}
	return s
}

// Post is a theory article listed for navigation.
type Post struct {
	ID          string  `json:"id"`
	Subject     Subject `json:"subject"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Chapter     string  `json:"chapter"`
	Order       int     `json:"order"`
}

// WrongAnswer is one persisted incorrect answer. At most one exists per
// (ChapterKey, QuestionID).
type WrongAnswer struct {
	ChapterKey     string `json:"chapterKey"`
	QuestionID     int    `json:"questionId"`
	SelectedAnswer int    `json:"selectedAnswer"`
	Timestamp      int64  `json:"timestamp"` // unix millis
}

// RecordedAt converts the millisecond timestamp.
func (w WrongAnswer) RecordedAt() time.Time {
	return time.UnixMilli(w.Timestamp)
}

// ExamQuestion binds a question to its origin for one mock-exam run.
type ExamQuestion struct {
	Question
	Subject    Subject `json:"subject"`
	ChapterKey string  `json:"chapterKey"`
}

// SubjectScore is the per-subject outcome of a completed mock exam.
type SubjectScore struct {
	Subject Subject `json:"subject"`
	Name    string  `json:"name"`
	Total   int     `json:"total"`
	Correct int     `json:"correct"`
	Score   int     `json:"score"`
	Passed  bool    `json:"passed"`
}

// ExamResult aggregates a completed mock exam.
type ExamResult struct {
	Subjects       []SubjectScore `json:"subjects"`
	TotalQuestions int            `json:"totalQuestions"`
	TotalCorrect   int            `json:"totalCorrect"`
	Average        int            `json:"average"`
	Passed         bool           `json:"passed"`
	ElapsedSeconds int64          `json:"elapsedSeconds"`
	Wrong          []int          `json:"wrong"` // exam indexes graded incorrect
}

// SubjectCount is the number of questions available for a subject.
type SubjectCount struct {
	Subject   Subject `json:"subject"`
	Name      string  `json:"name"`
	Available int     `json:"available"`
	Selected  int     `json:"selected"`
}

// PageMeta is the title/description pair a host applies to document metadata.
type PageMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Route is one navigable page with its metadata.
type Route struct {
	Path string `json:"path"`
	PageMeta
}
