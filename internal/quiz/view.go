package quiz

// NavStatus marks a question in the navigator.
type NavStatus string

const (
	NavPending NavStatus = "pending"
	NavCorrect NavStatus = "correct"
	NavWrong   NavStatus = "wrong"
)

// QuestionView is the current question as shown to the learner. The answer key,
// explanation and keywords are only filled once the question is graded.
type QuestionView struct {
	ID          int      `json:"id"`
	Text        string   `json:"question"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// View is the serializable form of a State.
type View struct {
	ChapterKey   string       `json:"chapterKey"`
	SubjectName  string       `json:"subjectName"`
	ChapterName  string       `json:"chapterName"`
	Index        int          `json:"index"`
	Total        int          `json:"total"`
	Phase        Phase        `json:"phase"`
	Selection    int          `json:"selection"`
	Correct      *bool        `json:"correct,omitempty"`
	Question     QuestionView `json:"question"`
	Graded       int          `json:"graded"`
	CorrectCount int          `json:"correctCount"`
	Progress     float64      `json:"progress"`
	Navigator    []NavStatus  `json:"navigator"`
	IsLast       bool         `json:"isLast"`
	Complete     bool         `json:"complete"`
}

// View renders the snapshot for transport.
func (s State) View() View {
	q := s.Question()
	v := View{
		ChapterKey:   s.ChapterKey(),
		SubjectName:  s.Set.SubjectName,
		ChapterName:  s.Set.ChapterName,
		Index:        s.Current,
		Total:        s.Total(),
		Phase:        s.Phase(),
		Selection:    s.Selection(),
		Question:     QuestionView{ID: q.ID, Text: q.Text, Options: q.Options},
		Graded:       s.GradedCount(),
		CorrectCount: s.CorrectCount(),
		Progress:     s.Progress(),
		Navigator:    make([]NavStatus, s.Total()),
		IsLast:       s.IsLast(),
		Complete:     s.Complete(),
	}
	if g, ok := s.GradeAt(s.Current); ok {
		correct := g.Correct
		v.Correct = &correct
		v.Question.Answer = q.AnswerIndex
		v.Question.Explanation = q.Explanation
		v.Question.Keywords = q.Keywords
	}
	for i := range v.Navigator {
		v.Navigator[i] = NavPending
		if g, ok := s.GradeAt(i); ok {
			if g.Correct {
				v.Navigator[i] = NavCorrect
			} else {
				v.Navigator[i] = NavWrong
			}
		}
	}
	return v
}
