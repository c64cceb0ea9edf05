package exam

import (
	"fmt"
	"time"

	"certprep-study-service/internal/domain"
)

// QuestionView hides the answer key until the exam is completed.
type QuestionView struct {
	Index       int            `json:"index"`
	Subject     domain.Subject `json:"subject"`
	ChapterKey  string         `json:"chapterKey"`
	ID          int            `json:"id"`
	Text        string         `json:"question"`
	Options     []string       `json:"options"`
	Selected    int            `json:"selected,omitempty"`
	Answer      int            `json:"answer,omitempty"`
	Explanation string         `json:"explanation,omitempty"`
	Correct     *bool          `json:"correct,omitempty"`
}

type View struct {
	RunID          string                `json:"runId,omitempty"`
	Phase          Phase                 `json:"phase"`
	Total          int                   `json:"total"`
	Answered       int                   `json:"answered"`
	Unanswered     int                   `json:"unanswered"`
	ElapsedSeconds int64                 `json:"elapsedSeconds"`
	Clock          string                `json:"clock"`
	Blocks         []Block               `json:"blocks,omitempty"`
	Questions      []QuestionView        `json:"questions,omitempty"`
	Result         *domain.ExamResult    `json:"result,omitempty"`
	Preview        []domain.SubjectCount `json:"preview,omitempty"`
}

func (s State) View() View {
	v := View{
		RunID:          s.RunID,
		Phase:          s.Phase,
		Total:          len(s.Questions),
		Answered:       s.Answered(),
		Unanswered:     s.Unanswered(),
		ElapsedSeconds: int64(s.Elapsed / time.Second),
		Clock:          FormatElapsed(s.Elapsed),
		Blocks:         Blocks(s.Questions),
		Result:         s.Result,
		Preview:        s.Preview,
	}
	revealed := s.Phase == Completed
	for i, q := range s.Questions {
		qv := QuestionView{
			Index:      i,
			Subject:    q.Subject,
			ChapterKey: q.ChapterKey,
			ID:         q.ID,
			Text:       q.Text,
			Options:    q.Options,
			Selected:   s.Answers[i],
		}
		if revealed {
			correct := q.IsCorrect(s.Answers[i])
			qv.Answer = q.AnswerIndex
			qv.Explanation = q.Explanation
			qv.Correct = &correct
		}
		v.Questions = append(v.Questions, qv)
	}
	return v
}

// FormatElapsed renders mm:ss, or h:mm:ss past an hour.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, sec := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}
