package exam

import (
	"certprep-study-service/internal/config"
	"certprep-study-service/internal/domain"
)

// Policy sets sampling size and pass thresholds (percent).
type Policy struct {
	QuestionsPerSubject int
	SubjectPassScore    int
	AveragePassScore    int
}

// DefaultPolicy is 20 questions per subject, a 40-point subject floor and a 60-point average.
func DefaultPolicy() Policy {
	return Policy{
		QuestionsPerSubject: config.DefaultQuestionsPerSubject,
		SubjectPassScore:    config.DefaultSubjectPassScore,
		AveragePassScore:    config.DefaultAveragePassScore,
	}
}

// PolicyFromConfig maps the exam config section.
func PolicyFromConfig(cfg config.Exam) Policy {
	p := DefaultPolicy()
	if cfg.QuestionsPerSubject > 0 {
		p.QuestionsPerSubject = cfg.QuestionsPerSubject
	}
	if cfg.SubjectPassScore > 0 {
		p.SubjectPassScore = cfg.SubjectPassScore
	}
	if cfg.AveragePassScore > 0 {
		p.AveragePassScore = cfg.AveragePassScore
	}
	return p
}

// Percent is round(100*part/total), rounding halves up; 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}

// Score grades an exam. answers maps exam index to the chosen 1-based option;
// missing entries are unanswered and count as incorrect.
func Score(questions []domain.ExamQuestion, answers map[int]int, policy Policy) domain.ExamResult {
	type tally struct{ total, correct int }
	tallies := make(map[domain.Subject]*tally)
	result := domain.ExamResult{TotalQuestions: len(questions)}

	for i, q := range questions {
		t, ok := tallies[q.Subject]
		if !ok {
			t = &tally{}
			tallies[q.Subject] = t
		}
		t.total++
		if chosen, answered := answers[i]; answered && q.IsCorrect(chosen) {
			t.correct++
			result.TotalCorrect++
		} else {
			result.Wrong = append(result.Wrong, i)
		}
	}

	allSubjectsPass := true
	for _, subject := range domain.Subjects() {
		t, ok := tallies[subject]
		if !ok {
			continue
		}
		score := Percent(t.correct, t.total)
		passed := score >= policy.SubjectPassScore
		if !passed {
			allSubjectsPass = false
		}
		result.Subjects = append(result.Subjects, domain.SubjectScore{
			Subject: subject,
			Name:    subject.Name(),
			Total:   t.total,
			Correct: t.correct,
			Score:   score,
			Passed:  passed,
		})
	}

	result.Average = Percent(result.TotalCorrect, result.TotalQuestions)
	result.Passed = result.TotalQuestions > 0 && result.Average >= policy.AveragePassScore && allSubjectsPass
	return result
}
