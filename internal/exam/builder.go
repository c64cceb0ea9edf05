package exam

import (
	"math/rand"

	"certprep-study-service/internal/domain"
)

// Shuffle returns a Fisher–Yates permutation of items drawn from rnd; items is not modified.
func Shuffle[T any](items []T, rnd *rand.Rand) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Pools groups every question by subject, tagged with its chapter key, in chapter order.
func Pools(chapters []domain.QuestionSet) map[domain.Subject][]domain.ExamQuestion {
	pools := make(map[domain.Subject][]domain.ExamQuestion)
	for _, set := range chapters {
		key := set.Key()
		for _, q := range set.Questions {
			pools[set.Subject] = append(pools[set.Subject], domain.ExamQuestion{
				Question:   q,
				Subject:    set.Subject,
				ChapterKey: key,
			})
		}
	}
	return pools
}

// Build samples up to perSubject questions from each subject's shuffled pool and
// concatenates them in subject order. Subjects with an empty pool contribute nothing.
func Build(chapters []domain.QuestionSet, perSubject int, rnd *rand.Rand) []domain.ExamQuestion {
	pools := Pools(chapters)
	var out []domain.ExamQuestion
	for _, subject := range domain.Subjects() {
		pool := pools[subject]
		if len(pool) == 0 {
			continue
		}
		shuffled := Shuffle(pool, rnd)
		out = append(out, shuffled[:min(perSubject, len(shuffled))]...)
	}
	return out
}

// Block is a contiguous run of one subject's questions, [Start, End).
type Block struct {
	Subject domain.Subject `json:"subject"`
	Name    string         `json:"name"`
	Start   int            `json:"start"`
	End     int            `json:"end"`
}

// Blocks splits an exam into its subject blocks for the navigator.
func Blocks(questions []domain.ExamQuestion) []Block {
	var blocks []Block
	for i, q := range questions {
		if n := len(blocks); n > 0 && blocks[n-1].Subject == q.Subject {
			blocks[n-1].End = i + 1
			continue
		}
		blocks = append(blocks, Block{Subject: q.Subject, Name: q.Subject.Name(), Start: i, End: i + 1})
	}
	return blocks
}

// Preview lists every subject with its available pool size and how many would be drawn.
func Preview(chapters []domain.QuestionSet, perSubject int) []domain.SubjectCount {
	pools := Pools(chapters)
	out := make([]domain.SubjectCount, 0, len(domain.Subjects()))
	for _, subject := range domain.Subjects() {
		n := len(pools[subject])
		out = append(out, domain.SubjectCount{
			Subject:   subject,
			Name:      subject.Name(),
			Available: n,
			Selected:  min(perSubject, n),
		})
	}
	return out
}
