package content

import (
	"sort"

	"certprep-study-service/internal/domain"
)

// Store is a read-only view of subjects, chapters and theory posts.
// It is safe for concurrent use because nothing mutates it after Load.
type Store struct {
	chapters map[domain.Subject][]domain.QuestionSet
	posts    map[domain.Subject][]domain.Post
	byKey    map[string]domain.QuestionSet
}

func newStore() *Store {
	return &Store{
		chapters: make(map[domain.Subject][]domain.QuestionSet),
		posts:    make(map[domain.Subject][]domain.Post),
		byKey:    make(map[string]domain.QuestionSet),
	}
}

func (s *Store) add(subject domain.Subject, loaded []domain.QuestionSet, posts []domain.Post) {
	chapters := make([]domain.QuestionSet, len(loaded))
	copy(chapters, loaded)
	for i := range chapters {
		if chapters[i].SubjectName == "" {
			chapters[i].SubjectName = subject.Name()
		}
		s.byKey[chapters[i].Key()] = chapters[i]
	}
	s.chapters[subject] = chapters

	sorted := make([]domain.Post, len(posts))
	copy(sorted, posts)
	for i := range sorted {
		sorted[i].Subject = subject
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	s.posts[subject] = sorted
}

// ChaptersForSubject returns a copy of the subject's chapters in authored order.
func (s *Store) ChaptersForSubject(subject domain.Subject) []domain.QuestionSet {
	return cloneSets(s.chapters[subject])
}

// Chapter looks up one chapter; ok is false when it does not exist.
func (s *Store) Chapter(subject domain.Subject, chapterID string) (domain.QuestionSet, bool) {
	set, ok := s.byKey[domain.ChapterKey(subject, chapterID)]
	return set.Clone(), ok
}

// ChapterByKey looks up a chapter by its "subject/chapter" key.
func (s *Store) ChapterByKey(key string) (domain.QuestionSet, bool) {
	set, ok := s.byKey[key]
	return set.Clone(), ok
}

// AllChapters flattens every subject's chapters in subject order.
func (s *Store) AllChapters() []domain.QuestionSet {
	var out []domain.QuestionSet
	for _, subject := range domain.Subjects() {
		out = append(out, cloneSets(s.chapters[subject])...)
	}
	return out
}

// Question resolves a question within a chapter.
func (s *Store) Question(chapterKey string, questionID int) (domain.Question, bool) {
	set, ok := s.byKey[chapterKey]
	if !ok {
		return domain.Question{}, false
	}
	for _, q := range set.Questions {
		if q.ID == questionID {
			return q.Clone(), true
		}
	}
	return domain.Question{}, false
}

// QuestionCount is the number of questions authored for a subject.
func (s *Store) QuestionCount(subject domain.Subject) int {
	n := 0
	for _, set := range s.chapters[subject] {
		n += len(set.Questions)
	}
	return n
}

// Posts returns a copy of the subject's theory posts ordered by their order field.
func (s *Store) Posts(subject domain.Subject) []domain.Post {
	return append([]domain.Post(nil), s.posts[subject]...)
}

// Post looks up one theory post.
func (s *Store) Post(subject domain.Subject, id string) (domain.Post, bool) {
	for _, p := range s.posts[subject] {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Post{}, false
}

func cloneSets(sets []domain.QuestionSet) []domain.QuestionSet {
	if sets == nil {
		return nil
	}
	out := make([]domain.QuestionSet, len(sets))
	for i, set := range sets {
		out[i] = set.Clone()
	}
	return out
}
