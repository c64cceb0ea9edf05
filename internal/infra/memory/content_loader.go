package memory

import (
	"context"

	"certprep-study-service/internal/domain"
)

// StaticContentLoader is a content.Loader backed by in-memory slices (useful for tests/demos).
type StaticContentLoader struct {
	chapters map[domain.Subject][]domain.QuestionSet
	posts    map[domain.Subject][]domain.Post
}

func NewStaticContentLoader(sets []domain.QuestionSet, posts []domain.Post) *StaticContentLoader {
	l := &StaticContentLoader{
		chapters: make(map[domain.Subject][]domain.QuestionSet),
		posts:    make(map[domain.Subject][]domain.Post),
	}
	for _, set := range sets {
		l.chapters[set.Subject] = append(l.chapters[set.Subject], set)
	}
	for _, p := range posts {
		l.posts[p.Subject] = append(l.posts[p.Subject], p)
	}
	return l
}

func (l *StaticContentLoader) LoadChapters(_ context.Context, subject domain.Subject) ([]domain.QuestionSet, error) {
	return l.chapters[subject], nil
}

func (l *StaticContentLoader) LoadPosts(_ context.Context, subject domain.Subject) ([]domain.Post, error) {
	return l.posts[subject], nil
}
