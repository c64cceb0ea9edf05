package content

import (
	"context"
	"fmt"

	"certprep-study-service/internal/domain"
	"certprep-study-service/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Loader fetches authored content for one subject from a backing source.
// A subject without content yields an empty slice, not an error.
type Loader interface {
	LoadChapters(ctx context.Context, subject domain.Subject) ([]domain.QuestionSet, error)
	LoadPosts(ctx context.Context, subject domain.Subject) ([]domain.Post, error)
}

type subjectContent struct {
	chapters []domain.QuestionSet
	posts    []domain.Post
}

// Load reads every subject concurrently, validates it and returns an immutable Store.
func Load(ctx context.Context, loader Loader, log *zap.Logger) (*Store, error) {
	log = logger.OrNop(log)
	subjects := domain.Subjects()
	results := make([]subjectContent, len(subjects))

	g, gctx := errgroup.WithContext(ctx)
	for i, subject := range subjects {
		i, subject := i, subject
		g.Go(func() error {
			chapters, err := loader.LoadChapters(gctx, subject)
			if err != nil {
				return fmt.Errorf("load chapters for %s: %w", subject, err)
			}
			if err := validateChapters(subject, chapters); err != nil {
				return err
			}
			posts, err := loader.LoadPosts(gctx, subject)
			if err != nil {
				return fmt.Errorf("load posts for %s: %w", subject, err)
			}
			results[i] = subjectContent{chapters: chapters, posts: posts}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	store := newStore()
	for i, subject := range subjects {
		store.add(subject, results[i].chapters, results[i].posts)
		log.Debug("content loaded",
			zap.String("subject", string(subject)),
			zap.Int("chapters", len(results[i].chapters)),
			zap.Int("posts", len(results[i].posts)),
		)
	}
	return store, nil
}

func validateChapters(subject domain.Subject, chapters []domain.QuestionSet) error {
	seenChapters := make(map[string]struct{}, len(chapters))
	for _, set := range chapters {
		if set.Subject != subject {
			return fmt.Errorf("%w: chapter %s belongs to %q, loaded for %q", domain.ErrInvalidContent, set.ChapterID, set.Subject, subject)
		}
		if set.ChapterID == "" {
			return fmt.Errorf("%w: %s has a chapter without id", domain.ErrInvalidContent, subject)
		}
		if _, dup := seenChapters[set.ChapterID]; dup {
			return fmt.Errorf("%w: duplicate chapter %s", domain.ErrInvalidContent, set.Key())
		}
		seenChapters[set.ChapterID] = struct{}{}

		seenQuestions := make(map[int]struct{}, len(set.Questions))
		for _, q := range set.Questions {
			if _, dup := seenQuestions[q.ID]; dup {
				return fmt.Errorf("%w: duplicate question %d in %s", domain.ErrInvalidContent, q.ID, set.Key())
			}
			seenQuestions[q.ID] = struct{}{}
			if len(q.Options) < 2 {
				return fmt.Errorf("%w: question %d in %s has %d options", domain.ErrInvalidContent, q.ID, set.Key(), len(q.Options))
			}
			if !q.HasOption(q.AnswerIndex) {
				return fmt.Errorf("%w: question %d in %s has answer %d outside 1..%d", domain.ErrInvalidContent, q.ID, set.Key(), q.AnswerIndex, len(q.Options))
			}
		}
	}
	return nil
}
