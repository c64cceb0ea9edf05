package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"certprep-study-service/internal/domain"
)

// ContentLoader loads question sets and theory posts stored as JSONB.
type ContentLoader struct {
	db DB
}

func NewContentLoader(db DB) *ContentLoader {
	return &ContentLoader{db: db}
}

func (l *ContentLoader) LoadChapters(ctx context.Context, subject domain.Subject) ([]domain.QuestionSet, error) {
	rows, err := l.db.Query(ctx, `SELECT data FROM question_sets WHERE subject=$1 ORDER BY position, chapter_id`, string(subject))
	if err != nil {
		return nil, fmt.Errorf("query question sets: %w", err)
	}
	defer rows.Close()

	var sets []domain.QuestionSet
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question set: %w", err)
		}
		var set domain.QuestionSet
		if err := json.Unmarshal(raw, &set); err != nil {
			return nil, fmt.Errorf("unmarshal question set: %w", err)
		}
		sets = append(sets, set)
	}
	return sets, rows.Err()
}

func (l *ContentLoader) LoadPosts(ctx context.Context, subject domain.Subject) ([]domain.Post, error) {
	rows, err := l.db.Query(ctx, `SELECT data FROM theory_posts WHERE subject=$1`, string(subject))
	if err != nil {
		return nil, fmt.Errorf("query theory posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan theory post: %w", err)
		}
		var post domain.Post
		if err := json.Unmarshal(raw, &post); err != nil {
			return nil, fmt.Errorf("unmarshal theory post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// SeedContent upserts question sets and posts, keeping the given chapter order.
func SeedContent(ctx context.Context, db DB, sets []domain.QuestionSet, posts []domain.Post) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, set := range sets {
		data, err := json.Marshal(set)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", set.Key(), err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO question_sets (subject, chapter_id, position, data) VALUES ($1, $2, $3, $4::jsonb)
			ON CONFLICT (subject, chapter_id) DO UPDATE SET position=EXCLUDED.position, data=EXCLUDED.data`,
			string(set.Subject), set.ChapterID, i, string(data)); err != nil {
			return fmt.Errorf("upsert %s: %w", set.Key(), err)
		}
	}
	for _, post := range posts {
		data, err := json.Marshal(post)
		if err != nil {
			return fmt.Errorf("marshal post %s: %w", post.ID, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO theory_posts (subject, post_id, data) VALUES ($1, $2, $3::jsonb)
			ON CONFLICT (subject, post_id) DO UPDATE SET data=EXCLUDED.data`,
			string(post.Subject), post.ID, string(data)); err != nil {
			return fmt.Errorf("upsert post %s: %w", post.ID, err)
		}
	}
	return tx.Commit(ctx)
}
