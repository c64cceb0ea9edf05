package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
)

// Storage keeps one profile's wrong-answer collection in a single JSONB row.
type Storage struct {
	db        DB
	key       string
	profileID string
}

func NewStorage(db DB, key, profileID string) *Storage {
	return &Storage{db: db, key: key, profileID: profileID}
}

func (s *Storage) Load(ctx context.Context) ([]byte, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT data::text FROM wrong_answers WHERE profile_id=$1 AND storage_key=$2`, s.profileID, s.key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load wrong answers: %w", err)
	}
	return raw, nil
}

func (s *Storage) Save(ctx context.Context, data []byte) error {
	_, err := s.db.Exec(ctx, `INSERT INTO wrong_answers (profile_id, storage_key, data, updated_at) VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (profile_id, storage_key) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`,
		s.profileID, s.key, string(data))
	if err != nil {
		return fmt.Errorf("save wrong answers: %w", err)
	}
	return nil
}
