package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // driver: sqlite
)

const defaultDSN = "file:certprep.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"

const schema = `
CREATE TABLE IF NOT EXISTS wrong_answers (
  profile_id  TEXT NOT NULL,
  storage_key TEXT NOT NULL,
  data        TEXT NOT NULL,
  updated_at  INTEGER NOT NULL,
  PRIMARY KEY (profile_id, storage_key)
);
`

// Open opens the local database and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

// Storage keeps one profile's wrong-answer collection in a local SQLite row.
type Storage struct {
	db        *sql.DB
	key       string
	profileID string
	now       func() time.Time
}

func NewStorage(db *sql.DB, key, profileID string) *Storage {
	return &Storage{db: db, key: key, profileID: profileID, now: time.Now}
}

func (s *Storage) Load(ctx context.Context) ([]byte, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM wrong_answers WHERE profile_id=$1 AND storage_key=$2`, s.profileID, s.key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load wrong answers: %w", err)
	}
	return []byte(raw), nil
}

func (s *Storage) Save(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO wrong_answers (profile_id, storage_key, data, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (profile_id, storage_key) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		s.profileID, s.key, string(data), s.now().Unix())
	if err != nil {
		return fmt.Errorf("save wrong answers: %w", err)
	}
	return nil
}
