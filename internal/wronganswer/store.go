package wronganswer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"certprep-study-service/internal/domain"
	"certprep-study-service/internal/logger"

	"go.uber.org/zap"
)

// Storage persists the whole wrong-answer collection as one serialized value.
// Load returns (nil, nil) when nothing has been stored yet.
type Storage interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Store tracks incorrectly answered questions, one record per (chapter key, question ID).
// Every mutation reads the full collection and rewrites it.
type Store struct {
	storage Storage
	now     func() time.Time
	log     *zap.Logger
	mu      sync.Mutex
}

func NewStore(storage Storage, log *zap.Logger) *Store {
	return NewStoreWithClock(storage, log, time.Now)
}

// NewStoreWithClock allows deterministic timestamps in tests.
func NewStoreWithClock(storage Storage, log *zap.Logger, now func() time.Time) *Store {
	return &Store{storage: storage, now: now, log: logger.OrNop(log)}
}

// List returns the stored records. Unavailable or corrupt storage yields an empty list.
func (s *Store) List(ctx context.Context) []domain.WrongAnswer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(ctx)
}

// Has reports whether a record exists for the question.
func (s *Store) Has(ctx context.Context, chapterKey string, questionID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOf(s.readLocked(ctx), chapterKey, questionID) >= 0
}

// Record inserts a record unless one already exists for the question; the first
// wrong selection and its timestamp win. It reports whether a record was inserted.
func (s *Store) Record(ctx context.Context, chapterKey string, questionID, selected int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.readLocked(ctx)
	if indexOf(records, chapterKey, questionID) >= 0 {
		return false, nil
	}
	records = append(records, domain.WrongAnswer{
		ChapterKey:     chapterKey,
		QuestionID:     questionID,
		SelectedAnswer: selected,
		Timestamp:      s.now().UnixMilli(),
	})
	if err := s.writeLocked(ctx, records); err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes the record for the question if present.
func (s *Store) Clear(ctx context.Context, chapterKey string, questionID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.readLocked(ctx)
	kept := records[:0]
	for _, r := range records {
		if r.ChapterKey == chapterKey && r.QuestionID == questionID {
			continue
		}
		kept = append(kept, r)
	}
	return s.writeLocked(ctx, kept)
}

// ClearAll empties the collection.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx, nil)
}

func (s *Store) readLocked(ctx context.Context) []domain.WrongAnswer {
	raw, err := s.storage.Load(ctx)
	if err != nil {
		s.log.Warn("wrong-answer storage unavailable", zap.Error(err))
		return []domain.WrongAnswer{}
	}
	if len(raw) == 0 {
		return []domain.WrongAnswer{}
	}
	var records []domain.WrongAnswer
	if err := json.Unmarshal(raw, &records); err != nil {
		s.log.Warn("wrong-answer storage corrupt", zap.Error(err))
		return []domain.WrongAnswer{}
	}
	if records == nil {
		return []domain.WrongAnswer{}
	}
	return records
}

func (s *Store) writeLocked(ctx context.Context, records []domain.WrongAnswer) error {
	if records == nil {
		records = []domain.WrongAnswer{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode wrong answers: %w", err)
	}
	if err := s.storage.Save(ctx, raw); err != nil {
		s.log.Warn("wrong-answer storage write failed", zap.Error(err))
		return fmt.Errorf("save wrong answers: %w", err)
	}
	return nil
}

func indexOf(records []domain.WrongAnswer, chapterKey string, questionID int) int {
	for i, r := range records {
		if r.ChapterKey == chapterKey && r.QuestionID == questionID {
			return i
		}
	}
	return -1
}
