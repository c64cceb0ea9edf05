package postgres

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"certprep-study-service/internal/content"
	"certprep-study-service/internal/domain"
	"certprep-study-service/internal/wronganswer"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

func TestStorageLoadMissingRow(t *testing.T) {
	storage := NewStorage(newFakeDB(), "wrong-answers", "p1")
	data, err := storage.Load(context.Background())
	if err != nil || data != nil {
		t.Fatalf("expected nil data for missing row, got %q err=%v", data, err)
	}
}

func TestStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()

	store := wronganswer.NewStore(NewStorage(db, "wrong-answers", "p1"), nil)
	if _, err := store.Record(ctx, "system-security/1", 3, 2); err != nil {
		t.Fatalf("record: %v", err)
	}

	fresh := wronganswer.NewStore(NewStorage(db, "wrong-answers", "p1"), nil)
	records := fresh.List(ctx)
	if len(records) != 1 || records[0].QuestionID != 3 || records[0].SelectedAnswer != 2 {
		t.Fatalf("unexpected records %+v", records)
	}
	if other := wronganswer.NewStore(NewStorage(db, "wrong-answers", "p2"), nil).List(ctx); len(other) != 0 {
		t.Fatalf("profiles must not share rows, got %+v", other)
	}
}

func TestStorageLoadError(t *testing.T) {
	db := newFakeDB()
	db.failOn = "SELECT data::text FROM wrong_answers"
	if _, err := NewStorage(db, "wrong-answers", "p1").Load(context.Background()); err == nil || errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected wrapped query error, got %v", err)
	}
}

func TestSeedContentRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()

	sets := []domain.QuestionSet{
		seedSet(domain.SystemSecurity, "2", "서버 시스템"),
		seedSet(domain.SystemSecurity, "1", "단말 시스템"),
		seedSet(domain.NetworkSecurity, "1", "네트워크 기초"),
	}
	posts := []domain.Post{
		{ID: "later", Subject: domain.SystemSecurity, Title: "L", Order: 2},
		{ID: "first", Subject: domain.SystemSecurity, Title: "F", Order: 1},
	}
	if err := SeedContent(ctx, db, sets, posts); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store, err := content.Load(ctx, NewContentLoader(db), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	chapters := store.ChaptersForSubject(domain.SystemSecurity)
	if len(chapters) != 2 || chapters[0].ChapterID != "2" || chapters[1].ChapterName != "단말 시스템" {
		t.Fatalf("chapters should come back in seeded order, got %+v", chapters)
	}
	if q, ok := store.Question("network-security/1", 1); !ok || q.AnswerIndex != 3 {
		t.Fatalf("unexpected question %+v ok=%v", q, ok)
	}
	if got := store.Posts(domain.SystemSecurity); len(got) != 2 || got[0].ID != "first" {
		t.Fatalf("unexpected posts %+v", got)
	}
}

func TestSeedContentRollsBackOnError(t *testing.T) {
	db := newFakeDB()
	db.failOn = "INSERT INTO theory_posts"

	err := SeedContent(context.Background(), db,
		[]domain.QuestionSet{seedSet(domain.SystemSecurity, "1", "단말 시스템")},
		[]domain.Post{{ID: "first", Subject: domain.SystemSecurity, Title: "F"}},
	)
	if err == nil {
		t.Fatalf("expected seed error")
	}
	if len(db.rows["question_sets"]) != 0 {
		t.Fatalf("question sets must not be committed after a failed seed")
	}
}

func seedSet(subject domain.Subject, chapterID, name string) domain.QuestionSet {
	return domain.QuestionSet{
		Subject:     subject,
		ChapterID:   chapterID,
		ChapterName: name,
		Questions: []domain.Question{
			{ID: 1, Text: "q", Options: []string{"a", "b", "c", "d"}, AnswerIndex: 3},
		},
	}
}

// fakeDB keeps rows per table, keyed the way the real primary keys are.
type fakeDB struct {
	mu     sync.Mutex
	rows   map[string]map[string]fakeRecord
	failOn string
}

type fakeRecord struct {
	scope    string
	position int
	sortKey  string
	data     []byte
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: map[string]map[string]fakeRecord{}}
}

func (db *fakeDB) fails(sql string) bool {
	return db.failOn != "" && strings.Contains(sql, db.failOn)
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	if db.fails(sql) {
		return nil, errors.New("exec failed")
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.apply(sql, args)
	return pgconn.CommandTag("INSERT 0 1"), nil
}

func (db *fakeDB) apply(sql string, args []interface{}) {
	put := func(table, scope, id string, position int, data string) {
		if db.rows[table] == nil {
			db.rows[table] = map[string]fakeRecord{}
		}
		db.rows[table][scope+"|"+id] = fakeRecord{scope: scope, position: position, sortKey: id, data: []byte(data)}
	}
	switch {
	case strings.Contains(sql, "INSERT INTO question_sets"):
		put("question_sets", args[0].(string), args[1].(string), args[2].(int), args[3].(string))
	case strings.Contains(sql, "INSERT INTO theory_posts"):
		put("theory_posts", args[0].(string), args[1].(string), 0, args[2].(string))
	case strings.Contains(sql, "INSERT INTO wrong_answers"):
		put("wrong_answers", args[0].(string), args[1].(string), 0, args[2].(string))
	}
}

func (db *fakeDB) Query(_ context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	if db.fails(sql) {
		return nil, errors.New("query failed")
	}
	table := "question_sets"
	if strings.Contains(sql, "theory_posts") {
		table = "theory_posts"
	}
	subject := args[0].(string)

	db.mu.Lock()
	var matched []fakeRecord
	for _, rec := range db.rows[table] {
		if rec.scope == subject {
			matched = append(matched, rec)
		}
	}
	db.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].position != matched[j].position {
			return matched[i].position < matched[j].position
		}
		return matched[i].sortKey < matched[j].sortKey
	})
	rows := &fakeRows{}
	for _, rec := range matched {
		rows.data = append(rows.data, rec.data)
	}
	return rows, nil
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	if db.fails(sql) {
		return fakeRow{err: errors.New("query failed")}
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	rec, ok := db.rows["wrong_answers"][args[0].(string)+"|"+args[1].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{data: rec.data}
}

func (db *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	return &fakeTx{db: db}, nil
}

// fakeTx buffers writes until Commit; methods it does not override panic via the nil embedded Tx.
type fakeTx struct {
	pgx.Tx
	db      *fakeDB
	pending [][]interface{}
	sqls    []string
}

func (tx *fakeTx) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	if tx.db.fails(sql) {
		return nil, errors.New("exec failed")
	}
	tx.sqls = append(tx.sqls, sql)
	tx.pending = append(tx.pending, args)
	return pgconn.CommandTag("INSERT 0 1"), nil
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	for i, sql := range tx.sqls {
		tx.db.apply(sql, tx.pending[i])
	}
	tx.sqls, tx.pending = nil, nil
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	tx.sqls, tx.pending = nil, nil
	return nil
}

type fakeRows struct {
	pgx.Rows
	data [][]byte
	i    int
}

func (r *fakeRows) Next() bool {
	r.i++
	return r.i <= len(r.data)
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	*dest[0].(*[]byte) = r.data[r.i-1]
	return nil
}

func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Close()     {}

type fakeRow struct {
	data []byte
	err  error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*[]byte) = r.data
	return nil
}
