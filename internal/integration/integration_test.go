package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"certprep-study-service/internal/app"
	"certprep-study-service/internal/content"
	"certprep-study-service/internal/domain"
	"certprep-study-service/internal/exam"
	pginfra "certprep-study-service/internal/infra/postgres"
	pgmigrations "certprep-study-service/internal/infra/postgres/migrations"
	infraredis "certprep-study-service/internal/infra/redis"
	"certprep-study-service/internal/wronganswer"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestStudyFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	seedBundle(t, ctx, pool)
	store, err := content.Load(ctx, pginfra.NewContentLoader(pool), nil)
	if err != nil {
		t.Fatalf("load content from postgres: %v", err)
	}
	if n := store.QuestionCount(domain.SystemSecurity); n != 10 {
		t.Fatalf("expected 10 seeded questions, got %d", n)
	}
	if posts := store.Posts(domain.SystemSecurity); len(posts) != 3 || posts[0].ID != "01-terminal-systems" {
		t.Fatalf("unexpected seeded posts %+v", posts)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute, nil)
	service := app.NewStudyService(sessions, store, func(profileID string) wronganswer.Storage {
		return pginfra.NewStorage(pool, "wrong-answers", profileID)
	}, exam.DefaultPolicy(), nil, exam.WithTick(0))

	if _, err := service.Attach(ctx, "p1"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if live, err := sessions.Live(ctx, "p1"); err != nil || !live {
		t.Fatalf("expected live session marker, got %v err=%v", live, err)
	}

	// Question 1 of system-security/1 is answered by option 2.
	if _, err := service.OpenChapter(ctx, "p1", domain.SystemSecurity, "1"); err != nil {
		t.Fatalf("open chapter: %v", err)
	}
	if _, err := service.SelectOption(ctx, "p1", 1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, grade, err := service.SubmitAnswer(ctx, "p1"); err != nil || grade.Correct {
		t.Fatalf("expected wrong grade, got %+v err=%v", grade, err)
	}

	var raw []byte
	if err := pool.QueryRow(ctx, `SELECT data::text FROM wrong_answers WHERE profile_id=$1 AND storage_key=$2`, "p1", "wrong-answers").Scan(&raw); err != nil {
		t.Fatalf("read wrong answers row: %v", err)
	}
	var records []domain.WrongAnswer
	if err := json.Unmarshal(raw, &records); err != nil {
		t.Fatalf("decode row: %v", err)
	}
	if len(records) != 1 || records[0].ChapterKey != "system-security/1" || records[0].SelectedAnswer != 1 {
		t.Fatalf("unexpected persisted records %+v", records)
	}

	st, err := service.StartExam(ctx, "p1")
	if err != nil {
		t.Fatalf("start exam: %v", err)
	}
	if len(st.Questions) != 13 {
		t.Fatalf("expected every bundled question in the exam, got %d", len(st.Questions))
	}
	st, err = service.SubmitExam(ctx, "p1", true)
	if err != nil {
		t.Fatalf("submit exam: %v", err)
	}
	if st.Result.Passed || len(st.Result.Wrong) != 13 {
		t.Fatalf("unexpected exam result %+v", st.Result)
	}
	// The quiz miss on system-security/1 question 1 is not recorded twice.
	if items := service.WrongAnswers(ctx, "p1"); len(items) != 13 {
		t.Fatalf("expected 13 distinct wrong answers, got %d", len(items))
	}

	service.Detach(ctx, "p1")
	if live, _ := sessions.Live(ctx, "p1"); live {
		t.Fatalf("expected session marker removed after detach")
	}
}

func TestRedisWrongAnswerStorage(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()
	client, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer client.Close()

	store := wronganswer.NewStore(infraredis.NewStorage(client, "wrong-answers", "p1", 0), nil)
	if _, err := store.Record(ctx, "network-security/1", 2, 4); err != nil {
		t.Fatalf("record: %v", err)
	}
	again := wronganswer.NewStore(infraredis.NewStorage(client, "wrong-answers", "p1", 0), nil)
	if !again.Has(ctx, "network-security/1", 2) {
		t.Fatalf("expected record visible through a fresh store")
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "certprep", "POSTGRES_PASSWORD": "certpass", "POSTGRES_DB": "certprep"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://certprep:certpass@%s:%s/certprep?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func seedBundle(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	bundled, err := content.Load(ctx, content.Bundled(), nil)
	if err != nil {
		t.Fatalf("load bundle: %v", err)
	}
	var posts []domain.Post
	for _, subject := range domain.Subjects() {
		posts = append(posts, bundled.Posts(subject)...)
	}
	if err := pginfra.SeedContent(ctx, pool, bundled.AllChapters(), posts); err != nil {
		t.Fatalf("seed content: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
