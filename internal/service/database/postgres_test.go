package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
)

// Runs only against a real Postgres: TEST_POSTGRES_HOST=localhost (plus USER/PASSWORD/DB).
func newPostgresTestService(t *testing.T) *Service {
	t.Helper()

	host := os.Getenv("TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("TEST_POSTGRES_HOST not set")
	}

	svc, err := NewPostgresService(Config{
		Host:     host,
		Port:     5432,
		User:     os.Getenv("TEST_POSTGRES_USER"),
		Password: os.Getenv("TEST_POSTGRES_PASSWORD"),
		Database: os.Getenv("TEST_POSTGRES_DB"),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	if err := svc.InitSchema(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return svc
}

func TestPostgresAccountRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newPostgresTestService(t)
	repo := NewAccountRepository(svc, 5, zap.NewNop())

	email := fmt.Sprintf("it-%d@example.com", time.Now().UnixNano())
	created, err := repo.Create(ctx, email, "fr")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() {
		_, _ = svc.GetDB().ExecContext(context.Background(), `DELETE FROM accounts WHERE id = $1`, created.ID)
	})

	if err := repo.IncrementUsage(ctx, created.ID); err != nil {
		t.Fatalf("increment: %v", err)
	}

	found, err := repo.FindByEmail(ctx, email)
	if err != nil || found == nil {
		t.Fatalf("find by email: %v %v", found, err)
	}
	if found.TranslationsUsed != 1 || found.PreferredLanguage != "fr" {
		t.Fatalf("unexpected account %+v", found)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalUsers < 1 || stats.TotalTranslations < 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
