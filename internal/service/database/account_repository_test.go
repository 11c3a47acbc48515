package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/domain"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	svc, err := NewSQLiteService(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	if err := svc.InitSchema(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return svc
}

func TestAccountRepositoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(newTestService(t), 5, zap.NewNop())
	fixed := time.UnixMilli(1_700_000_000_000)
	repo.now = func() time.Time { return fixed }

	created, err := repo.Create(ctx, "  Viewer@Example.com ", "RO")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(created.APIKey, "sk_") || len(created.APIKey) != 3+64 {
		t.Fatalf("unexpected api key %q", created.APIKey)
	}
	if created.SubscriptionState != domain.SubscriptionTrial || created.TranslationsLimit != 5 {
		t.Fatalf("unexpected account %+v", created)
	}

	byKey, err := repo.FindByAPIKey(ctx, created.APIKey)
	if err != nil || byKey == nil {
		t.Fatalf("find by key: %v %v", byKey, err)
	}
	if byKey.Email != "viewer@example.com" || byKey.PreferredLanguage != "ro" {
		t.Fatalf("unexpected stored account %+v", byKey)
	}
	if byKey.SubscriptionEndDate == nil || !byKey.SubscriptionEndDate.Equal(fixed.Add(7*24*time.Hour)) {
		t.Fatalf("unexpected end date %v", byKey.SubscriptionEndDate)
	}
	if !byKey.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected created at %v", byKey.CreatedAt)
	}

	byEmail, err := repo.FindByEmail(ctx, "VIEWER@example.com")
	if err != nil || byEmail == nil || byEmail.ID != created.ID {
		t.Fatalf("find by email: %v %v", byEmail, err)
	}
}

func TestAccountRepositoryMissing(t *testing.T) {
	repo := NewAccountRepository(newTestService(t), 5, zap.NewNop())

	account, err := repo.FindByAPIKey(context.Background(), "sk_missing")
	if err != nil || account != nil {
		t.Fatalf("expected nil, nil; got %v, %v", account, err)
	}

	ok, err := repo.UpdatePreferredLanguage(context.Background(), "sk_missing", "fr")
	if err != nil || ok {
		t.Fatalf("expected no update; got %v, %v", ok, err)
	}
}

func TestAccountRepositoryUsageAndStats(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(newTestService(t), 5, zap.NewNop())

	a, err := repo.Create(ctx, "a@example.com", "ro")
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	if _, err := repo.Create(ctx, "b@example.com", "fr"); err != nil {
		t.Fatalf("create b: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := repo.IncrementUsage(ctx, a.ID); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if ok, err := repo.UpdatePreferredLanguage(ctx, a.APIKey, "DE"); err != nil || !ok {
		t.Fatalf("update language: %v %v", ok, err)
	}

	reloaded, err := repo.FindByAPIKey(ctx, a.APIKey)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.TranslationsUsed != 3 || reloaded.PreferredLanguage != "de" {
		t.Fatalf("unexpected account after updates %+v", reloaded)
	}

	if _, err := repo.db.GetDB().ExecContext(ctx, `UPDATE accounts SET subscription_status = 'active' WHERE id = ?`, a.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := domain.AccountStats{TotalUsers: 2, ActiveSubscriptions: 1, TotalTranslations: 3}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(newTestService(t), 5, zap.NewNop())

	if _, err := repo.Create(ctx, "dup@example.com", "ro"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := repo.Create(ctx, "DUP@example.com", "ro"); err == nil {
		t.Fatal("expected unique violation")
	}
}

func TestRebind(t *testing.T) {
	pg := &Service{driver: DriverPostgres}
	if got := pg.Rebind("SELECT a FROM t WHERE x = ? AND y = ?"); got != "SELECT a FROM t WHERE x = $1 AND y = $2" {
		t.Fatalf("unexpected rebind %q", got)
	}

	lite := &Service{driver: DriverSQLite}
	if got := lite.Rebind("x = ?"); got != "x = ?" {
		t.Fatalf("sqlite must keep placeholders, got %q", got)
	}
}
