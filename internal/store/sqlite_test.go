package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/ashureev/tradebot/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "bot.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSentryMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetSentry(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetSentry failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil sentry, got %+v", got)
	}
}

func TestSentrySaveAndReplace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveSentry(ctx, domain.NewSentry("bot", []byte("first"))); err != nil {
		t.Fatalf("SaveSentry failed: %v", err)
	}
	if err := s.SaveSentry(ctx, domain.NewSentry("bot", []byte("second"))); err != nil {
		t.Fatalf("SaveSentry replace failed: %v", err)
	}

	got, err := s.GetSentry(ctx, "bot")
	if err != nil {
		t.Fatalf("GetSentry failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a stored sentry")
	}
	if !bytes.Equal(got.Data, []byte("second")) {
		t.Fatalf("expected replaced data, got %q", got.Data)
	}
	if !bytes.Equal(got.Hash, domain.SentryHash([]byte("second"))) {
		t.Fatal("stored hash does not match data")
	}
}

func TestSentryPerUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveSentry(ctx, domain.NewSentry("alpha", []byte("a"))); err != nil {
		t.Fatalf("SaveSentry failed: %v", err)
	}
	if err := s.SaveSentry(ctx, domain.NewSentry("beta", []byte("b"))); err != nil {
		t.Fatalf("SaveSentry failed: %v", err)
	}
	if err := s.DeleteSentry(ctx, "alpha"); err != nil {
		t.Fatalf("DeleteSentry failed: %v", err)
	}

	if got, _ := s.GetSentry(ctx, "alpha"); got != nil {
		t.Fatal("alpha should be gone")
	}
	got, err := s.GetSentry(ctx, "beta")
	if err != nil || got == nil {
		t.Fatalf("beta should remain, got %v err %v", got, err)
	}
}

func TestSaveSentryRequiresUsername(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveSentry(context.Background(), &domain.Sentry{Data: []byte("x")}); err == nil {
		t.Fatal("expected error for missing username")
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}
