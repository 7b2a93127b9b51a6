package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/shared"
	"golang.org/x/oauth2"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func testSession(id string) *models.Session {
	return &models.Session{
		User: models.User{ID: models.ID(id), Email: id + "@example.com", Username: "user" + id, Role: "Reader"},
		Token: &oauth2.Token{
			AccessToken: "token-" + id,
			TokenType:   "Bearer",
			Expiry:      time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Save and Current", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		if err := repo.Save(ctx, testSession("7")); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}

		got, err := repo.Current(ctx)
		if err != nil {
			t.Fatalf("failed to load session: %v", err)
		}
		if got.User.ID != "7" || got.User.Email != "7@example.com" {
			t.Errorf("unexpected user %+v", got.User)
		}
		if got.Token == nil || got.Token.AccessToken != "token-7" {
			t.Fatalf("unexpected token %+v", got.Token)
		}
		if !got.Token.Expiry.Equal(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected expiry %v", got.Token.Expiry)
		}
	})

	t.Run("Save Replaces Previous Session", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSessionRepository(db)

		if err := repo.Save(ctx, testSession("1")); err != nil {
			t.Fatalf("failed to save first session: %v", err)
		}
		if err := repo.Save(ctx, testSession("2")); err != nil {
			t.Fatalf("failed to save second session: %v", err)
		}

		got, err := repo.Current(ctx)
		if err != nil {
			t.Fatalf("failed to load session: %v", err)
		}
		if got.User.ID != "2" {
			t.Errorf("expected user 2, got %s", got.User.ID)
		}

		var live int
		if err := db.QueryRow("SELECT COUNT(*) FROM sessions WHERE deleted_at IS NULL").Scan(&live); err != nil {
			t.Fatalf("count: %v", err)
		}
		if live != 1 {
			t.Errorf("expected exactly one live session, got %d", live)
		}
	})

	t.Run("Session Without Token", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		s := testSession("3")
		s.Token = nil

		if err := repo.Save(ctx, s); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}
		got, err := repo.Current(ctx)
		if err != nil {
			t.Fatalf("failed to load session: %v", err)
		}
		if got.Token != nil {
			t.Errorf("expected nil token, got %+v", got.Token)
		}
	})

	t.Run("Current When Logged Out", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		if _, err := repo.Current(ctx); !errors.Is(err, shared.ErrNoSession) {
			t.Errorf("expected ErrNoSession, got %v", err)
		}
	})

	t.Run("Save Rejects Missing User", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		if err := repo.Save(ctx, &models.Session{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if err := repo.Save(ctx, nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for nil, got %v", err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		if err := repo.Save(ctx, testSession("4")); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}
		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if _, err := repo.Current(ctx); !errors.Is(err, shared.ErrNoSession) {
			t.Errorf("expected ErrNoSession after clear, got %v", err)
		}
		if err := repo.Clear(ctx); err != nil {
			t.Errorf("clearing twice should not fail: %v", err)
		}
	})

	t.Run("UpdateAuthor", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		if err := repo.UpdateAuthor(ctx, "Quill", models.RoleAuthor); !errors.Is(err, shared.ErrNoSession) {
			t.Errorf("expected ErrNoSession without a session, got %v", err)
		}
		if err := repo.Save(ctx, testSession("5")); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}
		if err := repo.UpdateAuthor(ctx, "Quill", models.RoleAuthor); err != nil {
			t.Fatalf("failed to update pen name: %v", err)
		}
		got, _ := repo.Current(ctx)
		if got.User.PenName != "Quill" {
			t.Errorf("expected pen name Quill, got %q", got.User.PenName)
		}
		if got.User.Role != models.RoleAuthor {
			t.Errorf("expected role %s, got %q", models.RoleAuthor, got.User.Role)
		}
	})

	t.Run("Prune", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		for _, id := range []string{"1", "2", "3"} {
			if err := repo.Save(ctx, testSession(id)); err != nil {
				t.Fatalf("failed to save session: %v", err)
			}
		}

		n, err := repo.Prune(ctx, time.Now().Add(time.Minute))
		if err != nil {
			t.Fatalf("failed to prune: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 retired sessions pruned, got %d", n)
		}
		if got, err := repo.Current(ctx); err != nil || got.User.ID != "3" {
			t.Errorf("live session should survive pruning, got %+v (%v)", got, err)
		}
	})

	t.Run("Closed Database", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSessionRepository(db)
		db.Close()

		if err := repo.Save(ctx, testSession("1")); err == nil {
			t.Error("expected error on closed database")
		}
		if _, err := repo.Current(ctx); err == nil || errors.Is(err, shared.ErrNoSession) {
			t.Errorf("expected query error, got %v", err)
		}
	})
}

func TestPreferenceRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Set Get Delete", func(t *testing.T) {
		repo := NewPreferenceRepository(setupTestDB(t))

		if _, ok, err := repo.Get(ctx, "1", PrefLastSearch); err != nil || ok {
			t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
		}
		if err := repo.Set(ctx, "1", PrefLastSearch, "dragon"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := repo.Set(ctx, "1", PrefLastSearch, "harbor"); err != nil {
			t.Fatalf("failed to overwrite: %v", err)
		}

		value, ok, err := repo.Get(ctx, "1", PrefLastSearch)
		if err != nil || !ok || value != "harbor" {
			t.Errorf("expected harbor, got %q ok=%v err=%v", value, ok, err)
		}
		if _, ok, _ := repo.Get(ctx, "2", PrefLastSearch); ok {
			t.Error("preferences must be scoped per user")
		}

		if err := repo.Delete(ctx, "1", PrefLastSearch); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, ok, _ := repo.Get(ctx, "1", PrefLastSearch); ok {
			t.Error("expected key to be deleted")
		}
	})

	t.Run("Genre Selection", func(t *testing.T) {
		repo := NewPreferenceRepository(setupTestDB(t))

		got, err := repo.GenreSelection(ctx, "1")
		if err != nil || got != nil {
			t.Fatalf("expected nil selection, got %v (%v)", got, err)
		}

		if err := repo.SaveGenreSelection(ctx, "1", []string{"horror", "fantasy"}); err != nil {
			t.Fatalf("failed to save selection: %v", err)
		}
		got, err = repo.GenreSelection(ctx, "1")
		if err != nil || len(got) != 2 || got[0] != "horror" || got[1] != "fantasy" {
			t.Errorf("unexpected selection %v (%v)", got, err)
		}

		if err := repo.SaveGenreSelection(ctx, "1", nil); err != nil {
			t.Fatalf("failed to clear selection: %v", err)
		}
		if got, _ := repo.GenreSelection(ctx, "1"); got != nil {
			t.Errorf("expected cleared selection, got %v", got)
		}
	})
}
