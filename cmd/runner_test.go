package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/session"
	"github.com/desertthunder/folio/internal/shared"
	tu "github.com/desertthunder/folio/internal/testing"
	"github.com/urfave/cli/v3"
)

var testUser = models.User{ID: "7", Email: "r@example.com", Username: "reader", Role: "Reader"}

// newTestRunner wires a runner to a fake backend. When loggedIn is set the session is live in memory.
func newTestRunner(t *testing.T, b *tu.Backend, loggedIn bool, input string) (*Runner, *bytes.Buffer) {
	t.Helper()
	client, err := services.NewClient(services.ClientOpts{BaseURL: b.URL, Username: "app", Password: "secret"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	output := &bytes.Buffer{}
	r := NewRunner(RunnerOpts{
		Client: client,
		API:    services.NewAPIService(client.BaseURL(), client.AuthHeader(), nil),
		Logger: shared.NewLogger(&bytes.Buffer{}),
		Output: output,
		Input:  strings.NewReader(input),
	})
	if loggedIn {
		if err := r.store.Login(context.Background(), session.New(testUser, "tok")); err != nil {
			t.Fatalf("Login: %v", err)
		}
	}
	return r, output
}

func run(r *Runner, args ...string) error {
	app := &cli.Command{Name: "folio", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"folio"}, args...))
}

// serveBook registers book 12 with a free and a paid episode plus a ledger without purchases.
func serveBook(b *tu.Backend, transactions []map[string]any) {
	b.JSON(http.MethodGet, "/api/books/12", http.StatusOK, map[string]any{
		"detail": map[string]any{
			"id": 12, "title": "Night Harbor", "author_id": 3, "category": "horror",
			"episodes": []map[string]any{
				{"id": 100, "title": "One", "price": 0, "is_free": true},
				{"id": 101, "title": "Two", "price": 5, "is_free": false},
			},
		},
	})
	if transactions == nil {
		transactions = []map[string]any{}
	}
	b.JSON(http.MethodGet, "/api/coins/7", http.StatusOK, map[string]any{
		"detail": map[string]any{"totalCoins": 12, "transactions": transactions},
	})
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			input := strings.NewReader("")
			client, _ := services.NewClient(services.ClientOpts{})
			api := &services.APIService{}

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
				Input:  input,
				Client: client,
				API:    api,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.input != input {
				t.Error("expected input to be set")
			}
			if runner.client != client {
				t.Error("expected client to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
			if runner.store == nil || runner.gate == nil || runner.engine == nil || runner.notifier == nil {
				t.Error("expected session, gate, engine and notifier to be built")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("without database has no repositories", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.sessions != nil || runner.prefs != nil {
				t.Error("expected repositories to be nil without a database")
			}
		})

		t.Run("with database builds repositories", func(t *testing.T) {
			db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: filepath.Join(t.TempDir(), "folio.db")})
			if err != nil {
				t.Fatalf("OpenDatabase: %v", err)
			}
			defer db.Close()

			runner := NewRunner(RunnerOpts{DB: db})
			if runner.sessions == nil || runner.prefs == nil {
				t.Error("expected repositories to be built")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := make(map[string]bool)
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "books", "episodes", "coins", "history", "notifications", "api", "tui"} {
			if !names[want] {
				t.Errorf("expected %q to be registered", want)
			}
		}
	})

	t.Run("confirm", func(t *testing.T) {
		tests := []struct {
			input string
			want  bool
		}{
			{"y\n", true},
			{"YES\n", true},
			{"n\n", false},
			{"\n", false},
			{"", false},
		}
		for _, tt := range tests {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output, Input: strings.NewReader(tt.input)})

			got, err := runner.confirm("Proceed?")
			if err != nil {
				t.Fatalf("confirm(%q): unexpected error %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(output.String(), "Proceed? [y/N]") {
				t.Errorf("expected the question to be printed, got %q", output.String())
			}
		}
	})

	t.Run("protect", func(t *testing.T) {
		t.Run("blocks without a session", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			called := false
			action := runner.protect(func(ctx context.Context, cmd *cli.Command) error {
				called = true
				return nil
			})

			err := action(context.Background(), &cli.Command{})
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if !strings.Contains(err.Error(), session.LoginHint) {
				t.Errorf("expected login hint, got %v", err)
			}
			if called {
				t.Error("expected protected action not to run")
			}
		})

		t.Run("follows the gate after SetLogger", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			action := runner.protect(func(ctx context.Context, cmd *cli.Command) error { return nil })

			runner.SetLogger(shared.NewLogger(&bytes.Buffer{}))
			if err := runner.store.Login(context.Background(), session.New(testUser, "tok")); err != nil {
				t.Fatalf("Login: %v", err)
			}
			if err := action(context.Background(), &cli.Command{}); err != nil {
				t.Errorf("expected action to run, got %v", err)
			}
		})
	})

	t.Run("requireClient", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if err := runner.requireClient(); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if err := runner.requireAPI(); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("login persists the session", func(t *testing.T) {
		b := tu.NewBackend(t)
		b.JSON(http.MethodPost, "/login/", http.StatusOK, map[string]any{
			"detail": map[string]any{"payload": map[string]any{"id": 7, "username": "reader"}, "token": "tok"},
		})

		db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: filepath.Join(t.TempDir(), "folio.db")})
		if err != nil {
			t.Fatalf("OpenDatabase: %v", err)
		}
		defer db.Close()

		client, _ := services.NewClient(services.ClientOpts{BaseURL: b.URL})
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Client: client, DB: db, Output: output, Logger: shared.NewLogger(&bytes.Buffer{})})

		if err := run(r, "auth", "login", "--account", "reader", "--password", "pw"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Logged in as reader") {
			t.Errorf("unexpected output %q", output.String())
		}
		stored, err := r.sessions.Current(context.Background())
		if err != nil || stored.User.ID != "7" {
			t.Errorf("expected stored session for user 7, got %+v (%v)", stored, err)
		}
	})

	t.Run("login reads the password from input", func(t *testing.T) {
		b := tu.NewBackend(t)
		b.Handle(http.MethodPost, "/login/", func(w http.ResponseWriter, req *http.Request) {
			var body map[string]string
			_ = json.NewDecoder(req.Body).Decode(&body)
			if body["password"] != "typed" {
				t.Errorf("expected typed password, got %v", body)
			}
			tu.WriteJSON(w, http.StatusOK, map[string]any{
				"detail": map[string]any{"payload": map[string]any{"id": 7, "username": "reader"}, "token": "tok"},
			})
		})

		r, _ := newTestRunner(t, b, false, "typed\n")
		if err := run(r, "auth", "login", "--account", "reader"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if r.store.UserID() != "7" {
			t.Errorf("expected user 7, got %q", r.store.UserID())
		}
	})

	t.Run("pen-name makes the user an author", func(t *testing.T) {
		b := tu.NewBackend(t)
		b.JSON(http.MethodPost, "/profile/pen-name/", http.StatusOK, map[string]any{"status_code": 200, "detail": "updated"})

		db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: filepath.Join(t.TempDir(), "folio.db")})
		if err != nil {
			t.Fatalf("OpenDatabase: %v", err)
		}
		defer db.Close()

		client, _ := services.NewClient(services.ClientOpts{BaseURL: b.URL})
		r := NewRunner(RunnerOpts{Client: client, DB: db, Output: &bytes.Buffer{}, Logger: shared.NewLogger(&bytes.Buffer{})})
		if err := r.store.Login(context.Background(), session.New(testUser, "tok")); err != nil {
			t.Fatalf("Login: %v", err)
		}

		if err := run(r, "auth", "pen-name", "Quill"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if u := r.store.Current().User; u.PenName != "Quill" || u.Role != models.RoleAuthor {
			t.Errorf("expected live author Quill, got %+v", u)
		}
		stored, err := r.sessions.Current(context.Background())
		if err != nil || stored.User.Role != models.RoleAuthor || stored.User.PenName != "Quill" {
			t.Errorf("expected stored author Quill, got %+v (%v)", stored, err)
		}
	})

	t.Run("whoami requires a session", func(t *testing.T) {
		r, _ := newTestRunner(t, tu.NewBackend(t), false, "")
		if err := run(r, "auth", "whoami"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestBooksCommands(t *testing.T) {
	t.Run("browse prints sections for the selected genre", func(t *testing.T) {
		b := tu.NewBackend(t)
		b.JSON(http.MethodGet, "/api/books", http.StatusOK, map[string]any{
			"detail": map[string]any{
				"data":       []map[string]any{{"id": 1, "title": "Dragon Sky", "avg_rating": "4.5"}},
				"pagination": map[string]any{"page": 1, "limit": 20, "total": 1, "total_pages": 1},
			},
		})

		r, output := newTestRunner(t, b, false, "")
		if err := run(r, "books", "browse", "--genre", "horror", "--search", "dragon"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "[1] Dragon Sky") {
			t.Errorf("unexpected output %q", output.String())
		}

		reqs := b.Requests()
		if len(reqs) != 1 {
			t.Fatalf("expected one request for one genre, got %d", len(reqs))
		}
		if reqs[0].Query["category"] != "horror" || reqs[0].Query["search"] != "dragon" {
			t.Errorf("unexpected query %v", reqs[0].Query)
		}
	})

	t.Run("browse keeps other genres when one page fails", func(t *testing.T) {
		b := tu.NewBackend(t)
		b.Handle(http.MethodGet, "/api/books", func(w http.ResponseWriter, req *http.Request) {
			category := req.URL.Query().Get("category")
			if category == "fantasy" {
				tu.WriteJSON(w, http.StatusInternalServerError, map[string]any{"detail": "down"})
				return
			}
			tu.WriteJSON(w, http.StatusOK, map[string]any{
				"detail": map[string]any{
					"data":       []map[string]any{{"id": 2, "title": "Book of " + category}},
					"pagination": map[string]any{"page": 2, "limit": 20, "total": 21, "total_pages": 2},
				},
			})
		})

		r, output := newTestRunner(t, b, false, "")
		if err := run(r, "books", "browse", "--page", "2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Book of horror") {
			t.Errorf("expected the horror section despite the fantasy failure, got %q", output.String())
		}
		if strings.Contains(output.String(), "Book of fantasy") {
			t.Errorf("failed genre should not be printed, got %q", output.String())
		}

		reqs := b.Requests()
		if len(reqs) != len(r.config.Genres) {
			t.Fatalf("expected one request per genre, got %d", len(reqs))
		}
		for _, req := range reqs {
			if req.Query["page"] != "2" {
				t.Errorf("expected only page 2 requests, got %v", req.Query)
			}
		}
	})

	t.Run("browse commits the search through the controller", func(t *testing.T) {
		b := tu.NewBackend(t)
		b.JSON(http.MethodGet, "/api/books", http.StatusOK, map[string]any{
			"detail": map[string]any{"data": []map[string]any{}, "pagination": map[string]any{"page": 1, "limit": 20}},
		})

		r, _ := newTestRunner(t, b, false, "")
		if err := run(r, "books", "browse", "--genre", "horror", "--genre", "drama", "--search", "  moon "); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		reqs := b.Requests()
		if len(reqs) != 2 {
			t.Fatalf("expected a single cycle over two genres, got %d requests", len(reqs))
		}
		for _, req := range reqs {
			if req.Query["search"] != "moon" {
				t.Errorf("expected trimmed search, got %v", req.Query)
			}
		}
	})

	t.Run("browse rejects unknown genres", func(t *testing.T) {
		r, _ := newTestRunner(t, tu.NewBackend(t), false, "")
		if err := run(r, "books", "browse", "--genre", "westerns"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("show marks locked episodes", func(t *testing.T) {
		b := tu.NewBackend(t)
		serveBook(b, nil)

		r, output := newTestRunner(t, b, true, "")
		if err := run(r, "books", "show", "--format", "json", "12"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var detail models.BookDetail
		if err := json.Unmarshal(output.Bytes(), &detail); err != nil {
			t.Fatalf("expected JSON output, got %q (%v)", output.String(), err)
		}
		if len(detail.Episodes) != 2 || detail.Episodes[0].Locked || !detail.Episodes[1].Locked {
			t.Errorf("unexpected lock state %+v", detail.Episodes)
		}
	})
}

func TestEpisodesCommands(t *testing.T) {
	t.Run("read prints a free episode and logs history", func(t *testing.T) {
		b := tu.NewBackend(t)
		serveBook(b, nil)
		b.JSON(http.MethodGet, "/api/episodes/12/100", http.StatusOK, map[string]any{
			"status_code": 200,
			"detail":      map[string]any{"id": 100, "title": "One", "content_text": "<p>It was <strong>dark</strong>.</p>"},
		})
		b.JSON(http.MethodPost, "/api/user/update-history", http.StatusOK, map[string]any{"status_code": 200})

		r, output := newTestRunner(t, b, true, "")
		if err := run(r, "episodes", "read", "12", "100"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "# Night Harbor") || !strings.Contains(output.String(), "**dark**") {
			t.Errorf("unexpected output %q", output.String())
		}
		if n := b.Count(http.MethodPost, "/api/user/update-history"); n != 1 {
			t.Errorf("expected one history update, got %d", n)
		}
	})

	t.Run("read refuses a locked episode", func(t *testing.T) {
		b := tu.NewBackend(t)
		serveBook(b, nil)

		r, _ := newTestRunner(t, b, true, "")
		err := run(r, "episodes", "read", "12", "101")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if n := b.Count(http.MethodGet, "/api/episodes/12/101"); n != 0 {
			t.Errorf("expected no episode fetch, got %d", n)
		}
	})

	t.Run("unlock purchases after confirmation", func(t *testing.T) {
		b := tu.NewBackend(t)
		serveBook(b, nil)
		var purchase map[string]any
		b.Handle(http.MethodPost, "/api/purchases", func(w http.ResponseWriter, req *http.Request) {
			_ = json.NewDecoder(req.Body).Decode(&purchase)
			tu.WriteJSON(w, http.StatusOK, map[string]any{"status_code": 200})
		})

		r, output := newTestRunner(t, b, true, "y\n")
		if err := run(r, "episodes", "unlock", "12", "101"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if purchase["episodeId"] != float64(101) || purchase["amount"] != float64(5) {
			t.Errorf("unexpected purchase %v", purchase)
		}
		if !strings.Contains(output.String(), `Unlocked "Two", balance 7`) {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("unlock declined purchases nothing", func(t *testing.T) {
		b := tu.NewBackend(t)
		serveBook(b, nil)

		r, _ := newTestRunner(t, b, true, "n\n")
		if err := run(r, "episodes", "unlock", "12", "101"); !errors.Is(err, shared.ErrNotConfirmed) {
			t.Errorf("expected ErrNotConfirmed, got %v", err)
		}
		if n := b.Count(http.MethodPost, "/api/purchases"); n != 0 {
			t.Errorf("expected no purchase, got %d", n)
		}
	})

	t.Run("unlock of a purchased episode", func(t *testing.T) {
		b := tu.NewBackend(t)
		serveBook(b, []map[string]any{{"id": 1, "amount": 5, "type": "purchase", "episode_id": 101}})

		r, _ := newTestRunner(t, b, true, "")
		if err := run(r, "episodes", "unlock", "--yes", "12", "101"); !errors.Is(err, shared.ErrAlreadyUnlocked) {
			t.Errorf("expected ErrAlreadyUnlocked, got %v", err)
		}
	})
}

func TestCoinsCommands(t *testing.T) {
	t.Run("balance", func(t *testing.T) {
		b := tu.NewBackend(t)
		b.JSON(http.MethodGet, "/api/coins/7", http.StatusOK, map[string]any{
			"detail": map[string]any{"totalCoins": 1200, "transactions": []any{}},
		})

		r, output := newTestRunner(t, b, true, "")
		if err := run(r, "coins", "balance"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "1,200 coins\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("checkin is skipped when already done today", func(t *testing.T) {
		b := tu.NewBackend(t)
		b.JSON(http.MethodGet, "/api/coins/7", http.StatusOK, map[string]any{
			"detail": map[string]any{
				"totalCoins": 10,
				"transactions": []map[string]any{
					{"id": 1, "amount": 10, "type": "daily_checkin", "created_at": time.Now().Format(time.RFC3339)},
				},
			},
		})

		r, output := newTestRunner(t, b, true, "")
		if err := run(r, "coins", "checkin"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Already checked in today") {
			t.Errorf("unexpected output %q", output.String())
		}
		if n := b.Count(http.MethodPost, "/api/coins/update"); n != 0 {
			t.Errorf("expected no coin update, got %d", n)
		}
	})

	t.Run("checkin credits the daily reward", func(t *testing.T) {
		b := tu.NewBackend(t)
		b.JSON(http.MethodGet, "/api/coins/7", http.StatusOK, map[string]any{
			"detail": map[string]any{"totalCoins": 0, "transactions": []any{}},
		})
		var update map[string]any
		b.Handle(http.MethodPost, "/api/coins/update", func(w http.ResponseWriter, req *http.Request) {
			_ = json.NewDecoder(req.Body).Decode(&update)
			tu.WriteJSON(w, http.StatusOK, map[string]any{"status_code": 200})
		})

		r, output := newTestRunner(t, b, true, "")
		if err := run(r, "coins", "checkin"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if update["type"] != "daily_checkin" || update["amount"] != float64(services.DailyCheckinReward) {
			t.Errorf("unexpected update %v", update)
		}
		if !strings.Contains(output.String(), "Checked in: +10 coins") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("earn rejects non-positive amounts", func(t *testing.T) {
		r, _ := newTestRunner(t, tu.NewBackend(t), true, "")
		if err := run(r, "coins", "earn", "0"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestAPICommands(t *testing.T) {
	t.Run("get prints JSON", func(t *testing.T) {
		b := tu.NewBackend(t)
		b.JSON(http.MethodGet, "/api/books", http.StatusOK, map[string]any{"status_code": 200})

		r, output := newTestRunner(t, b, false, "")
		if err := run(r, "api", "get", "--pretty=false", "/api/books"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != `{"status_code":200}`+"\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("get surfaces non-2xx", func(t *testing.T) {
		b := tu.NewBackend(t)
		r, _ := newTestRunner(t, b, false, "")
		if err := run(r, "api", "get", "/missing"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
