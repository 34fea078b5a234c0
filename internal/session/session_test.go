package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"techblok-cli/internal/api"
	"techblok-cli/internal/model"
	"techblok-cli/internal/store"
)

// fakeBackend is a minimal auth server: one known user, tokens it handed out
// are the only ones /auth/me accepts.
type fakeBackend struct {
	token     string
	passwords map[string]string
	identity  model.Identity
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"detail": "bad body"}`, http.StatusUnprocessableEntity)
			return
		}
		if b.passwords[req.Username] != req.Password {
			http.Error(w, `{"detail": "bad credentials"}`, http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": b.token,
			"user":         b.identity,
		})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+b.token {
			http.Error(w, `{"detail": "invalid token"}`, http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(b.identity)
	})
	return mux
}

func newTestSession(t *testing.T, baseURL string) (*Store, store.Store) {
	t.Helper()
	tokens := store.Store{Dir: t.TempDir()}
	sess, err := New(context.Background(), tokens, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	client, err := api.New(api.Config{
		BaseURL:        baseURL,
		Logger:         zerolog.Nop(),
		Token:          sess.AccessToken,
		OnUnauthorized: sess.Invalidate,
	})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	sess.SetClient(client)
	return sess, tokens
}

func TestLogin_PersistsTokenAndTransitions(t *testing.T) {
	backend := &fakeBackend{
		token:     "tok-abc",
		passwords: map[string]string{"dispatcher": "secret123"},
		identity:  model.Identity{ID: "uid-1", Username: "dispatcher", Role: model.RoleAdmin},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	sess, tokens := newTestSession(t, srv.URL)
	if got := sess.State(); got != StateUnauthenticated {
		t.Fatalf("initial state: %v", got)
	}

	ident, err := sess.Login(context.Background(), "dispatcher", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if ident.Username != "dispatcher" {
		t.Fatalf("identity: %+v", ident)
	}
	if got := sess.State(); got != StateAuthenticated {
		t.Fatalf("state after login: %v", got)
	}

	tok, ok, err := tokens.AccessToken(context.Background())
	if err != nil || !ok || tok != "tok-abc" {
		t.Fatalf("persisted token: %q ok=%v err=%v", tok, ok, err)
	}
}

func TestLogin_BadCredentialsStaysUnauthenticated(t *testing.T) {
	backend := &fakeBackend{
		token:     "tok-abc",
		passwords: map[string]string{"dispatcher": "secret123"},
		identity:  model.Identity{ID: "uid-1", Username: "dispatcher", Role: model.RoleUser},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	sess, tokens := newTestSession(t, srv.URL)
	_, err := sess.Login(context.Background(), "dispatcher", "wrong")
	if api.KindOf(err) != api.KindInvalidCredentials {
		t.Fatalf("kind: got %v, want invalid credentials", api.KindOf(err))
	}
	if got := sess.State(); got != StateUnauthenticated {
		t.Fatalf("state: %v", got)
	}
	if sess.LastError() == nil {
		t.Fatal("LastError not retained")
	}
	if _, ok, _ := tokens.AccessToken(context.Background()); ok {
		t.Fatal("token persisted after failed login")
	}
}

func TestRestore_ExchangesPersistedToken(t *testing.T) {
	backend := &fakeBackend{
		token:     "tok-xyz",
		passwords: map[string]string{},
		identity:  model.Identity{ID: "uid-2", Username: "worker1", Role: model.RoleWorker},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	dir := t.TempDir()
	tokens := store.Store{Dir: dir}
	if err := tokens.SaveAccessToken(context.Background(), "tok-xyz"); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	sess, err := New(context.Background(), tokens, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := sess.State(); got != StateRestoring {
		t.Fatalf("state with persisted token: %v", got)
	}

	client, err := api.New(api.Config{BaseURL: srv.URL, Logger: zerolog.Nop(), Token: sess.AccessToken})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	sess.SetClient(client)

	if err := sess.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	ident, ok := sess.Identity()
	if !ok || ident.Username != "worker1" {
		t.Fatalf("identity after restore: %+v ok=%v", ident, ok)
	}
}

func TestRestore_FailureClearsPersistedToken(t *testing.T) {
	backend := &fakeBackend{token: "valid", identity: model.Identity{}}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	dir := t.TempDir()
	tokens := store.Store{Dir: dir}
	if err := tokens.SaveAccessToken(context.Background(), "expired-token"); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	sess, err := New(context.Background(), tokens, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	client, err := api.New(api.Config{BaseURL: srv.URL, Logger: zerolog.Nop(), Token: sess.AccessToken})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	sess.SetClient(client)

	if err := sess.Restore(context.Background()); err == nil {
		t.Fatal("Restore succeeded with a rejected token")
	}
	if got := sess.State(); got != StateUnauthenticated {
		t.Fatalf("state: %v", got)
	}
	if _, ok, _ := tokens.AccessToken(context.Background()); ok {
		t.Fatal("rejected token still persisted")
	}
}

func TestLogout_IsIdempotent(t *testing.T) {
	backend := &fakeBackend{
		token:     "tok-abc",
		passwords: map[string]string{"u": "password1"},
		identity:  model.Identity{ID: "uid-1", Username: "u", Role: model.RoleUser},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	sess, tokens := newTestSession(t, srv.URL)
	if _, err := sess.Login(context.Background(), "u", "password1"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	notifications := 0
	unsub := sess.Subscribe(func() { notifications++ })
	defer unsub()

	sess.Logout()
	if got := sess.State(); got != StateUnauthenticated {
		t.Fatalf("state: %v", got)
	}
	if _, ok, _ := tokens.AccessToken(context.Background()); ok {
		t.Fatal("token survived logout")
	}
	if notifications != 1 {
		t.Fatalf("notifications after first logout: %d", notifications)
	}

	// Second logout is a no-op in the same terminal state.
	sess.Logout()
	if notifications != 1 {
		t.Fatalf("notifications after second logout: %d", notifications)
	}
}

func TestHasPermission_PureAndFalseWhenSignedOut(t *testing.T) {
	backend := &fakeBackend{
		token:     "tok-abc",
		passwords: map[string]string{"boss": "password1"},
		identity:  model.Identity{ID: "uid-1", Username: "boss", Role: model.RoleAdmin},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	sess, _ := newTestSession(t, srv.URL)
	if sess.HasPermission(model.RoleAdmin) {
		t.Fatal("permission granted with no identity")
	}

	if _, err := sess.Login(context.Background(), "boss", "password1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !sess.HasPermission(model.RoleAdmin) {
		t.Fatal("admin permission denied")
	}
	if !sess.HasPermission(model.RoleAdmin, model.RoleUser) {
		t.Fatal("multi-role check denied")
	}
	if sess.HasPermission(model.RoleWorker) {
		t.Fatal("worker permission granted to admin")
	}
}

func TestAdminOps_RejectedForNonAdmin(t *testing.T) {
	backend := &fakeBackend{
		token:     "tok-abc",
		passwords: map[string]string{"plain": "password1"},
		identity:  model.Identity{ID: "uid-1", Username: "plain", Role: model.RoleUser},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	sess, _ := newTestSession(t, srv.URL)
	if _, err := sess.Login(context.Background(), "plain", "password1"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	err := sess.DeleteUser(context.Background(), "uid-9")
	if api.KindOf(err) != api.KindForbidden {
		t.Fatalf("kind: got %v, want forbidden", api.KindOf(err))
	}
	_, err = sess.CreateUser(context.Background(), api.CreateUserInput{Username: "x", Password: "password1"})
	if api.KindOf(err) != api.KindForbidden {
		t.Fatalf("kind: got %v, want forbidden", api.KindOf(err))
	}
}

func TestUnauthorizedAnywhere_CollapsesSession(t *testing.T) {
	backend := &fakeBackend{
		token:     "tok-abc",
		passwords: map[string]string{"u": "password1"},
		identity:  model.Identity{ID: "uid-1", Username: "u", Role: model.RoleAdmin},
	}
	mux := http.NewServeMux()
	mux.Handle("/auth/", backend.handler())
	mux.HandleFunc("/task/completed", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "token expired"}`, http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess, tokens := newTestSession(t, srv.URL)
	if _, err := sess.Login(context.Background(), "u", "password1"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Reuse the wired client: its unauthorized hook is sess.Invalidate.
	client, err := api.New(api.Config{
		BaseURL:        srv.URL,
		Logger:         zerolog.Nop(),
		Token:          sess.AccessToken,
		OnUnauthorized: sess.Invalidate,
	})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	if _, err := client.CompletedTasks(context.Background()); !api.IsUnauthorized(err) {
		t.Fatalf("err: %v", err)
	}
	if got := sess.State(); got != StateUnauthenticated {
		t.Fatalf("state after mid-flight 401: %v", got)
	}
	if _, ok, _ := tokens.AccessToken(context.Background()); ok {
		t.Fatal("token survived invalidation")
	}
}

func TestChangePassword_RequiresAuthenticatedSession(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	sess, _ := newTestSession(t, srv.URL)
	err := sess.ChangePassword(context.Background(), "old", "newpassword")
	if api.KindOf(err) != api.KindUnauthorized {
		t.Fatalf("kind: got %v, want unauthorized", api.KindOf(err))
	}
}
