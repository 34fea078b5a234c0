package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"techblok-cli/internal/api"
	"techblok-cli/internal/config"
	"techblok-cli/internal/model"
	"techblok-cli/internal/session"
	"techblok-cli/internal/store"
)

// newTestApp builds an appModel whose session is authenticated against a
// throwaway backend. Returned commands from Update are never executed, so
// the backend only ever serves the login call.
func newTestApp(t *testing.T, role model.Role) (appModel, *session.Store) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-test",
			"user":         model.Identity{ID: "uid-1", Username: "tester", Role: role},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	tokens := store.Store{Dir: t.TempDir()}
	sess, err := session.New(context.Background(), tokens, zerolog.Nop())
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	client, err := api.New(api.Config{
		BaseURL:        srv.URL,
		Logger:         zerolog.Nop(),
		Token:          sess.AccessToken,
		OnUnauthorized: sess.Invalidate,
	})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	sess.SetClient(client)
	if _, err := sess.Login(context.Background(), "tester", "password1"); err != nil {
		t.Fatalf("login: %v", err)
	}

	m := newAppModel(Deps{
		Config:  &config.Config{APIBaseURL: srv.URL, Timeout: 5 * time.Second, UsersPageSize: 8, TasksPageSize: 5},
		Session: sess,
		Client:  client,
		Logger:  zerolog.Nop(),
	})
	m.view = viewTasks

	mm, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return mm.(appModel), sess
}

func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(t *testing.T, m appModel, keys ...string) appModel {
	t.Helper()
	for _, k := range keys {
		mm, _ := m.Update(key(k))
		m = mm.(appModel)
	}
	return m
}

func tasksFixture(n int) []model.Task {
	tasks := make([]model.Task, 0, n)
	for i := 0; i < n; i++ {
		addr := "ул. Ленина"
		if i%2 == 0 {
			addr = "пр. Мира"
		}
		tasks = append(tasks, model.Task{ID: int64(i), DispatcherName: "ТП-12", Address: addr})
	}
	return tasks
}

func TestTasksSearch_EnterAppliesEscClears(t *testing.T) {
	m, _ := newTestApp(t, model.RoleUser)
	m.tasks.ApplyLoad(m.tasks.BeginLoad(), tasksFixture(12))
	m = press(t, m, "right")
	if m.tasks.Page() != 2 {
		t.Fatalf("page: %d", m.tasks.Page())
	}

	m = press(t, m, "/")
	if !m.searching {
		t.Fatal("slash did not enter search mode")
	}
	m = press(t, m, "м", "и", "р", "а", "enter")
	if m.searching {
		t.Fatal("enter did not leave search mode")
	}
	if m.tasks.SearchTerm() != "мира" {
		t.Fatalf("term: %q", m.tasks.SearchTerm())
	}
	if m.tasks.Page() != 1 {
		t.Fatalf("page after search: %d", m.tasks.Page())
	}
	if got := len(m.tasks.Filtered()); got != 6 {
		t.Fatalf("filtered: %d, want 6", got)
	}

	m = press(t, m, "/", "esc")
	if m.tasks.SearchTerm() != "" {
		t.Fatalf("term after esc: %q", m.tasks.SearchTerm())
	}
}

func TestStaleTasksResponse_DoesNotClobberNewer(t *testing.T) {
	m, _ := newTestApp(t, model.RoleUser)

	seqA := m.tasks.BeginLoad()
	seqB := m.tasks.BeginLoad()

	mm, _ := m.Update(tasksLoadedMsg{seq: seqB, tasks: tasksFixture(3)})
	m = mm.(appModel)
	mm, _ = m.Update(tasksLoadedMsg{seq: seqA, tasks: tasksFixture(12)})
	m = mm.(appModel)

	if got := len(m.tasks.Items()); got != 3 {
		t.Fatalf("items: %d, want 3 from the newer response", got)
	}
}

func TestUsersView_SelectionMovesAndClamp(t *testing.T) {
	m, _ := newTestApp(t, model.RoleAdmin)
	m = press(t, m, "m")
	if m.view != viewUsers {
		t.Fatal("m did not open the users view")
	}

	users := []model.User{
		{UID: "u1", Username: "one", Role: model.RoleUser},
		{UID: "u2", Username: "two", Role: model.RoleUser},
		{UID: "u3", Username: "three", Role: model.RoleAdmin},
	}
	m.users.ApplyLoad(m.users.BeginLoad(), users)

	m = press(t, m, "down", "down", "down", "down")
	if m.userIdx != 2 {
		t.Fatalf("selection: %d, want clamped to 2", m.userIdx)
	}
	m = press(t, m, "up")
	if m.userIdx != 1 {
		t.Fatalf("selection: %d", m.userIdx)
	}

	m = press(t, m, "esc")
	if m.view != viewTasks {
		t.Fatal("esc did not return to tasks")
	}
}

func TestUsersView_DeleteConfirmFlow(t *testing.T) {
	m, _ := newTestApp(t, model.RoleAdmin)
	m = press(t, m, "m")
	m.users.ApplyLoad(m.users.BeginLoad(), []model.User{
		{UID: "u1", Username: "target", Role: model.RoleUser},
	})

	m = press(t, m, "D")
	if m.modal != modalConfirmDeleteUser || m.deleteUID != "u1" {
		t.Fatalf("modal=%d uid=%q", m.modal, m.deleteUID)
	}
	m = press(t, m, "esc")
	if m.modal != modalNone {
		t.Fatal("esc did not close the confirm modal")
	}

	// Server-confirmed delete prunes the row locally.
	mm, _ := m.Update(userDeletedMsg{uid: "u1"})
	m = mm.(appModel)
	if got := len(m.users.Items()); got != 0 {
		t.Fatalf("users after delete: %d", got)
	}
}

func TestAdminKeys_RejectedForPlainUser(t *testing.T) {
	m, _ := newTestApp(t, model.RoleUser)
	m = press(t, m, "m")
	if m.view != viewTasks {
		t.Fatal("non-admin reached the users view")
	}
	m = press(t, m, "x")
	if m.modal != modalNone {
		t.Fatal("non-admin opened the clear-files confirm")
	}
}

func TestWorkerCannotOpenUpload(t *testing.T) {
	m, _ := newTestApp(t, model.RoleWorker)
	m = press(t, m, "u")
	if m.modal != modalNone {
		t.Fatal("worker opened the upload modal")
	}
}

func TestHelpOverlay_OpenAndClose(t *testing.T) {
	m, _ := newTestApp(t, model.RoleUser)
	m = press(t, m, "?")
	if m.modal != modalHelp {
		t.Fatal("help did not open")
	}
	m = press(t, m, "esc")
	if m.modal != modalNone {
		t.Fatal("help did not close")
	}
}

func TestLogin_EmptyFieldsRejected(t *testing.T) {
	m, _ := newTestApp(t, model.RoleUser)
	m.view = viewLogin
	m = press(t, m, "enter")
	if m.errLine == "" {
		t.Fatal("empty login accepted")
	}
}

func TestSessionCollapse_ReturnsToLogin(t *testing.T) {
	m, sess := newTestApp(t, model.RoleAdmin)
	m = press(t, m, "m")
	if m.view != viewUsers {
		t.Fatal("setup failed")
	}

	sess.Logout()
	mm, _ := m.Update(sessionChangedMsg{})
	m = mm.(appModel)
	if m.view != viewLogin {
		t.Fatalf("view after collapse: %d", m.view)
	}
}

func TestChangePasswordModal_ValidatesLength(t *testing.T) {
	m, _ := newTestApp(t, model.RoleUser)
	m = press(t, m, "p")
	if m.modal != modalChangePassword {
		t.Fatal("p did not open the change-password modal")
	}
	m = press(t, m, "o", "l", "d", "p", "a", "s", "s", "tab", "s", "h", "o", "r", "t", "enter")
	if m.modal != modalChangePassword {
		t.Fatal("short password accepted")
	}
	if m.errLine == "" {
		t.Fatal("no validation message for short password")
	}
}

func TestChangePasswordModal_RequiresMatchingConfirm(t *testing.T) {
	m, _ := newTestApp(t, model.RoleUser)
	m = press(t, m, "p")
	m.formInputs[0].SetValue("oldpass")
	m.formInputs[1].SetValue("newpassword1")
	m.formInputs[2].SetValue("newpassword2")
	m = press(t, m, "enter")
	if m.modal != modalChangePassword {
		t.Fatal("mismatched confirmation accepted")
	}
	if m.errLine == "" {
		t.Fatal("no validation message for mismatched passwords")
	}
}
