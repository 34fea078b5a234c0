package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"techblok-cli/internal/api"
	"techblok-cli/internal/model"
	"techblok-cli/internal/session"
)

func flashTick(seq int) tea.Cmd {
	return tea.Tick(2500*time.Millisecond, func(time.Time) tea.Msg { return flashDoneMsg{seq: seq} })
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.seenWindowSize = true
		return m, nil

	case spinner.TickMsg:
		if !m.busy && !m.uploading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionChangedMsg:
		return m.applySessionState()

	case restoreDoneMsg:
		m.busy = false
		if msg.err != nil {
			if api.IsUnauthorized(msg.err) {
				m.errLine = "Сессия истекла, войдите снова."
			} else {
				m.showError(msg.err)
			}
		}
		return m, nil

	case loginDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.showError(msg.err)
			m.loginPass.SetValue("")
			return m, nil
		}
		m.loginUser.SetValue("")
		m.loginPass.SetValue("")
		m.loginFocus = 0
		m.errLine = ""
		return m, nil

	case tasksLoadedMsg:
		m.busy = false
		if msg.err != nil {
			m.showError(msg.err)
			return m, nil
		}
		m.tasks.ApplyLoad(msg.seq, msg.tasks)
		return m, nil

	case usersLoadedMsg:
		m.busy = false
		if msg.err != nil {
			m.showError(msg.err)
			return m, nil
		}
		if m.users.ApplyLoad(msg.seq, msg.users) {
			m.clampUserIdx()
		}
		return m, nil

	case userSavedMsg:
		m.busy = false
		if msg.err != nil {
			m.showError(msg.err)
			return m, nil
		}
		m.modal = modalNone
		cmd := m.showFlash("Сохранено")
		return m, tea.Batch(cmd, m.startBusy(), m.loadUsersCmd())

	case userDeletedMsg:
		m.modal = modalNone
		if msg.err != nil {
			m.showError(msg.err)
			return m, nil
		}
		uid := msg.uid
		m.users.RemoveLocally(func(u model.User) bool { return u.UID == uid })
		m.clampUserIdx()
		return m, m.showFlash("Пользователь удалён")

	case userPasswordSetMsg:
		if msg.err != nil {
			m.showError(msg.err)
			return m, nil
		}
		m.modal = modalNone
		return m, m.showFlash("Пароль обновлён")

	case passwordChangedMsg:
		if msg.err != nil {
			m.showError(msg.err)
			return m, nil
		}
		m.modal = modalNone
		return m, m.showFlash("Пароль изменён")

	case uploadProgressMsg:
		m.uploadPct = msg.pct
		return m, m.waitProgressCmd()

	case uploadDoneMsg:
		m.uploading = false
		if msg.err != nil {
			m.showError(msg.err)
			return m, nil
		}
		m.modal = modalNone
		m.uploadInput.SetValue("")
		cmd := m.showFlash("Отчёт загружен")
		return m, tea.Batch(cmd, m.startBusy(), m.loadTasksCmd())

	case downloadDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.showError(msg.err)
			return m, nil
		}
		return m, m.showFlash("Сохранено: " + msg.path)

	case clearDoneMsg:
		m.modal = modalNone
		if msg.err != nil {
			m.showError(msg.err)
			return m, nil
		}
		cmd := m.showFlash("Файлы очищены")
		return m, tea.Batch(cmd, m.startBusy(), m.loadTasksCmd())

	case flashDoneMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// applySessionState re-reads the session store after any transition. A
// collapse to Unauthenticated from anywhere (expired token, explicit logout,
// a 401 mid-flight) drops the UI back to the login screen.
func (m appModel) applySessionState() (tea.Model, tea.Cmd) {
	switch m.sess.State() {
	case session.StateAuthenticated:
		if m.view == viewLogin {
			m.view = viewTasks
			m.modal = modalNone
			m.errLine = ""
			return m, tea.Batch(m.startBusy(), m.loadTasksCmd())
		}
	default:
		if m.view != viewLogin {
			m.view = viewLogin
			m.modal = modalNone
			m.searching = false
			m.busy = false
			m.loginFocus = 0
			m.loginUser.Focus()
			m.loginPass.Blur()
			if err := m.sess.LastError(); err != nil {
				if api.IsUnauthorized(err) {
					m.errLine = "Сессия истекла, войдите снова."
				} else {
					m.showError(err)
				}
			}
		}
	}
	return m, nil
}

func (m *appModel) startBusy() tea.Cmd {
	m.busy = true
	return m.spinner.Tick
}

func (m *appModel) clampUserIdx() {
	n := len(m.users.VisibleSlice())
	if n == 0 {
		m.userIdx = 0
		return
	}
	if m.userIdx >= n {
		m.userIdx = n - 1
	}
	if m.userIdx < 0 {
		m.userIdx = 0
	}
}

func (m appModel) selectedUser() (model.User, bool) {
	vis := m.users.VisibleSlice()
	if len(vis) == 0 || m.userIdx < 0 || m.userIdx >= len(vis) {
		return model.User{}, false
	}
	return vis[m.userIdx], true
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.modal != modalNone {
		return m.handleModalKey(msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}
	switch m.view {
	case viewLogin:
		return m.handleLoginKey(msg)
	case viewUsers:
		return m.handleUsersKey(msg)
	default:
		return m.handleTasksKey(msg)
	}
}

func (m appModel) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		m.loginFocus = 1 - m.loginFocus
		if m.loginFocus == 0 {
			m.loginPass.Blur()
			return m, m.loginUser.Focus()
		}
		m.loginUser.Blur()
		return m, m.loginPass.Focus()

	case "enter":
		username := strings.TrimSpace(m.loginUser.Value())
		password := m.loginPass.Value()
		if username == "" || password == "" {
			m.errLine = "Введите логин и пароль."
			return m, nil
		}
		m.errLine = ""
		return m, tea.Batch(m.startBusy(), m.loginCmd(username, password))

	case "q":
		// The login screen has no text shortcut conflicts besides the
		// inputs themselves, so "q" types into the focused field.
	}

	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.loginUser, cmd = m.loginUser.Update(msg)
	} else {
		m.loginPass, cmd = m.loginPass.Update(msg)
	}
	return m, cmd
}

func (m appModel) handleTasksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "?":
		m.modal = modalHelp
		return m, nil
	case "/":
		m.searching = true
		m.searchInput.SetValue(m.tasks.SearchTerm())
		return m, m.searchInput.Focus()
	case "left":
		m.tasks.PrevPage()
		return m, nil
	case "right":
		m.tasks.NextPage()
		return m, nil
	case "r":
		return m, tea.Batch(m.startBusy(), m.loadTasksCmd())
	case "u":
		if !m.sess.HasPermission(model.RoleAdmin, model.RoleUser) {
			return m, m.showFlash("Недостаточно прав")
		}
		(&m).openUpload()
		return m, textinput.Blink
	case "d":
		return m, tea.Batch(m.startBusy(), m.downloadCmd())
	case "x":
		if !m.sess.HasPermission(model.RoleAdmin) {
			return m, m.showFlash("Недостаточно прав")
		}
		m.modal = modalConfirmClear
		return m, nil
	case "m":
		if !m.sess.HasPermission(model.RoleAdmin) {
			return m, m.showFlash("Недостаточно прав")
		}
		m.view = viewUsers
		m.userIdx = 0
		return m, tea.Batch(m.startBusy(), m.loadUsersCmd())
	case "p":
		(&m).openChangePassword()
		return m, textinput.Blink
	case "L":
		m.sess.Logout()
		return m, nil
	}
	return m, nil
}

func (m appModel) handleUsersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc":
		m.view = viewTasks
		return m, nil
	case "?":
		m.modal = modalHelp
		return m, nil
	case "/":
		m.searching = true
		m.searchInput.SetValue(m.users.SearchTerm())
		return m, m.searchInput.Focus()
	case "left":
		m.users.PrevPage()
		m.userIdx = 0
		return m, nil
	case "right":
		m.users.NextPage()
		m.userIdx = 0
		return m, nil
	case "up", "k":
		if m.userIdx > 0 {
			m.userIdx--
		}
		return m, nil
	case "down", "j":
		if m.userIdx < len(m.users.VisibleSlice())-1 {
			m.userIdx++
		}
		return m, nil
	case "r":
		return m, tea.Batch(m.startBusy(), m.loadUsersCmd())
	case "n":
		(&m).openUserCreate()
		return m, textinput.Blink
	case "e":
		if u, ok := m.selectedUser(); ok {
			(&m).openUserEdit(u)
			return m, textinput.Blink
		}
		return m, nil
	case "s":
		if u, ok := m.selectedUser(); ok {
			(&m).openSetPassword(u)
			return m, textinput.Blink
		}
		return m, nil
	case "D":
		if u, ok := m.selectedUser(); ok {
			m.modal = modalConfirmDeleteUser
			m.deleteUID = u.UID
			m.deleteName = u.Username
		}
		return m, nil
	case "L":
		m.sess.Logout()
		return m, nil
	}
	return m, nil
}

func (m appModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		(&m).applySearch(m.searchInput.Value())
		return m, nil
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		(&m).applySearch("")
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// applySearch routes the search box to whichever table is on screen.
func (m *appModel) applySearch(term string) {
	if m.view == viewUsers {
		m.users.SetSearchTerm(term)
		m.userIdx = 0
		return
	}
	m.tasks.SetSearchTerm(term)
}
