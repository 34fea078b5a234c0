package tui

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"techblok-cli/internal/api"
	"techblok-cli/internal/config"
	"techblok-cli/internal/listctl"
	"techblok-cli/internal/model"
	"techblok-cli/internal/session"
)

type appModel struct {
	cfg    *config.Config
	sess   *session.Store
	client *api.Client
	log    zerolog.Logger

	width  int
	height int
	// The first WindowSizeMsg is initial sizing, not a user resize.
	seenWindowSize bool

	view  view
	modal modalKind

	tasks   *listctl.Controller[model.Task]
	users   *listctl.Controller[model.User]
	userIdx int

	spinner spinner.Model
	busy    bool

	errLine  string
	flash    string
	flashSeq int

	searching   bool
	searchInput textinput.Model

	loginUser  textinput.Model
	loginPass  textinput.Model
	loginFocus int

	// Shared modal form state. formFocus counts the text inputs first and
	// the role cycler (user create/edit) as the last slot.
	formInputs []textinput.Model
	formLabels []string
	formFocus  int
	formRole   model.Role
	formUID    string

	uploadInput textinput.Model
	uploading   bool
	uploadPct   float64
	// progressCh is created per upload and closed by the upload command once
	// the request finishes, which unparks the last waitProgress command.
	progressCh chan float64

	deleteUID  string
	deleteName string
}

func newAppModel(deps Deps) appModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleMuted()

	search := textinput.New()
	search.Placeholder = "поиск"
	search.CharLimit = 128
	search.Width = 32

	user := textinput.New()
	user.Placeholder = "логин"
	user.CharLimit = 64
	user.Width = 32
	user.Focus()

	pass := textinput.New()
	pass.Placeholder = "пароль"
	pass.CharLimit = 128
	pass.Width = 32
	pass.EchoMode = textinput.EchoPassword

	upload := textinput.New()
	upload.Placeholder = "путь к .xlsx файлу"
	upload.CharLimit = 512
	upload.Width = 48

	return appModel{
		cfg:         deps.Config,
		sess:        deps.Session,
		client:      deps.Client,
		log:         deps.Logger,
		view:        viewLogin,
		tasks:       listctl.New(deps.Config.TasksPageSize, model.Task.SearchFields),
		users:       listctl.New(deps.Config.UsersPageSize, model.User.SearchFields),
		spinner:     sp,
		searchInput: search,
		loginUser:   user,
		loginPass:   pass,
		uploadInput: upload,
	}
}

func (m appModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, textinput.Blink}
	if m.sess.State() == session.StateRestoring {
		cmds = append(cmds, m.restoreCmd())
	}
	return tea.Batch(cmds...)
}

func (m appModel) restoreCmd() tea.Cmd {
	sess := m.sess
	timeout := m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return restoreDoneMsg{err: sess.Restore(ctx)}
	}
}

func (m appModel) loginCmd(username, password string) tea.Cmd {
	sess := m.sess
	timeout := m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := sess.Login(ctx, username, password)
		return loginDoneMsg{err: err}
	}
}

// loadTasksCmd captures the sequence before the request starts so a slower
// response can never overwrite a newer one.
func (m appModel) loadTasksCmd() tea.Cmd {
	seq := m.tasks.BeginLoad()
	client := m.client
	timeout := m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		tasks, err := client.CompletedTasks(ctx)
		return tasksLoadedMsg{seq: seq, tasks: tasks, err: err}
	}
}

func (m appModel) loadUsersCmd() tea.Cmd {
	seq := m.users.BeginLoad()
	client := m.client
	timeout := m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		users, err := client.ListUsers(ctx)
		return usersLoadedMsg{seq: seq, users: users, err: err}
	}
}

func (m appModel) createUserCmd(in api.CreateUserInput) tea.Cmd {
	sess := m.sess
	timeout := m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := sess.CreateUser(ctx, in)
		return userSavedMsg{err: err}
	}
}

func (m appModel) updateUserCmd(uid string, in api.UpdateUserInput) tea.Cmd {
	sess := m.sess
	timeout := m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := sess.UpdateUser(ctx, uid, in)
		return userSavedMsg{err: err}
	}
}

func (m appModel) deleteUserCmd(uid string) tea.Cmd {
	sess := m.sess
	timeout := m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return userDeletedMsg{uid: uid, err: sess.DeleteUser(ctx, uid)}
	}
}

func (m appModel) setUserPasswordCmd(uid, password string) tea.Cmd {
	sess := m.sess
	timeout := m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return userPasswordSetMsg{err: sess.SetUserPassword(ctx, uid, password)}
	}
}

func (m appModel) changePasswordCmd(current, next string) tea.Cmd {
	sess := m.sess
	timeout := m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return passwordChangedMsg{err: sess.ChangePassword(ctx, current, next)}
	}
}

func (m appModel) uploadCmd(path string) tea.Cmd {
	client := m.client
	ch := m.progressCh
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			close(ch)
			return uploadDoneMsg{err: err}
		}
		defer f.Close()
		err = client.UploadReport(context.Background(), filepath.Base(path), f, func(pct float64) {
			select {
			case ch <- pct:
			default:
			}
		})
		close(ch)
		return uploadDoneMsg{err: err}
	}
}

// waitProgressCmd delivers one progress update and is re-armed by the update
// loop until the channel closes.
func (m appModel) waitProgressCmd() tea.Cmd {
	ch := m.progressCh
	return func() tea.Msg {
		pct, ok := <-ch
		if !ok {
			return nil
		}
		return uploadProgressMsg{pct: pct}
	}
}

func (m appModel) downloadCmd() tea.Cmd {
	client := m.client
	timeout := m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		data, err := client.DownloadReport(ctx)
		if err != nil {
			return downloadDoneMsg{err: err}
		}
		path := api.ReportFilename
		if wd, werr := os.Getwd(); werr == nil {
			path = filepath.Join(wd, api.ReportFilename)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return downloadDoneMsg{err: err}
		}
		return downloadDoneMsg{path: path}
	}
}

func (m appModel) clearCmd() tea.Cmd {
	client := m.client
	timeout := m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return clearDoneMsg{err: client.ClearFiles(ctx)}
	}
}

func (m *appModel) showFlash(text string) tea.Cmd {
	m.flash = text
	m.errLine = ""
	m.flashSeq++
	seq := m.flashSeq
	return flashTick(seq)
}

func (m *appModel) showError(err error) {
	m.flash = ""
	m.errLine = api.Describe(err)
}
