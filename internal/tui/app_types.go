package tui

import (
	"techblok-cli/internal/model"
)

type view int

const (
	viewLogin view = iota
	viewTasks
	viewUsers
)

type modalKind int

const (
	modalNone modalKind = iota
	modalHelp
	modalUpload
	modalConfirmClear
	modalConfirmDeleteUser
	modalUserCreate
	modalUserEdit
	modalSetPassword
	modalChangePassword
)

// sessionChangedMsg is sent by the session subscription whenever the store
// transitions; the update loop re-reads the state and picks the right view.
type sessionChangedMsg struct{}

type restoreDoneMsg struct{ err error }

type loginDoneMsg struct{ err error }

// Loaded messages carry the sequence handed out by BeginLoad so responses
// that were overtaken by a newer load are dropped.
type tasksLoadedMsg struct {
	seq   int
	tasks []model.Task
	err   error
}

type usersLoadedMsg struct {
	seq   int
	users []model.User
	err   error
}

type userSavedMsg struct{ err error }

type userDeletedMsg struct {
	uid string
	err error
}

type userPasswordSetMsg struct{ err error }

type passwordChangedMsg struct{ err error }

type uploadProgressMsg struct{ pct float64 }

type uploadDoneMsg struct{ err error }

type downloadDoneMsg struct {
	path string
	err  error
}

type clearDoneMsg struct{ err error }

type flashDoneMsg struct{ seq int }
