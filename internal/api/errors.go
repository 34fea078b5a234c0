package api

import (
	"errors"
	"fmt"
)

// Kind classifies an API failure. Callers switch on Kind to pick user-facing
// copy; raw HTTP status codes never leave this package.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidCredentials
	KindAccountDisabled
	// KindUnauthorized means the token is missing/expired/invalid. It is the
	// only kind with a cross-cutting side effect: the client fires its
	// unauthorized hook so the coordinator can collapse the session.
	KindUnauthorized
	KindForbidden
	KindValidation
	KindNotFound
	KindConflict
	KindNetwork
	KindTimeout
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindAccountDisabled:
		return "account_disabled"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Op      string // e.g. "login", "users.delete"
	Status  int    // HTTP status, 0 for transport failures
	Message string // backend-provided detail when available
	Err     error  // wrapped transport error, if any
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s (http %d)", e.Op, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the taxonomy kind from any error returned by this package.
// Non-API errors report KindUnknown.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }

// Describe renders short user-facing copy for an error, in the dashboard's
// language. Views display this next to the action that failed.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if !errors.As(err, &ae) {
		return err.Error()
	}
	switch ae.Kind {
	case KindInvalidCredentials:
		if ae.Op == opChangePassword {
			return "Текущий пароль неверен"
		}
		return "Неверное имя пользователя или пароль"
	case KindAccountDisabled:
		return "Учётная запись отключена"
	case KindUnauthorized:
		return "Сессия истекла, войдите заново"
	case KindForbidden:
		return "Недостаточно прав"
	case KindValidation:
		if ae.Message != "" {
			return ae.Message
		}
		return "Данные не прошли проверку"
	case KindNotFound:
		return "Запись не найдена"
	case KindConflict:
		return "Такой пользователь уже существует"
	case KindTimeout:
		return "Сервер не ответил вовремя"
	case KindNetwork:
		return "Нет соединения с сервером"
	case KindServer:
		return fmt.Sprintf("Ошибка сервера (%d)", ae.Status)
	}
	return ae.Error()
}
