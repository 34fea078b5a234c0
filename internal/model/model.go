package model

import "strings"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleGuest  Role = "guest"
	RoleWorker Role = "worker"
)

// Roles lists every role the backend knows about, in the order the
// user-creation form offers them.
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleGuest, RoleWorker}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleGuest, RoleWorker:
		return true
	}
	return false
}

// Label is the Russian display name the dashboard renders for a role.
// Unknown roles fall back to the raw value.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Администратор"
	case RoleUser:
		return "Пользователь"
	case RoleGuest:
		return "Гость"
	case RoleWorker:
		return "Рабочий"
	}
	return string(r)
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Identity is the authenticated caller's own profile. The login response
// omits full_name; a later /auth/me refresh fills it in.
type Identity struct {
	ID       string `json:"uid"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Role     Role   `json:"role"`
}

// User is an admin-managed account, distinct from the caller's Identity.
// Timestamps stay as backend-formatted strings; the client only displays them.
type User struct {
	UID       string `json:"uid"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Role      Role   `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type Worker struct {
	UID      string `json:"uid,omitempty"`
	Username string `json:"username"`
}

// Task is a completed work order. Read-only from the dashboard's side.
// planner_date and completion_date arrive as backend-formatted strings
// (completion_date is "DD-MM-YYYY HH:mm").
type Task struct {
	ID             int64    `json:"id"`
	DispatcherName string   `json:"dispatcher_name"`
	Job            string   `json:"job"`
	WorkType       string   `json:"work_type"`
	Address        string   `json:"address"`
	PlannerDate    string   `json:"planner_date"`
	Voltage        float64  `json:"voltage"`
	CompletionDate string   `json:"completion_date"`
	Comments       string   `json:"comments,omitempty"`
	Photos         []string `json:"photos"`
	Worker         *Worker  `json:"worker,omitempty"`
}

// WorkerUsername avoids nil checks at call sites that only render the name.
func (t Task) WorkerUsername() string {
	if t.Worker == nil {
		return ""
	}
	return t.Worker.Username
}

// SearchFields lists the values the user table's search box matches against,
// OR-combined and case-insensitive.
func (u User) SearchFields() []string {
	return []string{u.Username, u.FullName, string(u.Role), u.Role.Label()}
}

// SearchFields lists the values the task table's search box matches against.
// A task without a worker simply never matches on that key.
func (t Task) SearchFields() []string {
	return []string{t.DispatcherName, t.Address, t.WorkerUsername(), t.Comments}
}
