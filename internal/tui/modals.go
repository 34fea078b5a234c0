package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"techblok-cli/internal/api"
	"techblok-cli/internal/docs"
	"techblok-cli/internal/model"
	"techblok-cli/internal/session"
)

func newFormInput(placeholder string, password bool) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 128
	in.Width = 36
	if password {
		in.EchoMode = textinput.EchoPassword
	}
	return in
}

func (m *appModel) openUserCreate() {
	m.modal = modalUserCreate
	m.errLine = ""
	m.formLabels = []string{"Логин", "Полное имя", "Пароль"}
	m.formInputs = []textinput.Model{
		newFormInput("логин", false),
		newFormInput("полное имя", false),
		newFormInput("пароль", true),
	}
	m.formRole = model.RoleUser
	m.formUID = ""
	m.formFocus = 0
	m.formInputs[0].Focus()
}

func (m *appModel) openUserEdit(u model.User) {
	m.modal = modalUserEdit
	m.errLine = ""
	m.formLabels = []string{"Логин", "Полное имя"}
	m.formInputs = []textinput.Model{
		newFormInput("логин", false),
		newFormInput("полное имя", false),
	}
	m.formInputs[0].SetValue(u.Username)
	m.formInputs[1].SetValue(u.FullName)
	m.formRole = u.Role
	m.formUID = u.UID
	m.formFocus = 0
	m.formInputs[0].Focus()
}

func (m *appModel) openSetPassword(u model.User) {
	m.modal = modalSetPassword
	m.errLine = ""
	m.formLabels = []string{"Новый пароль"}
	m.formInputs = []textinput.Model{newFormInput("новый пароль", true)}
	m.formUID = u.UID
	m.deleteName = u.Username
	m.formFocus = 0
	m.formInputs[0].Focus()
}

func (m *appModel) openChangePassword() {
	m.modal = modalChangePassword
	m.errLine = ""
	m.formLabels = []string{"Текущий пароль", "Новый пароль", "Повторите пароль"}
	m.formInputs = []textinput.Model{
		newFormInput("текущий пароль", true),
		newFormInput("новый пароль", true),
		newFormInput("ещё раз", true),
	}
	m.formUID = ""
	m.formFocus = 0
	m.formInputs[0].Focus()
}

func (m *appModel) openUpload() {
	m.modal = modalUpload
	m.errLine = ""
	m.uploadPct = 0
	m.uploadInput.SetValue("")
	m.uploadInput.Focus()
}

// formSlots counts the focusable slots of the current modal; the user form
// has a role cycler after the text inputs.
func (m appModel) formSlots() int {
	n := len(m.formInputs)
	if m.modal == modalUserCreate || m.modal == modalUserEdit {
		n++
	}
	return n
}

func (m *appModel) focusFormSlot(idx int) {
	n := m.formSlots()
	if n == 0 {
		return
	}
	m.formFocus = ((idx % n) + n) % n
	for i := range m.formInputs {
		if i == m.formFocus {
			m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
}

func (m *appModel) cycleRole(delta int) {
	roles := model.Roles()
	idx := 0
	for i, r := range roles {
		if r == m.formRole {
			idx = i
			break
		}
	}
	idx = ((idx+delta)%len(roles) + len(roles)) % len(roles)
	m.formRole = roles[idx]
}

func (m appModel) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch m.modal {
	case modalHelp:
		switch key {
		case "esc", "q", "?", "enter":
			m.modal = modalNone
		}
		return m, nil

	case modalConfirmClear:
		switch key {
		case "enter", "y":
			return m, m.clearCmd()
		case "esc", "n":
			m.modal = modalNone
		}
		return m, nil

	case modalConfirmDeleteUser:
		switch key {
		case "enter", "y":
			return m, m.deleteUserCmd(m.deleteUID)
		case "esc", "n":
			m.modal = modalNone
		}
		return m, nil

	case modalUpload:
		if m.uploading {
			// The request is in flight; nothing to edit or cancel here.
			return m, nil
		}
		switch key {
		case "esc":
			m.modal = modalNone
			return m, nil
		case "enter":
			path := strings.TrimSpace(m.uploadInput.Value())
			if path == "" {
				m.errLine = "Укажите путь к файлу."
				return m, nil
			}
			if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
				m.errLine = "Нужен файл .xlsx."
				return m, nil
			}
			m.errLine = ""
			m.uploading = true
			m.uploadPct = 0
			m.progressCh = make(chan float64, 8)
			return m, tea.Batch(m.uploadCmd(path), m.waitProgressCmd(), m.spinner.Tick)
		}
		var cmd tea.Cmd
		m.uploadInput, cmd = m.uploadInput.Update(msg)
		return m, cmd
	}

	// Form modals: user create/edit, set password, change password.
	switch key {
	case "esc":
		m.modal = modalNone
		return m, nil
	case "tab", "down":
		(&m).focusFormSlot(m.formFocus + 1)
		return m, nil
	case "shift+tab", "up":
		(&m).focusFormSlot(m.formFocus - 1)
		return m, nil
	case "left", "right":
		if m.onRoleSlot() {
			if key == "left" {
				(&m).cycleRole(-1)
			} else {
				(&m).cycleRole(1)
			}
			return m, nil
		}
	case "enter":
		return m.submitForm()
	}

	if m.formFocus < len(m.formInputs) {
		var cmd tea.Cmd
		m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m appModel) onRoleSlot() bool {
	return (m.modal == modalUserCreate || m.modal == modalUserEdit) && m.formFocus == len(m.formInputs)
}

func (m appModel) submitForm() (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalUserCreate:
		username := strings.TrimSpace(m.formInputs[0].Value())
		fullName := strings.TrimSpace(m.formInputs[1].Value())
		password := m.formInputs[2].Value()
		if username == "" {
			m.errLine = "Логин обязателен."
			return m, nil
		}
		if len(password) < session.MinPasswordLen {
			m.errLine = fmt.Sprintf("Пароль должен быть не короче %d символов.", session.MinPasswordLen)
			return m, nil
		}
		m.errLine = ""
		return m, tea.Batch(m.startBusy(), m.createUserCmd(api.CreateUserInput{
			Username: username,
			FullName: fullName,
			Password: password,
			Role:     m.formRole,
		}))

	case modalUserEdit:
		username := strings.TrimSpace(m.formInputs[0].Value())
		fullName := strings.TrimSpace(m.formInputs[1].Value())
		if username == "" {
			m.errLine = "Логин обязателен."
			return m, nil
		}
		role := m.formRole
		m.errLine = ""
		return m, tea.Batch(m.startBusy(), m.updateUserCmd(m.formUID, api.UpdateUserInput{
			Username: &username,
			FullName: &fullName,
			Role:     &role,
		}))

	case modalSetPassword:
		password := m.formInputs[0].Value()
		if len(password) < session.MinPasswordLen {
			m.errLine = fmt.Sprintf("Пароль должен быть не короче %d символов.", session.MinPasswordLen)
			return m, nil
		}
		m.errLine = ""
		return m, m.setUserPasswordCmd(m.formUID, password)

	case modalChangePassword:
		current := m.formInputs[0].Value()
		next := m.formInputs[1].Value()
		confirm := m.formInputs[2].Value()
		if current == "" {
			m.errLine = "Введите текущий пароль."
			return m, nil
		}
		if len(next) < session.MinPasswordLen {
			m.errLine = fmt.Sprintf("Пароль должен быть не короче %d символов.", session.MinPasswordLen)
			return m, nil
		}
		if next != confirm {
			m.errLine = "Пароли не совпадают."
			return m, nil
		}
		m.errLine = ""
		return m, m.changePasswordCmd(current, next)
	}
	return m, nil
}

// withErr appends the pending validation or request error under the modal
// body; the footer status line is hidden while a modal is up.
func (m appModel) withErr(content string) string {
	if m.errLine == "" {
		return content
	}
	return content + "\n\n" + styleError().Render(m.errLine)
}

func (m appModel) renderModal() string {
	switch m.modal {
	case modalHelp:
		body, _ := docs.Get("keys")
		return renderModalBox(m.width, "Справка", renderMarkdown(body, modalBodyWidth(m.width)))

	case modalConfirmClear:
		content := "Удалить все загруженные файлы отчётов?\n\n" +
			styleMuted().Render("enter/y подтвердить · esc/n отмена")
		return renderModalBox(m.width, "Очистка файлов", m.withErr(content))

	case modalConfirmDeleteUser:
		content := fmt.Sprintf("Удалить пользователя %q?\n\n", m.deleteName) +
			styleMuted().Render("enter/y подтвердить · esc/n отмена")
		return renderModalBox(m.width, "Удаление пользователя", m.withErr(content))

	case modalUpload:
		var b strings.Builder
		b.WriteString(m.uploadInput.View())
		b.WriteString("\n\n")
		if m.uploading {
			b.WriteString(m.spinner.View())
			b.WriteString(renderProgressBar(m.uploadPct, modalBodyWidth(m.width)-4))
		} else {
			b.WriteString(styleMuted().Render("enter загрузить · esc отмена"))
		}
		return renderModalBox(m.width, "Загрузка отчёта", m.withErr(b.String()))

	case modalUserCreate, modalUserEdit:
		title := "Новый пользователь"
		if m.modal == modalUserEdit {
			title = "Редактирование пользователя"
		}
		var b strings.Builder
		for i := range m.formInputs {
			b.WriteString(styleMuted().Render(m.formLabels[i]))
			b.WriteString("\n")
			b.WriteString(m.formInputs[i].View())
			b.WriteString("\n")
		}
		b.WriteString(styleMuted().Render("Роль"))
		b.WriteString("\n")
		roleLine := "  " + m.formRole.Label() + " (" + string(m.formRole) + ")"
		if m.onRoleSlot() {
			roleLine = "‹ " + m.formRole.Label() + " (" + string(m.formRole) + ") ›"
		}
		b.WriteString(roleLine)
		b.WriteString("\n\n")
		b.WriteString(styleMuted().Render("tab поле · ←/→ роль · enter сохранить · esc отмена"))
		return renderModalBox(m.width, title, m.withErr(b.String()))

	case modalSetPassword:
		var b strings.Builder
		b.WriteString(styleMuted().Render("Пользователь: " + m.deleteName))
		b.WriteString("\n\n")
		b.WriteString(m.formInputs[0].View())
		b.WriteString("\n\n")
		b.WriteString(styleMuted().Render("enter сохранить · esc отмена"))
		return renderModalBox(m.width, "Смена пароля пользователя", m.withErr(b.String()))

	case modalChangePassword:
		var b strings.Builder
		for i := range m.formInputs {
			b.WriteString(styleMuted().Render(m.formLabels[i]))
			b.WriteString("\n")
			b.WriteString(m.formInputs[i].View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(styleMuted().Render("tab поле · enter сохранить · esc отмена"))
		return renderModalBox(m.width, "Смена пароля", m.withErr(b.String()))
	}
	return ""
}

func renderProgressBar(pct float64, width int) string {
	if width < 10 {
		width = 10
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	barW := width - 6
	filled := int(float64(barW) * pct / 100)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barW-filled)
	return fmt.Sprintf(" %s %3.0f%%", bar, pct)
}
