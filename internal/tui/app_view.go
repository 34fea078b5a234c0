package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"techblok-cli/internal/listctl"
	"techblok-cli/internal/model"
	"techblok-cli/internal/session"
)

func (m appModel) View() string {
	if !m.seenWindowSize {
		return ""
	}
	if m.modal != modalNone {
		return placeCentered(m.width, m.height, m.renderModal())
	}
	switch m.view {
	case viewLogin:
		return m.renderLogin()
	case viewUsers:
		return m.renderUsers()
	default:
		return m.renderTasks()
	}
}

func (m appModel) renderLogin() string {
	var b strings.Builder
	b.WriteString(styleHeader().Render("Тех-Блок"))
	b.WriteString("\n")
	b.WriteString(styleMuted().Render("панель управления заданиями"))
	b.WriteString("\n\n")
	b.WriteString(m.loginUser.View())
	b.WriteString("\n")
	b.WriteString(m.loginPass.View())
	b.WriteString("\n\n")
	switch {
	case m.busy && m.sess.State() == session.StateRestoring:
		b.WriteString(m.spinner.View() + " восстановление сессии…")
	case m.busy:
		b.WriteString(m.spinner.View() + " вход…")
	case m.errLine != "":
		b.WriteString(styleError().Render(m.errLine))
	default:
		b.WriteString(styleMuted().Render("enter войти · tab переключить поле · ctrl+c выход"))
	}
	return placeCentered(m.width, m.height, b.String())
}

func (m appModel) headerLine(title string) string {
	left := styleHeader().Render("Тех-Блок") + styleMuted().Render(" · "+title)
	right := ""
	if ident, ok := m.sess.Identity(); ok {
		right = styleRole(ident.Role).Render(ident.Role.Label()) + styleMuted().Render(" · "+ident.Username)
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m appModel) searchLine(term string) string {
	if m.searching {
		return "Поиск: " + m.searchInput.View()
	}
	if term != "" {
		return styleMuted().Render("Поиск: ") + term + styleMuted().Render("  (/ изменить)")
	}
	return ""
}

func (m appModel) statusLine() string {
	switch {
	case m.busy:
		return m.spinner.View() + " загрузка…"
	case m.errLine != "":
		return styleError().Render(m.errLine)
	case m.flash != "":
		return styleSuccess().Render(m.flash)
	}
	return ""
}

func (m appModel) renderTasks() string {
	var b strings.Builder
	b.WriteString(m.headerLine("завершённые задания"))
	b.WriteString("\n\n")
	if s := m.searchLine(m.tasks.SearchTerm()); s != "" {
		b.WriteString(s)
		b.WriteString("\n")
	}

	widths := taskColumnWidths(m.width)
	headers := []string{"Объект", "Тип", "Адрес", "План", "КВ", "Дата", "Фото", "Исполнитель"}
	rows := make([][]string, 0, m.tasks.PageSize())
	for _, t := range m.tasks.VisibleSlice() {
		rows = append(rows, []string{
			taskObject(t),
			t.WorkType,
			t.Address,
			formatDate(t.PlannerDate),
			formatVoltage(t.Voltage),
			formatDate(t.CompletionDate),
			strconv.Itoa(len(t.Photos)),
			t.WorkerUsername(),
		})
	}
	b.WriteString(renderTable(headers, widths, rows, -1))
	b.WriteString("\n")
	b.WriteString(paginationLine(m.tasks.Range, m.tasks.Page(), m.tasks.PageCount()))
	b.WriteString("\n\n")
	if s := m.statusLine(); s != "" {
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString(styleMuted().Render(m.tasksHints()))
	return b.String()
}

func (m appModel) tasksHints() string {
	hints := []string{"/ поиск", "←/→ страницы", "d отчёт", "p пароль"}
	if m.sess.HasPermission(model.RoleAdmin, model.RoleUser) {
		hints = append(hints, "u загрузка")
	}
	if m.sess.HasPermission(model.RoleAdmin) {
		hints = append(hints, "x очистка", "m пользователи")
	}
	hints = append(hints, "L выход", "? справка")
	return strings.Join(hints, " · ")
}

func (m appModel) renderUsers() string {
	var b strings.Builder
	b.WriteString(m.headerLine("пользователи"))
	b.WriteString("\n\n")
	if s := m.searchLine(m.users.SearchTerm()); s != "" {
		b.WriteString(s)
		b.WriteString("\n")
	}

	widths := userColumnWidths(m.width)
	headers := []string{"Логин", "Полное имя", "Роль", "Создан", "Обновлён"}
	rows := make([][]string, 0, m.users.PageSize())
	for _, u := range m.users.VisibleSlice() {
		rows = append(rows, []string{
			u.Username,
			u.FullName,
			u.Role.Label(),
			formatDate(u.CreatedAt),
			formatDate(u.UpdatedAt),
		})
	}
	b.WriteString(renderTable(headers, widths, rows, m.userIdx))
	b.WriteString("\n")
	b.WriteString(paginationLine(m.users.Range, m.users.Page(), m.users.PageCount()))
	b.WriteString("\n\n")
	if s := m.statusLine(); s != "" {
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString(styleMuted().Render("↑/↓ выбор · n новый · e изменить · s пароль · D удалить · / поиск · esc назад · ? справка"))
	return b.String()
}

func taskObject(t model.Task) string {
	if t.Job == "" {
		return t.DispatcherName
	}
	if t.DispatcherName == "" {
		return t.Job
	}
	return t.DispatcherName + " / " + t.Job
}

func formatVoltage(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Fixed narrow columns keep their width; the two text-heavy ones share what
// is left of the terminal.
func taskColumnWidths(total int) []int {
	fixed := []int{0, 10, 0, 12, 5, 17, 4, 12}
	used := 0
	for _, w := range fixed {
		used += w
	}
	flex := (total - used - len(fixed)) / 2
	if flex < 12 {
		flex = 12
	}
	fixed[0] = flex
	fixed[2] = flex
	return fixed
}

func userColumnWidths(total int) []int {
	fixed := []int{16, 0, 14, 17, 17}
	used := 0
	for _, w := range fixed {
		used += w
	}
	flex := total - used - len(fixed)
	if flex < 12 {
		flex = 12
	}
	fixed[1] = flex
	return fixed
}

func renderTable(headers []string, widths []int, rows [][]string, selected int) string {
	var b strings.Builder
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = padCell(h, widths[i])
	}
	b.WriteString(styleTableHeader().Render(strings.Join(cells, " ")))
	b.WriteString("\n")
	if len(rows) == 0 {
		b.WriteString(styleMuted().Render("ничего не найдено"))
		return b.String()
	}
	for ri, row := range rows {
		for i, c := range row {
			cells[i] = padCell(c, widths[i])
		}
		line := strings.Join(cells, " ")
		if ri == selected {
			line = styleSelectedRow().Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// paginationLine renders "Показано 1–8 из 37" plus a windowed page strip,
// mirroring the web dashboard's footer.
func paginationLine(rng func() (int, int, int), page, pageCount int) string {
	first, last, total := rng()
	if total == 0 {
		return styleMuted().Render("Показано 0 из 0")
	}
	var b strings.Builder
	b.WriteString(styleMuted().Render(fmt.Sprintf("Показано %d–%d из %d", first, last, total)))
	if pageCount > 1 {
		b.WriteString("   ")
		for _, p := range listctl.PageWindow(page, pageCount, 5) {
			if p == page {
				b.WriteString(styleSelectedRow().Render(" " + strconv.Itoa(p) + " "))
			} else {
				b.WriteString(styleMuted().Render(" " + strconv.Itoa(p) + " "))
			}
		}
	}
	return b.String()
}

func styleRole(r model.Role) lipgloss.Style {
	switch r {
	case model.RoleAdmin:
		return lipgloss.NewStyle().Foreground(colorRoleAdmin).Bold(true)
	case model.RoleUser:
		return lipgloss.NewStyle().Foreground(colorRoleUser)
	case model.RoleWorker:
		return lipgloss.NewStyle().Foreground(colorRoleWorker)
	default:
		return lipgloss.NewStyle().Foreground(colorRoleGuest)
	}
}
