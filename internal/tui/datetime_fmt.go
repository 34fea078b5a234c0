package tui

import (
	"fmt"
	"strings"
	"time"
)

// The backend is not consistent about date encodings: completion dates come
// back as "DD-MM-YYYY HH:mm", planner dates as "DD-MM-YYYY", and user
// timestamps as ISO 8601. Try them in order and fall back to the raw string.
var dateLayouts = []string{
	"02-01-2006 15:04",
	"02-01-2006",
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

var ruMonths = [...]string{
	"янв", "фев", "мар", "апр", "мая", "июн",
	"июл", "авг", "сен", "окт", "ноя", "дек",
}

// formatDate renders a backend date string as "02 янв 2006", with the time
// appended when the source carried one.
func formatDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		out := fmt.Sprintf("%02d %s %d", t.Day(), ruMonths[t.Month()-1], t.Year())
		if strings.Contains(layout, "15:04") {
			out += t.Format(" 15:04")
		}
		return out
	}
	return s
}
