package bot

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskboard/internal/model"
	"taskboard/internal/store"
	"taskboard/internal/view"
)

const (
	iconDefault = "🟢"
	iconDue     = "⏳"
	iconOverdue = "⚠️"
	iconDone    = "✅"
)

func escape(s string) string {
	return html.EscapeString(s)
}

func categoryNames(categories []model.Category) map[string]string {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Title
	}
	return names
}

func taskIcon(task model.Task, now time.Time) string {
	switch {
	case task.Status == model.StatusDone:
		return iconDone
	case task.Deadline == nil:
		return iconDefault
	case now.After(*task.Deadline):
		return iconOverdue
	case task.Deadline.Sub(now) <= 48*time.Hour:
		return iconDue
	default:
		return iconDefault
	}
}

// formatTaskList numbers tasks from 1 in the given order.
func formatTaskList(title string, tasks []model.Task, catNames map[string]string, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteByte('\n')
	for i, task := range tasks {
		fmt.Fprintf(&sb, "\n%d. %s %s", i+1, taskIcon(task, now), escape(normalizeTitle(task.Name)))
		if name := strings.TrimSpace(catNames[deref(task.CategoryID)]); name != "" {
			fmt.Fprintf(&sb, " <i>(%s)</i>", escape(name))
		}
		if task.Status == model.StatusInProgress || task.Status == model.StatusInReview {
			fmt.Fprintf(&sb, " · %s", task.Status.Label())
		}
		if task.Deadline != nil {
			fmt.Fprintf(&sb, "\n   ⏰ %s", task.Deadline.In(now.Location()).Format("2006-01-02 15:04"))
		}
	}
	return sb.String()
}

func formatStats(stats store.Stats, counts map[model.Status]int) string {
	var sb strings.Builder
	sb.WriteString("📊 <b>Stats</b>\n")
	fmt.Fprintf(&sb, "Total: %d\nCompleted: %d (%d%%)\nIn progress: %d\nOverdue: %d\n",
		stats.Total, stats.Completed, view.CompletionRate(stats), stats.InProgress, stats.Overdue)
	sb.WriteString("\n<b>By status</b>")
	for _, status := range model.Statuses {
		fmt.Fprintf(&sb, "\n• %s: %d", status.Label(), counts[status])
	}
	return sb.String()
}

func doneKeyboard(tasks []model.Task) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))
	for i, task := range tasks {
		label := fmt.Sprintf("✅ %d · %s", i+1, shortTitle(task.Name, 24))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbDonePrefix+task.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func shortTitle(title string, maxLen int) string {
	title = normalizeTitle(title)
	if utf8.RuneCountInString(title) <= maxLen {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxLen-1]) + "…"
}

// normalizeTitle collapses runs of whitespace.
func normalizeTitle(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
