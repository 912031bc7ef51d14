package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"taskboard/internal/model"
	"taskboard/internal/store"
	"taskboard/internal/view"
)

// dueSoonWindow is how far ahead a deadline counts as due soon.
const dueSoonWindow = 48 * time.Hour

// DigestService builds the daily summary sent to linked Telegram chats.
type DigestService struct {
	backend store.Backend
}

func NewDigestService(backend store.Backend) *DigestService {
	return &DigestService{backend: backend}
}

// ForUser loads a fresh snapshot for user and summarizes it.
func (s *DigestService) ForUser(ctx context.Context, user *model.User, now time.Time) (string, error) {
	st := store.New(s.backend, store.IdentityFunc(func() *model.User { return user }), store.WithClock(func() time.Time { return now }))
	defer st.Close()
	if err := st.LoadAll(ctx); err != nil {
		return "", fmt.Errorf("load digest data: %w", err)
	}
	return s.Summary(st.Snapshot(), user, now), nil
}

// Summary renders snap as Telegram HTML: headline stats, then overdue,
// due-soon and in-progress tasks.
func (s *DigestService) Summary(snap store.Snapshot, user *model.User, now time.Time) string {
	catNames := make(map[string]string, len(snap.Categories))
	for _, c := range snap.Categories {
		catNames[c.ID] = c.Title
	}

	var overdue, dueSoon, inProgress []model.Task
	for _, task := range snap.Tasks {
		switch {
		case task.Status == model.StatusDone:
			continue
		case task.Overdue(now):
			overdue = append(overdue, task)
		case task.Deadline != nil && task.Deadline.Sub(now) <= dueSoonWindow:
			dueSoon = append(dueSoon, task)
		case task.Status == model.StatusInProgress:
			inProgress = append(inProgress, task)
		}
	}
	view.SortByDeadline(overdue)
	view.SortByDeadline(dueSoon)

	var b strings.Builder
	greeting := "Daily digest"
	if user != nil && user.FirstName() != "" {
		greeting = "Daily digest for " + html.EscapeString(user.FirstName())
	}
	fmt.Fprintf(&b, "📋 <b>%s</b>\n", greeting)
	fmt.Fprintf(&b, "🗓 %s\n\n", now.Format("Mon, 02 Jan 2006"))

	stats := snap.Stats
	fmt.Fprintf(&b, "✅ %d/%d done (%d%%) · 🔄 %d in progress · ⚠️ %d overdue\n",
		stats.Completed, stats.Total, view.CompletionRate(stats), stats.InProgress, stats.Overdue)

	writeSection(&b, "⚠️ <b>Overdue</b>", overdue, catNames, now)
	writeSection(&b, "⏳ <b>Due soon</b>", dueSoon, catNames, now)
	writeSection(&b, "🔄 <b>In progress</b>", inProgress, catNames, now)

	if len(overdue)+len(dueSoon)+len(inProgress) == 0 {
		b.WriteString("\nNothing urgent today 🎉\n")
	}
	return strings.TrimSpace(b.String())
}

func writeSection(b *strings.Builder, title string, tasks []model.Task, catNames map[string]string, now time.Time) {
	if len(tasks) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s\n", title)
	for _, task := range tasks {
		b.WriteString(formatTask(task, catNames, now))
	}
}

func formatTask(task model.Task, catNames map[string]string, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("• " + html.EscapeString(strings.TrimSpace(task.Name)))
	if task.Priority == model.PriorityUrgent || task.Priority == model.PriorityHigh {
		sb.WriteString(" 🔥")
	}
	if task.CategoryID != nil {
		if name := strings.TrimSpace(catNames[*task.CategoryID]); name != "" {
			fmt.Fprintf(&sb, " <i>(%s)</i>", html.EscapeString(name))
		}
	}

	if task.Deadline != nil {
		d := task.Deadline.In(now.Location())
		if now.After(d) {
			fmt.Fprintf(&sb, "\n   ⏰ %s · <b>overdue</b>", d.Format("2006-01-02"))
		} else {
			fmt.Fprintf(&sb, "\n   ⏰ %s · in %s", d.Format("2006-01-02 15:04"), humanizeUntil(d.Sub(now)))
		}
	}

	sb.WriteByte('\n')
	return sb.String()
}

func humanizeUntil(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
