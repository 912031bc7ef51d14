package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/model"
	"taskboard/internal/repository"
	"taskboard/internal/store"
)

var digestNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }

func newBackend(t *testing.T) *repository.Backend {
	t.Helper()
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewBackend(db)
}

func TestDigestSummarySections(t *testing.T) {
	work := "cat-1"
	snap := store.Snapshot{
		Tasks: []model.Task{
			{ID: "1", Name: "File <taxes>", Status: model.StatusTodo, Priority: model.PriorityUrgent, Deadline: ptrTime(digestNow.Add(-24 * time.Hour)), CategoryID: &work},
			{ID: "2", Name: "Call bank", Status: model.StatusTodo, Deadline: ptrTime(digestNow.Add(5 * time.Hour))},
			{ID: "3", Name: "Refactor", Status: model.StatusInProgress},
			{ID: "4", Name: "Shipped", Status: model.StatusDone, Deadline: ptrTime(digestNow.Add(-48 * time.Hour))},
			{ID: "5", Name: "Someday", Status: model.StatusTodo, Deadline: ptrTime(digestNow.Add(10 * 24 * time.Hour))},
		},
		Categories: []model.Category{{ID: work, Title: "Work"}},
	}
	snap.Stats = store.ComputeStats(snap.Tasks, digestNow)

	out := NewDigestService(nil).Summary(snap, &model.User{FullName: "Ada Lovelace"}, digestNow)

	assert.True(t, strings.HasPrefix(out, "📋 <b>Daily digest for Ada</b>"))
	assert.Contains(t, out, "Wed, 14 Oct 2026")
	assert.Contains(t, out, "✅ 1/5 done (20%) · 🔄 1 in progress · ⚠️ 1 overdue")
	assert.Contains(t, out, "• File &lt;taxes&gt; 🔥 <i>(Work)</i>\n   ⏰ 2026-10-13 · <b>overdue</b>")
	assert.Contains(t, out, "• Call bank\n   ⏰ 2026-10-14 14:00 · in 5h")
	assert.Contains(t, out, "🔄 <b>In progress</b>\n• Refactor")
	assert.NotContains(t, out, "Shipped")
	assert.NotContains(t, out, "Someday")

	overdue := strings.Index(out, "<b>Overdue</b>")
	soon := strings.Index(out, "<b>Due soon</b>")
	assert.True(t, overdue >= 0 && soon > overdue)
}

func TestDigestSummaryQuietDay(t *testing.T) {
	out := NewDigestService(nil).Summary(store.Snapshot{}, nil, digestNow)
	assert.True(t, strings.HasPrefix(out, "📋 <b>Daily digest</b>"))
	assert.Contains(t, out, "Nothing urgent today")
}

func TestDigestForUserLoadsFromBackend(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	ada := &model.User{Email: "ada@example.com", FullName: "Ada"}
	require.NoError(t, b.Users.Create(ctx, ada))
	_, err := b.InsertTask(ctx, &model.Task{
		Name: "Late report", Status: model.StatusTodo, Priority: model.PriorityMedium,
		Deadline: ptrTime(digestNow.Add(-time.Hour)), CreatedBy: ada.ID, AssignedTo: ada.ID,
	})
	require.NoError(t, err)

	out, err := NewDigestService(b).ForUser(ctx, ada, digestNow)
	require.NoError(t, err)
	assert.Contains(t, out, "Late report")
	assert.Contains(t, out, "⚠️ 1 overdue")
}

func TestHumanizeUntil(t *testing.T) {
	assert.Equal(t, "45m", humanizeUntil(45*time.Minute))
	assert.Equal(t, "5h", humanizeUntil(5*time.Hour+10*time.Minute))
	assert.Equal(t, "2d", humanizeUntil(50*time.Hour))
}
