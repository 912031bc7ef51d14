package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/model"
	"taskboard/internal/store"
)

func TestParseQuickTask(t *testing.T) {
	in, err := ParseQuickTask("  Buy milk  ", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, QuickTask{Name: "Buy milk"}, in)

	in, err = ParseQuickTask("Report | 2026-10-20 | Work", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "Report", in.Name)
	assert.Equal(t, "Work", in.Category)
	require.NotNil(t, in.Deadline)
	assert.Equal(t, time.Date(2026, 10, 20, 23, 59, 59, 0, time.UTC), *in.Deadline)

	in, err = ParseQuickTask("Report || Home", time.UTC)
	require.NoError(t, err)
	assert.Nil(t, in.Deadline)
	assert.Equal(t, "Home", in.Category)

	for _, bad := range []string{"", " | 2026-10-20", "x | tomorrow", "a | | b | c"} {
		_, err := ParseQuickTask(bad, time.UTC)
		assert.Error(t, err, bad)
	}
}

func TestTaskServiceCommands(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	ada := &model.User{Email: "ada@example.com"}
	require.NoError(t, b.Users.Create(ctx, ada))
	require.NoError(t, b.Categories.EnsureDefaults(ctx, ada.ID))

	st := store.New(b, store.IdentityFunc(func() *model.User { return ada }))
	require.NoError(t, st.LoadAll(ctx))
	svc := NewTaskService(NewCategoryService())

	late := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	soon := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	_, err := svc.CreateTask(ctx, st, QuickTask{Name: "later", Deadline: &late, Category: "work"})
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, st, QuickTask{Name: "sooner", Deadline: &soon, Category: "Errands"})
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, st, QuickTask{Name: "undated"})
	require.NoError(t, err)

	// "work" matched the seeded Work category; "Errands" was created.
	assert.Len(t, st.Categories(), 3)

	open := svc.Open(st)
	require.Len(t, open, 3)
	assert.Equal(t, []string{"sooner", "later", "undated"}, []string{open[0].Name, open[1].Name, open[2].Name})

	done, err := svc.CompleteTask(ctx, st, 1)
	require.NoError(t, err)
	assert.Equal(t, "sooner", done.Name)
	assert.Equal(t, model.StatusDone, done.Status)
	assert.NotNil(t, done.CompletedAt)

	deleted, err := svc.DeleteTask(ctx, st, 2)
	require.NoError(t, err)
	assert.Equal(t, "undated", deleted.Name)

	_, err = svc.CompleteTask(ctx, st, 5)
	assert.Error(t, err)
	assert.Len(t, svc.Open(st), 1)
	assert.Equal(t, 1, st.Stats().Completed)
}
