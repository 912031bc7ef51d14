package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"taskboard/internal/auth"
	"taskboard/internal/kv"
	"taskboard/internal/model"
	"taskboard/internal/repository"
	"taskboard/internal/session"
	"taskboard/internal/store"
)

var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type harness struct {
	t        *testing.T
	handler  http.Handler
	sessions *session.Manager
	kv       *flakyKV
	backend  *repository.Backend
}

// flakyKV is a memory store whose deletes can be made to fail.
type flakyKV struct {
	*kv.Memory
	failDelete atomic.Bool
}

func (f *flakyKV) Delete(ctx context.Context, key string) error {
	if f.failDelete.Load() {
		return errors.New("kv unavailable")
	}
	return f.Memory.Delete(ctx, key)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	backend := repository.NewBackend(db)
	kvStore := &flakyKV{Memory: kv.NewMemory()}
	authSvc := auth.NewService(backend.Users, backend.Categories, kvStore, "test-secret", auth.WithBcryptCost(bcrypt.MinCost))
	sessions := session.NewManager(backend, nil, store.WithClock(func() time.Time { return testNow }))
	srv := NewServer(authSvc, sessions, Options{Now: func() time.Time { return testNow }})
	return &harness{t: t, handler: srv.Handler(), sessions: sessions, kv: kvStore, backend: backend}
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (h *harness) signUp(email string) string {
	h.t.Helper()
	w := h.do(http.MethodPost, "/auth/signup", "", gin.H{"email": email, "password": "secret1", "full_name": "Ada"})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[auth.Credentials](h.t, w).Token
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := h.signUp("ada@example.com")

	w = h.do(http.MethodPost, "/auth/signup", "", gin.H{"email": "ada@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = h.do(http.MethodPost, "/auth/signin", "", gin.H{"email": "ada@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = h.do(http.MethodPost, "/auth/signin", "", gin.H{"email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada@example.com", decode[model.User](t, w).Email)
	assert.Equal(t, 1, h.sessions.Len())

	w = h.do(http.MethodPost, "/auth/telegram/link", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, decode[map[string]string](t, w)["code"], 8)

	w = h.do(http.MethodPost, "/auth/signout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, h.sessions.Len())

	w = h.do(http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/auth/password/reset", "", gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	w = h.do(http.MethodPost, "/auth/password/reset/confirm", "", gin.H{"token": "bogus", "password": "secret2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/auth/oauth/github", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = h.do(http.MethodGet, "/auth/oauth/github/callback?state=x&code=y", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskLifecycle(t *testing.T) {
	h := newHarness(t)
	token := h.signUp("ada@example.com")

	w := h.do(http.MethodGet, "/categories", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Category](t, w), 2)

	w = h.do(http.MethodPost, "/tasks", token, gin.H{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	deadline := testNow.Add(-time.Hour)
	w = h.do(http.MethodPost, "/tasks", token, gin.H{"name": "Write report", "priority": "high", "deadline": deadline})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode[model.Task](t, w)
	assert.Equal(t, model.StatusTodo, task.Status)

	w = h.do(http.MethodPost, "/tasks", token, gin.H{"name": "Plan sprint"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(http.MethodGet, "/tasks?q=report", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Task](t, w), 1)
	w = h.do(http.MethodGet, "/tasks?status=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/stats", token, nil)
	stats := decode[struct {
		Stats store.Stats `json:"stats"`
	}](t, w)
	assert.Equal(t, store.Stats{Total: 2, Overdue: 1}, stats.Stats)

	w = h.do(http.MethodPatch, "/tasks/"+task.ID, token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPatch, "/tasks/"+task.ID, token, gin.H{"status": "done", "deadline": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[model.Task](t, w)
	assert.Equal(t, model.StatusDone, updated.Status)
	assert.Nil(t, updated.Deadline)
	require.NotNil(t, updated.CompletedAt)
	assert.True(t, testNow.Equal(*updated.CompletedAt))

	w = h.do(http.MethodPost, "/kanban/move", token, gin.H{"task_id": task.ID, "status": "in_progress"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[model.Task](t, w).CompletedAt)

	w = h.do(http.MethodGet, "/kanban", token, nil)
	board := decode[[]struct {
		Status model.Status `json:"status"`
		Tasks  []model.Task `json:"tasks"`
	}](t, w)
	require.Len(t, board, 4)
	assert.Len(t, board[0].Tasks, 1)
	assert.Len(t, board[1].Tasks, 1)

	w = h.do(http.MethodDelete, "/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = h.do(http.MethodGet, "/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = h.do(http.MethodDelete, "/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodPost, "/sync", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[store.Snapshot](t, w).Tasks, 1)
}

func TestTasksAreIsolatedPerUser(t *testing.T) {
	h := newHarness(t)
	ada := h.signUp("ada@example.com")
	bob := h.signUp("bob@example.com")

	w := h.do(http.MethodPost, "/tasks", ada, gin.H{"name": "private"})
	require.Equal(t, http.StatusCreated, w.Code)
	task := decode[model.Task](t, w)

	w = h.do(http.MethodGet, "/tasks", bob, nil)
	assert.Empty(t, decode[[]model.Task](t, w))

	w = h.do(http.MethodPatch, "/tasks/"+task.ID, bob, gin.H{"name": "mine"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSignOutFailureKeepsSession(t *testing.T) {
	h := newHarness(t)
	token := h.signUp("ada@example.com")
	w := h.do(http.MethodPost, "/tasks", token, gin.H{"name": "keep me"})
	require.Equal(t, http.StatusCreated, w.Code)

	h.kv.failDelete.Store(true)
	w = h.do(http.MethodPost, "/auth/signout", token, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, h.sessions.Len())

	w = h.do(http.MethodGet, "/tasks", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Task](t, w), 1)

	h.kv.failDelete.Store(false)
	w = h.do(http.MethodPost, "/auth/signout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, h.sessions.Len())
}

func TestTasksCannotReferenceOtherUsersRows(t *testing.T) {
	h := newHarness(t)
	ada := h.signUp("ada@example.com")
	eve := h.signUp("eve@example.com")

	w := h.do(http.MethodPost, "/projects", ada, gin.H{"name": "Ada secret plan", "description": "confidential"})
	require.Equal(t, http.StatusCreated, w.Code)
	project := decode[projectJSON](t, w)
	w = h.do(http.MethodGet, "/categories", ada, nil)
	categories := decode[[]model.Category](t, w)
	require.NotEmpty(t, categories)

	w = h.do(http.MethodPost, "/tasks", eve, gin.H{"name": "sneaky", "project_id": project.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotContains(t, w.Body.String(), "confidential")
	w = h.do(http.MethodPost, "/tasks", eve, gin.H{"name": "sneaky", "category_id": categories[0].ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodPost, "/tasks", eve, gin.H{"name": "own"})
	require.Equal(t, http.StatusCreated, w.Code)
	own := decode[model.Task](t, w)
	w = h.do(http.MethodPatch, "/tasks/"+own.ID, eve, gin.H{"project_id": project.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodGet, "/projects/"+project.ID, ada, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[projectJSON](t, w).Tasks)
}

func TestSyncCanReloadOneCollection(t *testing.T) {
	h := newHarness(t)
	token := h.signUp("ada@example.com")
	w := h.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode[model.User](t, w)

	_, err := h.backend.InsertCategory(context.Background(), &model.Category{UserID: user.ID, Title: "Added elsewhere"})
	require.NoError(t, err)

	w = h.do(http.MethodPost, "/sync?only=tasks", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[store.Snapshot](t, w).Categories, 2)

	w = h.do(http.MethodPost, "/sync?only=categories", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[store.Snapshot](t, w)
	assert.Len(t, snap.Categories, 3)
	assert.False(t, snap.Loading)

	w = h.do(http.MethodPost, "/sync?only=everything", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectsAndViews(t *testing.T) {
	h := newHarness(t)
	token := h.signUp("ada@example.com")

	w := h.do(http.MethodPost, "/projects", token, gin.H{"name": "Launch"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	project := decode[projectJSON](t, w)
	assert.Equal(t, model.DefaultProjectColor, project.Color)
	assert.Equal(t, 0, project.Progress)

	deadline := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	for _, status := range []string{"done", "todo", "done"} {
		w = h.do(http.MethodPost, "/tasks", token, gin.H{"name": "step", "status": status, "project_id": project.ID, "deadline": deadline})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w = h.do(http.MethodGet, "/projects/"+project.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[struct {
		Progress     int                  `json:"progress"`
		TaskRows     []model.Task         `json:"task_rows"`
		StatusCounts map[model.Status]int `json:"status_counts"`
	}](t, w)
	assert.Equal(t, 67, detail.Progress)
	assert.Len(t, detail.TaskRows, 3)
	assert.Equal(t, 2, detail.StatusCounts[model.StatusDone])

	w = h.do(http.MethodPatch, "/projects/"+project.ID, token, gin.H{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(http.MethodPatch, "/projects/"+project.ID, token, gin.H{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(http.MethodGet, "/projects/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodGet, "/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dash := decode[struct {
		CompletionRate int           `json:"completion_rate"`
		ActiveProjects []projectJSON `json:"active_projects"`
		Upcoming       []model.Task  `json:"upcoming"`
	}](t, w)
	assert.Equal(t, 67, dash.CompletionRate)
	assert.Empty(t, dash.ActiveProjects)
	assert.Len(t, dash.Upcoming, 1)

	w = h.do(http.MethodGet, "/calendar?month=2026-10", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cal := decode[struct {
		Days []struct {
			Tasks []model.Task `json:"tasks"`
		} `json:"days"`
	}](t, w)
	require.Len(t, cal.Days, 31)
	assert.Len(t, cal.Days[19].Tasks, 3)

	w = h.do(http.MethodGet, "/calendar?date=2026-10-20", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(http.MethodGet, "/calendar?month=October", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type projectJSON struct {
	ID       string       `json:"id"`
	Color    string       `json:"color_code"`
	Progress int          `json:"progress"`
	Tasks    []model.Task `json:"tasks"`
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 1, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, hit("10.0.0.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1:1001"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2:1000"))
}

func TestRecoveryReturns500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		store.ErrInvalidInput:            http.StatusBadRequest,
		auth.ErrUnauthenticated:          http.StatusUnauthorized,
		auth.ErrEmailUnverified:          http.StatusUnauthorized,
		repository.ErrNotFound:           http.StatusNotFound,
		repository.ErrDuplicate:          http.StatusConflict,
		fmt.Errorf("x: %w", errNotFound): http.StatusNotFound,
		errors.New("db exploded"):        http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
