package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/internal/model"
	"taskboard/internal/view"
)

func (s *Server) stats(c *gin.Context) {
	snap := snapshotOf(c)
	c.JSON(http.StatusOK, gin.H{
		"stats":           snap.Stats,
		"completion_rate": view.CompletionRate(snap.Stats),
		"status_counts":   view.StatusCounts(snap.Tasks),
	})
}

func (s *Server) dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, view.BuildDashboard(snapshotOf(c), s.now(), s.loc))
}

func (s *Server) kanban(c *gin.Context) {
	c.JSON(http.StatusOK, view.Board(snapshotOf(c).Tasks, c.Query("project_id")))
}

type moveRequest struct {
	TaskID string       `json:"task_id" binding:"required"`
	Status model.Status `json:"status" binding:"required"`
}

func (s *Server) kanbanMove(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if !req.Status.Valid() {
		s.respondError(c, fmt.Errorf("%w: unknown status %q", errBadRequest, req.Status))
		return
	}
	st := currentSession(c).Store
	task, found := st.Task(req.TaskID)
	if !found {
		s.respondError(c, fmt.Errorf("task %s: %w", req.TaskID, errNotFound))
		return
	}
	patch, changed := view.MoveTo(task, req.Status)
	if !changed {
		c.JSON(http.StatusOK, task)
		return
	}
	updated, err := st.UpdateTask(c.Request.Context(), task.ID, patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// calendar serves ?month=YYYY-MM (default: the current month) or a
// single ?date=YYYY-MM-DD.
func (s *Server) calendar(c *gin.Context) {
	tasks := snapshotOf(c).Tasks

	if raw := c.Query("date"); raw != "" {
		day, err := time.ParseInLocation("2006-01-02", raw, s.loc)
		if err != nil {
			s.respondError(c, fmt.Errorf("%w: date must be YYYY-MM-DD", errBadRequest))
			return
		}
		c.JSON(http.StatusOK, gin.H{"date": raw, "tasks": view.Day(tasks, day, s.loc)})
		return
	}

	month := s.now().In(s.loc)
	if raw := c.Query("month"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01", raw, s.loc)
		if err != nil {
			s.respondError(c, fmt.Errorf("%w: month must be YYYY-MM", errBadRequest))
			return
		}
		month = parsed
	}
	c.JSON(http.StatusOK, gin.H{
		"month": month.Format("2006-01"),
		"days":  view.Month(tasks, month.Year(), month.Month(), s.loc),
	})
}
