package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/model"
	"taskboard/internal/store"
	"taskboard/internal/view"
)

func (s *Server) listTasks(c *gin.Context) {
	var q view.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if q.Status != "" && !q.Status.Valid() {
		s.respondError(c, fmt.Errorf("%w: unknown status %q", errBadRequest, q.Status))
		return
	}
	if q.Priority != "" && !q.Priority.Valid() {
		s.respondError(c, fmt.Errorf("%w: unknown priority %q", errBadRequest, q.Priority))
		return
	}
	c.JSON(http.StatusOK, q.Apply(currentSession(c).Store.Tasks()))
}

func (s *Server) createTask(c *gin.Context) {
	var input model.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	task, err := currentSession(c).Store.CreateTask(c.Request.Context(), input)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) getTask(c *gin.Context) {
	task, ok := currentSession(c).Store.Task(c.Param("id"))
	if !ok {
		s.respondError(c, fmt.Errorf("task %s: %w", c.Param("id"), errNotFound))
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) updateTask(c *gin.Context) {
	var patch model.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	task, err := currentSession(c).Store.UpdateTask(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) deleteTask(c *gin.Context) {
	if err := currentSession(c).Store.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, currentSession(c).Store.Categories())
}

func (s *Server) createCategory(c *gin.Context) {
	var input model.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	category, err := currentSession(c).Store.CreateCategory(c.Request.Context(), input)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// sync reloads the session store, or one collection of it with
// ?only=tasks|projects|categories.
func (s *Server) sync(c *gin.Context) {
	st := currentSession(c).Store
	ctx := c.Request.Context()
	var err error
	switch only := c.Query("only"); only {
	case "":
		err = st.LoadAll(ctx)
	case "tasks":
		err = st.RefreshTasks(ctx)
	case "projects":
		err = st.RefreshProjects(ctx)
	case "categories":
		err = st.RefreshCategories(ctx)
	default:
		err = fmt.Errorf("%w: only must be tasks, projects or categories, got %q", errBadRequest, only)
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st.Snapshot())
}

func snapshotOf(c *gin.Context) store.Snapshot {
	return currentSession(c).Store.Snapshot()
}
