package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/model"
	"taskboard/internal/store"
	"taskboard/internal/view"
)

type projectDetail struct {
	view.ProjectCard
	TaskRows     []model.Task         `json:"task_rows"`
	StatusCounts map[model.Status]int `json:"status_counts"`
	Board        []view.Column        `json:"board"`
}

func card(p model.Project) view.ProjectCard {
	return view.ProjectCard{Project: p, Progress: store.ProjectProgress(p)}
}

func (s *Server) listProjects(c *gin.Context) {
	projects := currentSession(c).Store.Projects()
	cards := make([]view.ProjectCard, len(projects))
	for i, p := range projects {
		cards[i] = card(p)
	}
	c.JSON(http.StatusOK, gin.H{
		"projects":      cards,
		"status_counts": view.ProjectStatusCounts(projects),
	})
}

func (s *Server) createProject(c *gin.Context) {
	var input model.ProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	project, err := currentSession(c).Store.CreateProject(c.Request.Context(), input)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card(*project))
}

func (s *Server) getProject(c *gin.Context) {
	snap := snapshotOf(c)
	id := c.Param("id")
	for _, p := range snap.Projects {
		if p.ID != id {
			continue
		}
		rows := view.ProjectTasks(snap.Tasks, id)
		c.JSON(http.StatusOK, projectDetail{
			ProjectCard:  card(p),
			TaskRows:     rows,
			StatusCounts: view.StatusCounts(rows),
			Board:        view.Board(rows, id),
		})
		return
	}
	s.respondError(c, fmt.Errorf("project %s: %w", id, errNotFound))
}

func (s *Server) updateProject(c *gin.Context) {
	var patch model.ProjectPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	project, err := currentSession(c).Store.UpdateProject(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card(*project))
}
