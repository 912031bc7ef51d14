// Package httpapi exposes the task board over JSON HTTP.
package httpapi

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"taskboard/internal/auth"
	"taskboard/internal/session"
)

// Options tunes the HTTP surface.
type Options struct {
	Logger         *zap.Logger
	Location       *time.Location
	Now            func() time.Time
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
}

// Server routes requests to the auth service and to user sessions.
type Server struct {
	auth     *auth.Service
	sessions *session.Manager
	logger   *zap.Logger
	loc      *time.Location
	now      func() time.Time
	router   *gin.Engine
}

func NewServer(authSvc *auth.Service, sessions *session.Manager, opts Options) *Server {
	s := &Server{
		auth:     authSvc,
		sessions: sessions,
		logger:   opts.Logger,
		loc:      opts.Location,
		now:      opts.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.router = s.routes(opts)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(opts Options) *gin.Engine {
	r := gin.New()

	r.Use(Recovery(s.logger))
	r.Use(RequestLogger(s.logger))
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		r.Use(RateLimiter(rate.Limit(opts.RateLimit), burst, 10*time.Minute))
	}
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	r.GET("/health", s.health)

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/signup", s.signUp)
		authRoutes.POST("/signin", s.signIn)
		authRoutes.GET("/oauth/:provider", s.oauthStart)
		authRoutes.GET("/oauth/:provider/callback", s.oauthCallback)
		authRoutes.POST("/password/reset", s.requestPasswordReset)
		authRoutes.POST("/password/reset/confirm", s.confirmPasswordReset)
	}

	protected := r.Group("")
	protected.Use(s.requireAuth())
	{
		protected.POST("/auth/signout", s.signOut)
		protected.GET("/auth/me", s.me)
		protected.POST("/auth/telegram/link", s.telegramLink)

		tasks := protected.Group("/tasks")
		{
			tasks.GET("", s.listTasks)
			tasks.POST("", s.createTask)
			tasks.GET("/:id", s.getTask)
			tasks.PATCH("/:id", s.updateTask)
			tasks.DELETE("/:id", s.deleteTask)
		}

		projects := protected.Group("/projects")
		{
			projects.GET("", s.listProjects)
			projects.POST("", s.createProject)
			projects.GET("/:id", s.getProject)
			projects.PATCH("/:id", s.updateProject)
		}

		protected.GET("/categories", s.listCategories)
		protected.POST("/categories", s.createCategory)

		protected.GET("/stats", s.stats)
		protected.GET("/dashboard", s.dashboard)
		protected.GET("/kanban", s.kanban)
		protected.POST("/kanban/move", s.kanbanMove)
		protected.GET("/calendar", s.calendar)
		protected.POST("/sync", s.sync)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"sessions":  s.sessions.Len(),
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}
