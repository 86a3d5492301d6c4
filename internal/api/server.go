package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/david/grant-hunter/internal/ai"
	"github.com/david/grant-hunter/internal/auth"
	"github.com/david/grant-hunter/internal/db"
	"github.com/david/grant-hunter/internal/enrich"
	"github.com/david/grant-hunter/internal/pipeline"
	"github.com/david/grant-hunter/internal/triage"
)

type Server struct {
	Echo     *echo.Echo
	Store    *db.Store
	Auth     *auth.Service
	Triage   *triage.Service
	Pipeline *pipeline.Pipeline
}

func NewServer(pool *pgxpool.Pool, aiClient *ai.Client) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	store := db.NewStore(pool)
	enricher := enrich.NewEnricher(enrich.NewCollyFetcher())

	s := &Server{
		Echo:     e,
		Store:    store,
		Auth:     auth.NewService(store),
		Triage:   triage.NewService(store, aiClient),
		Pipeline: pipeline.New(aiClient, aiClient, aiClient, enricher, store),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api/v1")
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	authed := api.Group("")
	authed.Use(auth.Middleware)

	authed.POST("/search", s.handleSearch)

	authed.GET("/opportunities", s.handleListOpportunities)
	authed.GET("/opportunities/:id", s.handleGetOpportunity)
	authed.POST("/opportunities/:id/approve", s.handleApprove)
	authed.POST("/opportunities/:id/reject", s.handleReject)
	authed.POST("/opportunities/:id/snooze", s.handleSnooze)
	authed.POST("/opportunities/:id/reopen", s.handleReopen)

	authed.GET("/applications", s.handleListApplications)
	authed.GET("/applications/:id", s.handleGetApplication)
	authed.PATCH("/applications/:id/content", s.handleUpdateContent)
	authed.POST("/applications/:id/status", s.handleAdvanceStatus)
	authed.POST("/applications/:id/draft", s.handleGenerateDraft)

	authed.GET("/metrics", s.handleMetrics)
	authed.GET("/profile", s.handleGetProfile)
	authed.PUT("/profile", s.handleUpdateProfile)
}

// Start blocks serving HTTP on the given port.
func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
