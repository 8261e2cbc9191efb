// Package server exposes the conversation session over HTTP for the
// dashboard. All conversational endpoints delegate to the session manager,
// which serializes them internally.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/logscout-dev/logscout/internal/session"
	"github.com/logscout-dev/logscout/pkg/observability"
)

// Options holds the server wiring.
type Options struct {
	Sessions *session.Manager
	// AllowedOrigins lists the dashboard origins allowed by CORS.
	AllowedOrigins []string
	Port           int
}

// Server is the conversational HTTP front end.
type Server struct {
	opts   Options
	router *gin.Engine
	srv    *http.Server
}

// New builds the server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("server: session manager is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8000
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(opts.AllowedOrigins))
	router.Use(metricsMiddleware())

	s := &Server{opts: opts, router: router}
	s.registerRoutes()
	return s, nil
}

// Router returns the underlying handler, mostly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.opts.Port),
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.router.POST("/get_prompt", s.handleGetPrompt)
	s.router.POST("/human_input", s.handleHumanInput)
	s.router.POST("/reset_conversation", s.handleReset)
	s.router.GET("/pending_requests", s.handlePendingRequests)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/agent_status", s.handleAgentStatus)
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleGetPrompt(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	result, err := s.opts.Sessions.Chat(c.Request.Context(), req.Prompt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type humanInputRequest struct {
	RequestID string `json:"request_id"`
	Answer    string `json:"answer"`
}

func (s *Server) handleHumanInput(c *gin.Context) {
	var req humanInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.RequestID == "" || req.Answer == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request_id and answer are required"})
		return
	}

	result, err := s.opts.Sessions.SubmitHumanInput(c.Request.Context(), req.RequestID, req.Answer)
	if err != nil {
		if errors.Is(err, session.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleReset(c *gin.Context) {
	if err := s.opts.Sessions.Reset(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "conversation reset",
	})
}

func (s *Server) handlePendingRequests(c *gin.Context) {
	pending := s.opts.Sessions.ListPending()
	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	c.JSON(http.StatusOK, gin.H{
		"pending": ids,
		"details": pending,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "not_initialized"
	if s.opts.Sessions.AgentRunning() {
		status = "running"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"agent_status": status,
	})
}

func (s *Server) handleAgentStatus(c *gin.Context) {
	running := s.opts.Sessions.AgentRunning()
	status := "not_initialized"
	if running {
		status = "running"
	}
	c.JSON(http.StatusOK, gin.H{
		"agent_initialized": running,
		"status":            status,
	})
}

// corsMiddleware allows the configured dashboard origins. Preflight requests
// are answered directly.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed[origin] || allowed["*"]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// metricsMiddleware records per-request prometheus counters and latency.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		observability.RecordHTTPRequest(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}
