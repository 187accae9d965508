package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/factsearch/factsearch/internal/model"
	"github.com/factsearch/factsearch/internal/session"
)

const cookieName = "fs_session"

// Server exposes the verification websocket and the auth endpoints
type Server struct {
	manager *session.Manager
	auth    *TokenAuth
	cfg     model.ServerConfig

	submitTimeout time.Duration
	httpServer    *http.Server
}

// New creates a server over the given session manager and auth service
func New(manager *session.Manager, auth *TokenAuth, cfg model.ServerConfig, submitTimeout time.Duration) *Server {
	if submitTimeout <= 0 {
		submitTimeout = 10 * time.Second
	}
	return &Server{
		manager:       manager,
		auth:          auth,
		cfg:           cfg,
		submitTimeout: submitTimeout,
	}
}

// Router builds the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.corsMiddleware())

	router.POST("/api/login", s.handleLogin)
	router.POST("/api/logout", s.handleLogout)
	router.GET("/api/me", s.handleMe)
	router.GET("/ws/claims/:claim_id", s.handleClaimStream)

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.cfg.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowed := make(map[string]bool, len(s.cfg.AllowedOrigins))
	for _, origin := range s.cfg.AllowedOrigins {
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
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

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username and password required"})
		return
	}

	token, ok := s.auth.Login(req.Username, req.Password)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid username or password"})
		return
	}

	c.SetCookie(cookieName, token, int(s.auth.TTL().Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true, "username": req.Username})
}

func (s *Server) handleLogout(c *gin.Context) {
	if token, err := c.Cookie(cookieName); err == nil {
		s.auth.Logout(token)
	}
	c.SetCookie(cookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleMe(c *gin.Context) {
	token, _ := c.Cookie(cookieName)
	username, ok := s.auth.Username(token)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": username})
}
