// Package httpapi exposes the server's HTTP surface: user and profile
// routes, cookie-based session authentication, and the mapping from the
// error taxonomy to status codes.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/knowyourenemy/statsadmit-backend/internal/logging"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/config"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/services"
)

// sessionCookieName is the cookie carrying the opaque session token. The
// cookie is http-only and scoped to the service origin.
const sessionCookieName = "sessionId"

type Server struct {
	address       string
	allowedOrigin string
	cookieSecure  bool
	logger        logging.Logger
	users         *services.UserService
	sessions      *services.SessionService
	profiles      *services.ProfileService
	media         *services.MediaService
}

// NewServer wires the HTTP layer to the services.
func NewServer(cfg *config.Config, l logging.Logger, us *services.UserService,
	ss *services.SessionService, ps *services.ProfileService, ms *services.MediaService) *Server {
	return &Server{
		address:       cfg.EndpointAddrHTTP,
		allowedOrigin: cfg.AllowedOrigin,
		cookieSecure:  cfg.CookieSecure,
		logger:        l.With("module", "http_server"),
		users:         us,
		sessions:      ss,
		profiles:      ps,
		media:         ms,
	}
}

// Router builds the gin engine with middleware and all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{s.allowedOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "StatsAdmit")
	})

	api := r.Group("/api")

	api.POST("/user", s.handleSignup)
	api.POST("/user/login", s.handleLogin)
	api.GET("/profile/preview", s.handleAllPreviews)

	authed := api.Group("", s.authenticate())
	authed.DELETE("/user/logout", s.handleLogout)
	authed.PUT("/user/unlock/:profileId", s.handleUnlock)
	authed.PUT("/user/save/:profileId", s.handleSave)
	authed.POST("/profile", s.handleCreateProfile)
	authed.GET("/profile/unlocked", s.handleUnlockedPreviews)
	authed.GET("/profile/saved", s.handleSavedPreviews)
	authed.GET("/profile/thumbnail-upload", s.handleThumbnailUpload)
	authed.GET("/profile/:profileId", s.handleGetProfile)

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// setSessionCookie attaches the session token as an http-only cookie. A zero
// max-age makes it a browser-session cookie; the server-side expiry is what
// actually bounds the session.
func (s *Server) setSessionCookie(c *gin.Context, sessionID string) {
	c.SetCookie(sessionCookieName, sessionID, 0, "/", "", s.cookieSecure, true)
}

// clearSessionCookie removes the cookie on logout.
func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetCookie(sessionCookieName, "", -1, "/", "", s.cookieSecure, true)
}
