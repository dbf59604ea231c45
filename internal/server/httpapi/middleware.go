package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/knowyourenemy/statsadmit-backend/internal/common"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/models"
)

const (
	ctxUserKey      = "currentUser"
	ctxSessionIDKey = "sessionId"
)

// authenticate resolves the session cookie to a user and slides the
// session's expiry forward. A missing, unknown, or expired cookie aborts
// with 401; that is deliberately distinct from the 404 a handler returns for
// a missing resource.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(sessionCookieName)
		if err != nil || sessionID == "" {
			s.abortWithError(c, common.ErrAuthentication)
			return
		}

		ctx := c.Request.Context()

		valid, err := s.sessions.Validate(ctx, sessionID)
		if err != nil {
			s.abortWithError(c, err)
			return
		}
		if !valid {
			s.abortWithError(c, common.ErrAuthentication)
			return
		}

		user, err := s.sessions.Resolve(ctx, sessionID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				// The session lapsed between the two lookups.
				s.abortWithError(c, common.ErrAuthentication)
				return
			}
			s.abortWithError(c, err)
			return
		}

		if err := s.sessions.Refresh(ctx, sessionID); err != nil {
			s.abortWithError(c, err)
			return
		}

		c.Set(ctxUserKey, user)
		c.Set(ctxSessionIDKey, sessionID)
		c.Next()
	}
}

// currentUser returns the user stashed by the authenticate middleware.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

// abortWithError maps a taxonomy kind to its fixed status code and stops the
// chain. Storage and internal failures answer with a generic message so
// collaborator details never reach the caller.
func (s *Server) abortWithError(c *gin.Context, err error) {
	status := statusFromError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), err.Error(), "path", c.Request.URL.Path)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	default:
		// Includes ErrStorage and ErrInternal.
		return http.StatusInternalServerError
	}
}
