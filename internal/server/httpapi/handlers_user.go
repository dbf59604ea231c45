package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/knowyourenemy/statsadmit-backend/internal/common"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleSignup creates an account and logs it straight in.
func (s *Server) handleSignup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		s.abortWithError(c, fmt.Errorf("%w: incomplete information to process request", common.ErrValidation))
		return
	}

	sessionID, err := s.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	s.setSessionCookie(c, sessionID)
	c.Status(http.StatusOK)
}

// handleLogin authenticates an existing user and sets the session cookie.
func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		s.abortWithError(c, fmt.Errorf("%w: incomplete information to process request", common.ErrValidation))
		return
	}

	sessionID, err := s.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	s.setSessionCookie(c, sessionID)
	c.Status(http.StatusOK)
}

// handleLogout revokes the current session and clears the cookie.
func (s *Server) handleLogout(c *gin.Context) {
	user := currentUser(c)
	sessionID := c.GetString(ctxSessionIDKey)

	if err := s.users.Logout(c.Request.Context(), user.ID, sessionID); err != nil {
		s.abortWithError(c, err)
		return
	}

	s.clearSessionCookie(c)
	c.Status(http.StatusOK)
}

// handleUnlock adds the profile to the viewer's unlocked set.
func (s *Server) handleUnlock(c *gin.Context) {
	profileID := c.Param("profileId")
	if profileID == "" {
		s.abortWithError(c, fmt.Errorf("%w: incomplete information to process request", common.ErrValidation))
		return
	}

	if err := s.users.Unlock(c.Request.Context(), currentUser(c), profileID); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// handleSave adds the profile to the viewer's saved set.
func (s *Server) handleSave(c *gin.Context) {
	profileID := c.Param("profileId")
	if profileID == "" {
		s.abortWithError(c, fmt.Errorf("%w: incomplete information to process request", common.ErrValidation))
		return
	}

	if err := s.users.Save(c.Request.Context(), currentUser(c), profileID); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
