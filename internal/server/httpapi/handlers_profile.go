package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/knowyourenemy/statsadmit-backend/internal/common"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/services"
)

// handleCreateProfile publishes a new profile owned by the current user.
func (s *Server) handleCreateProfile(c *gin.Context) {
	var input services.CreateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: incomplete information to process request", common.ErrValidation))
		return
	}

	profileID, err := s.profiles.Create(c.Request.Context(), currentUser(c), input)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profileId": profileID})
}

// handleGetProfile returns a single profile at the tier the viewer earned.
func (s *Server) handleGetProfile(c *gin.Context) {
	profileID := c.Param("profileId")
	if profileID == "" {
		s.abortWithError(c, fmt.Errorf("%w: incomplete information to process request", common.ErrValidation))
		return
	}

	view, err := s.profiles.Get(c.Request.Context(), profileID, currentUser(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleAllPreviews serves the anonymous catalog listing.
func (s *Server) handleAllPreviews(c *gin.Context) {
	list, err := s.profiles.AllPreviews(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": list})
}

// handleUnlockedPreviews lists previews of the caller's unlocked profiles.
func (s *Server) handleUnlockedPreviews(c *gin.Context) {
	list, err := s.profiles.UnlockedPreviews(c.Request.Context(), currentUser(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": list})
}

// handleSavedPreviews lists previews of the caller's saved profiles.
func (s *Server) handleSavedPreviews(c *gin.Context) {
	list, err := s.profiles.SavedPreviews(c.Request.Context(), currentUser(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": list})
}

// handleThumbnailUpload hands out a presigned upload slot for a thumbnail.
func (s *Server) handleThumbnailUpload(c *gin.Context) {
	key, url, err := s.media.ThumbnailUploadURL(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "uploadUrl": url})
}
