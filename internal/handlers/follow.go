package handlers

import (
	"net/http"

	"inkwell/internal/logging"
	"inkwell/internal/middleware"
	"inkwell/internal/services"

	"github.com/gin-gonic/gin"
)

type FollowHandler struct {
	follows *services.FollowService
	log     logging.Logger
}

func NewFollowHandler(follows *services.FollowService, log logging.Logger) *FollowHandler {
	return &FollowHandler{follows: follows, log: log}
}

// Follow 关注作者 (GET /profile/:username/follow/)
// Always returns to the author's profile, a self-follow included.
func (h *FollowHandler) Follow(c *gin.Context) {
	username := c.Param("username")
	_, err := h.follows.Follow(c.Request.Context(), middleware.CurrentUser(c), username)
	h.back(c, username, err)
}

// Unfollow 取消关注 (GET /profile/:username/unfollow/)
func (h *FollowHandler) Unfollow(c *gin.Context) {
	username := c.Param("username")
	_, err := h.follows.Unfollow(c.Request.Context(), middleware.CurrentUser(c), username)
	h.back(c, username, err)
}

func (h *FollowHandler) back(c *gin.Context, username string, err error) {
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.Redirect(http.StatusFound, profileURL(username))
}
