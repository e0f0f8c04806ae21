package handlers

import (
	"net/http"

	"inkwell/internal/logging"
	"inkwell/internal/middleware"
	"inkwell/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notes *services.NotificationService
	log   logging.Logger
}

func NewNotificationHandler(notes *services.NotificationService, log logging.Logger) *NotificationHandler {
	return &NotificationHandler{notes: notes, log: log}
}

// List 通知列表 (GET /notifications/)
func (h *NotificationHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	notifications, err := h.notes.List(ctx, user)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	unread, err := h.notes.Unread(ctx, user.ID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	Render(c, http.StatusOK, "users/notifications.html", gin.H{
		"Title":         "Notifications",
		"Notifications": notifications,
		"Unread":        unread,
		"Active":        "notifications",
	})
}

// Read 标记单条已读 (POST /notifications/:id/read/)
func (h *NotificationHandler) Read(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	if err := h.notes.Read(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		fail(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReadAll 全部已读 (POST /notifications/read-all/)
func (h *NotificationHandler) ReadAll(c *gin.Context) {
	if err := h.notes.ReadAll(c.Request.Context(), middleware.CurrentUser(c)); err != nil {
		fail(c, h.log, err)
		return
	}
	c.Redirect(http.StatusFound, "/notifications/")
}
