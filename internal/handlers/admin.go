package handlers

import (
	"net/http"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/events"
	"inkwell/internal/logging"
	"inkwell/internal/middleware"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	pages cache.Store
	bus   events.Bus
	log   logging.Logger
}

func NewAdminHandler(pages cache.Store, bus events.Bus, log logging.Logger) *AdminHandler {
	return &AdminHandler{pages: pages, bus: bus, log: log}
}

// ClearCache 清空页面缓存并通知其他实例 (POST /admin/cache/clear/)
func (h *AdminHandler) ClearCache(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	if err := h.pages.Clear(ctx); err != nil {
		fail(c, h.log, err)
		return
	}

	ev := events.CacheClearEvent{RequestedBy: user.Username, Timestamp: time.Now()}
	if err := h.bus.Publish(ctx, events.SubjectCacheClear, ev); err != nil {
		// 本实例已清空，其他实例等 TTL 过期
		h.log.Warn(ctx, "broadcast cache clear failed", "error", err)
	}

	h.log.Info(ctx, "page cache cleared by operator", "user", user.Username)
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
