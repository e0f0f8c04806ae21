package handlers

import (
	"errors"
	"html"
	"net/http"
	"strings"

	"inkwell/internal/apperr"
	"inkwell/internal/logging"
	"inkwell/internal/middleware"
	"inkwell/internal/services"

	"github.com/gin-gonic/gin"
)

// 盗链提醒 SVG 图片
const hotlinkSVG = `<svg width="200" height="200" xmlns="http://www.w3.org/2000/svg">
  <rect width="100%" height="100%" fill="#f8f9fa"/>
  <text x="50%" y="50%" font-family="Arial" font-size="14" fill="#6c757d" text-anchor="middle">
    Image hosted for {{site}} only
  </text>
</svg>`

// ImageHandler uploads inline images for the post editor and guards the media
// directory against hotlinking.
type ImageHandler struct {
	posts    *services.PostService
	siteName string
	log      logging.Logger
}

func NewImageHandler(posts *services.PostService, siteName string, log logging.Logger) *ImageHandler {
	return &ImageHandler{posts: posts, siteName: siteName, log: log}
}

// Upload 处理编辑器图片上传 (POST /upload/image)
// 返回的 URL 可直接写进 Markdown
func (h *ImageHandler) Upload(c *gin.Context) {
	upload, closeFn, err := formUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Choose an image to upload."})
		return
	}
	defer closeFn()

	url, err := h.posts.UploadImage(c.Request.Context(), middleware.CurrentUser(c), upload)
	if v, ok := apperr.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": v.First("image")})
		return
	}
	if errors.Is(err, apperr.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Log in to upload images."})
		return
	}
	if err != nil {
		h.log.Error(c.Request.Context(), "image upload failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Upload failed."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"url":      url,
		"markdown": "![](" + url + ")",
	})
}

// Guard 防盗链：跨站嵌入的图片请求返回提醒图片
func (h *ImageHandler) Guard(c *gin.Context) {
	if isAllowedRequest(c) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Next()
		return
	}
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, "image/svg+xml", []byte(hotlinkBadge(h.siteName)))
	c.Abort()
}

func hotlinkBadge(siteName string) string {
	return strings.Replace(hotlinkSVG, "{{site}}", html.EscapeString(siteName), 1)
}

// isAllowedRequest 使用 Sec-Fetch-* 头部检测是否为合法请求
func isAllowedRequest(c *gin.Context) bool {
	switch c.GetHeader("Sec-Fetch-Site") {
	// 旧浏览器、地址栏直接访问、同源、同站
	case "", "none", "same-origin", "same-site":
		return true
	}
	// 允许在新标签页打开图片
	return c.GetHeader("Sec-Fetch-Mode") == "navigate"
}
