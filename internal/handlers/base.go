package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"inkwell/internal/apperr"
	"inkwell/internal/logging"
	"inkwell/internal/middleware"
	"inkwell/internal/pagination"

	"github.com/gin-gonic/gin"
)

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
	}
	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

var errorTemplates = map[int]string{
	http.StatusNotFound:            "core/404.html",
	http.StatusForbidden:           "core/403.html",
	http.StatusInternalServerError: "core/500.html",
}

// RenderError shows the core error page for code.
func RenderError(c *gin.Context, code int) {
	name, ok := errorTemplates[code]
	if !ok {
		name = errorTemplates[http.StatusInternalServerError]
	}
	Render(c, code, name, gin.H{"Path": c.Request.URL.Path})
}

// NotFound renders the 404 page; used for unknown routes.
func NotFound(c *gin.Context) {
	RenderError(c, http.StatusNotFound)
}

// Forbidden renders the 403 page.
func Forbidden(c *gin.Context) {
	RenderError(c, http.StatusForbidden)
}

// fail maps a service error to a response. Unexpected errors are logged and become a 500.
func fail(c *gin.Context, log logging.Logger, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		RenderError(c, http.StatusNotFound)
	case errors.Is(err, apperr.ErrForbidden):
		RenderError(c, http.StatusForbidden)
	case errors.Is(err, apperr.ErrUnauthorized):
		c.Redirect(http.StatusFound, middleware.LoginURL(c.Request.URL.RequestURI()))
	default:
		log.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		_ = c.Error(err)
		RenderError(c, http.StatusInternalServerError)
	}
}

func pageParam(c *gin.Context) int {
	return pagination.ParsePage(c.Query("page"))
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// optionalID reads an id from a form value; empty means none.
func optionalID(raw string) (*uint, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	v := uint(id)
	return &v, true
}

// safeNext accepts only local paths as a post-login redirect target.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
