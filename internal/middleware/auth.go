package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	CheckUserKey   = "user"
	SessionUserKey = "user_id"
	LoginPath      = "/auth/login/"
)

// UserLoader resolves a user id to a user.
type UserLoader interface {
	ByID(ctx context.Context, id uint) (*models.User, error)
}

// LoadUser retrieves user from session and sets to context.
// A stale session (user deleted) is cleared.
func LoadUser(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := sessionUserID(session.Get(SessionUserKey))
		if ok {
			user, err := users.ByID(c.Request.Context(), id)
			if err == nil {
				c.Set(CheckUserKey, user)
			} else {
				session.Delete(SessionUserKey)
				_ = session.Save()
			}
		}
		c.Next()
	}
}

func sessionUserID(v any) (uint, bool) {
	switch id := v.(type) {
	case uint:
		return id, id != 0
	case int:
		return uint(id), id > 0
	case int64:
		return uint(id), id > 0
	case uint64:
		return uint(id), id != 0
	default:
		return 0, false
	}
}

// CurrentUser returns the viewer, or nil for a guest.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// LoginURL builds the login redirect that brings the visitor back to next.
func LoginURL(next string) string {
	// next 中的斜杠保持原样，登录链接更易读
	return LoginPath + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// AuthRequired sends guests to the login page with a next parameter.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusFound, LoginURL(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// StaffRequired lets only staff users through; others get 403.
func StaffRequired(forbidden gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.Redirect(http.StatusFound, LoginURL(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		if !user.IsStaff {
			forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// BearerAuth resolves an "Authorization: Bearer <jwt>" header into the viewer.
// Requests without a header continue as guests; a bad token is rejected with 401.
func BearerAuth(tokens *auth.Tokens, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header must be a bearer token"})
			return
		}
		id, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		user, err := users.ByID(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(CheckUserKey, user)
		c.Next()
	}
}

// APIAuthRequired rejects guests with a JSON 401.
func APIAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
			return
		}
		c.Next()
	}
}
