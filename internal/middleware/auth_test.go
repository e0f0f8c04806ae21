package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkwell/internal/apperr"
	"inkwell/internal/auth"
	"inkwell/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[uint]*models.User

func (f fakeUsers) ByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, apperr.ErrNotFound
}

func newRouter(users fakeUsers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("secret"))))
	r.Use(LoadUser(users))

	r.GET("/login-as/:name", func(c *gin.Context) {
		for id, u := range users {
			if u.Username == c.Param("name") {
				s := sessions.Default(c)
				s.Set(SessionUserKey, id)
				_ = s.Save()
			}
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/whoami", func(c *gin.Context) {
		if u := CurrentUser(c); u != nil {
			c.String(http.StatusOK, u.Username)
			return
		}
		c.String(http.StatusOK, "guest")
	})
	r.GET("/create/", AuthRequired(), func(c *gin.Context) { c.String(http.StatusOK, "form") })
	r.GET("/staff/", StaffRequired(func(c *gin.Context) { c.Status(http.StatusForbidden) }), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func do(r http.Handler, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginURL_KeepsSlashes(t *testing.T) {
	assert.Equal(t, "/auth/login/?next=/create/", LoginURL("/create/"))
	assert.Equal(t, "/auth/login/?next=/follow/%3Fpage%3D2", LoginURL("/follow/?page=2"))
}

func TestAuthRequired_RedirectsGuest(t *testing.T) {
	r := newRouter(fakeUsers{})
	w := do(r, "/create/", nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next=/create/", w.Header().Get("Location"))
}

func TestLoadUser_FromSession(t *testing.T) {
	users := fakeUsers{1: {ID: 1, Username: "ada"}}
	r := newRouter(users)

	login := do(r, "/login-as/ada", nil)
	cookies := login.Result().Cookies()
	require.NotEmpty(t, cookies)

	assert.Equal(t, "ada", do(r, "/whoami", cookies).Body.String())
	assert.Equal(t, http.StatusOK, do(r, "/create/", cookies).Code)
	assert.Equal(t, "guest", do(r, "/whoami", nil).Body.String())
}

func TestStaffRequired(t *testing.T) {
	users := fakeUsers{1: {ID: 1, Username: "ada"}, 2: {ID: 2, Username: "root", IsStaff: true}}
	r := newRouter(users)

	ada := do(r, "/login-as/ada", nil).Result().Cookies()
	root := do(r, "/login-as/root", nil).Result().Cookies()

	assert.Equal(t, http.StatusForbidden, do(r, "/staff/", ada).Code)
	assert.Equal(t, http.StatusOK, do(r, "/staff/", root).Code)
	assert.Equal(t, http.StatusFound, do(r, "/staff/", nil).Code)
}

func TestBearerAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := auth.NewTokens("secret", time.Hour)
	users := fakeUsers{7: {ID: 7, Username: "ada"}}

	r := gin.New()
	api := r.Group("/api", BearerAuth(tokens, users))
	api.GET("/open", func(c *gin.Context) {
		name := "guest"
		if u := CurrentUser(c); u != nil {
			name = u.Username
		}
		c.String(http.StatusOK, name)
	})
	api.GET("/closed", APIAuthRequired(), func(c *gin.Context) { c.Status(http.StatusOK) })

	signed, _, err := tokens.Issue(users[7])
	require.NoError(t, err)

	call := func(path, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, "guest", call("/api/open", "").Body.String())
	assert.Equal(t, "ada", call("/api/open", "Bearer "+signed).Body.String())
	assert.Equal(t, http.StatusUnauthorized, call("/api/open", "Bearer junk").Code)
	assert.Equal(t, http.StatusUnauthorized, call("/api/open", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, call("/api/closed", "").Code)
	assert.Equal(t, http.StatusOK, call("/api/closed", "Bearer "+signed).Code)
}
