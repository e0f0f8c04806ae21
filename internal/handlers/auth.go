package handlers

import (
	"errors"
	"net/http"

	"inkwell/internal/apperr"
	"inkwell/internal/logging"
	"inkwell/internal/middleware"
	"inkwell/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	accounts *services.AccountService
	log      logging.Logger
}

func NewAuthHandler(accounts *services.AccountService, log logging.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, log: log}
}

func (h *AuthHandler) ShowSignup(c *gin.Context) {
	Render(c, http.StatusOK, "users/signup.html", gin.H{
		"Title":  "Sign up",
		"Form":   services.SignupInput{},
		"Errors": apperr.ValidationErrors(nil),
	})
}

func (h *AuthHandler) Signup(c *gin.Context) {
	in := services.SignupInput{
		FirstName: c.PostForm("first_name"),
		LastName:  c.PostForm("last_name"),
		Username:  c.PostForm("username"),
		Email:     c.PostForm("email"),
		Password1: c.PostForm("password1"),
		Password2: c.PostForm("password2"),
	}

	user, err := h.accounts.Signup(c.Request.Context(), in)
	if errs, ok := apperr.AsValidation(err); ok {
		in.Password1, in.Password2 = "", ""
		Render(c, http.StatusBadRequest, "users/signup.html", gin.H{"Title": "Sign up", "Form": in, "Errors": errs})
		return
	}
	if err != nil {
		fail(c, h.log, err)
		return
	}

	h.log.Info(c.Request.Context(), "user signed up", "user_id", user.ID, "username", user.Username)
	login(c, user.ID)
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	Render(c, http.StatusOK, "users/login.html", gin.H{"Title": "Log in", "Next": c.Query("next")})
}

func (h *AuthHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	next := c.PostForm("next")

	user, err := h.accounts.Authenticate(c.Request.Context(), username, c.PostForm("password"))
	if errors.Is(err, apperr.ErrInvalidCredentials) {
		Render(c, http.StatusUnauthorized, "users/login.html", gin.H{
			"Title":    "Log in",
			"Error":    "Please enter a correct username and password.",
			"Username": username,
			"Next":     next,
		})
		return
	}
	if err != nil {
		fail(c, h.log, err)
		return
	}

	login(c, user.ID)
	c.Redirect(http.StatusFound, safeNext(next))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/")
}

func login(c *gin.Context, userID uint) {
	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, userID)
	session.Save()
}
