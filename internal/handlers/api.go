package handlers

import (
	"errors"
	"net/http"
	"time"

	"inkwell/internal/apperr"
	"inkwell/internal/auth"
	"inkwell/internal/logging"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/services"

	"github.com/gin-gonic/gin"
)

// APIHandler serves the read-mostly JSON API under /api/v1.
type APIHandler struct {
	feeds    *services.FeedService
	follows  *services.FollowService
	accounts *services.AccountService
	posts    *services.PostService
	tokens   *auth.Tokens
	log      logging.Logger
}

func NewAPIHandler(feeds *services.FeedService, follows *services.FollowService, accounts *services.AccountService,
	posts *services.PostService, tokens *auth.Tokens, log logging.Logger) *APIHandler {
	return &APIHandler{feeds: feeds, follows: follows, accounts: accounts, posts: posts, tokens: tokens, log: log}
}

type apiPost struct {
	ID           uint      `json:"id"`
	Text         string    `json:"text"`
	PubDate      time.Time `json:"pub_date"`
	Author       string    `json:"author"`
	Group        string    `json:"group,omitempty"`
	Image        string    `json:"image,omitempty"`
	CommentCount int       `json:"comment_count"`
}

type apiFeed struct {
	Results     []apiPost `json:"results"`
	Page        int       `json:"page"`
	NumPages    int       `json:"num_pages"`
	Count       int       `json:"count"`
	Group       string    `json:"group,omitempty"`
	Author      string    `json:"author,omitempty"`
	IsFollowing *bool     `json:"is_following,omitempty"`
}

func (h *APIHandler) toJSON(feed *services.Feed) apiFeed {
	out := apiFeed{
		Results:  make([]apiPost, 0, len(feed.Posts)),
		Page:     feed.Page.Number,
		NumPages: feed.Page.NumPages,
		Count:    feed.Page.Total,
	}
	for _, p := range feed.Posts {
		out.Results = append(out.Results, h.postJSON(p))
	}
	if feed.Group != nil {
		out.Group = feed.Group.Slug
	}
	if feed.Author != nil {
		out.Author = feed.Author.Username
		following := feed.IsFollowing
		out.IsFollowing = &following
	}
	return out
}

func (h *APIHandler) postJSON(p models.Post) apiPost {
	out := apiPost{
		ID:           p.ID,
		Text:         p.Text,
		PubDate:      p.PubDate,
		Author:       p.Author.Username,
		Image:        h.posts.ImageURL(p.Image),
		CommentCount: p.CommentCount,
	}
	if p.Group != nil {
		out.Group = p.Group.Slug
	}
	return out
}

func (h *APIHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperr.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		if v, ok := apperr.AsValidation(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "fields": v})
			return
		}
		h.log.Error(c.Request.Context(), "api request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Token 用户名密码换取 JWT (POST /api/v1/token)
func (h *APIHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, apperr.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	token, expires, err := h.tokens.Issue(user)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expires})
}

// Posts 全部文章 (GET /api/v1/posts)
func (h *APIHandler) Posts(c *gin.Context) {
	feed, err := h.feeds.Global(c.Request.Context(), pageParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toJSON(feed))
}

// GroupPosts (GET /api/v1/groups/:slug/posts)
func (h *APIHandler) GroupPosts(c *gin.Context) {
	feed, err := h.feeds.Group(c.Request.Context(), c.Param("slug"), pageParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toJSON(feed))
}

// ProfilePosts (GET /api/v1/profiles/:username/posts)
func (h *APIHandler) ProfilePosts(c *gin.Context) {
	feed, err := h.feeds.Profile(c.Request.Context(), middleware.CurrentUser(c), c.Param("username"), pageParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toJSON(feed))
}

// FollowPosts (GET /api/v1/follow/posts)
func (h *APIHandler) FollowPosts(c *gin.Context) {
	feed, err := h.feeds.Following(c.Request.Context(), middleware.CurrentUser(c), pageParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toJSON(feed))
}

// Follow (POST /api/v1/profiles/:username/follow)
func (h *APIHandler) Follow(c *gin.Context) {
	ctx := c.Request.Context()
	viewer := middleware.CurrentUser(c)
	author, err := h.follows.Follow(ctx, viewer, c.Param("username"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.followState(c, viewer, author)
}

// Unfollow (DELETE /api/v1/profiles/:username/follow)
func (h *APIHandler) Unfollow(c *gin.Context) {
	ctx := c.Request.Context()
	viewer := middleware.CurrentUser(c)
	author, err := h.follows.Unfollow(ctx, viewer, c.Param("username"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.followState(c, viewer, author)
}

func (h *APIHandler) followState(c *gin.Context, viewer, author *models.User) {
	following, err := h.follows.IsFollowing(c.Request.Context(), viewer, author.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"author": author.Username, "following": following})
}
