package handlers

import (
	"net/http"

	"inkwell/internal/logging"
	"inkwell/internal/middleware"
	"inkwell/internal/services"

	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	feeds  *services.FeedService
	groups *services.GroupService
	log    logging.Logger
}

func NewFeedHandler(feeds *services.FeedService, groups *services.GroupService, log logging.Logger) *FeedHandler {
	return &FeedHandler{feeds: feeds, groups: groups, log: log}
}

// Index 首页 - 全部文章 (GET /)
func (h *FeedHandler) Index(c *gin.Context) {
	feed, err := h.feeds.Global(c.Request.Context(), pageParam(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "posts/index.html", gin.H{
		"Title":  "Latest posts",
		"Posts":  feed.Posts,
		"Page":   feed.Page,
		"Active": "index",
	})
}

// GroupPosts 分组下的文章列表 (GET /group/:slug/)
func (h *FeedHandler) GroupPosts(c *gin.Context) {
	feed, err := h.feeds.Group(c.Request.Context(), c.Param("slug"), pageParam(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "posts/group_list.html", gin.H{
		"Title": feed.Group.Title,
		"Group": feed.Group,
		"Posts": feed.Posts,
		"Page":  feed.Page,
	})
}

// Groups 所有分组 (GET /groups/)
func (h *FeedHandler) Groups(c *gin.Context) {
	groups, err := h.groups.List(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "posts/groups.html", gin.H{
		"Title":  "Groups",
		"Groups": groups,
		"Active": "groups",
	})
}

// Profile 用户主页 (GET /profile/:username/)
func (h *FeedHandler) Profile(c *gin.Context) {
	viewer := middleware.CurrentUser(c)
	feed, err := h.feeds.Profile(c.Request.Context(), viewer, c.Param("username"), pageParam(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "posts/profile.html", gin.H{
		"Title":       feed.Author.FullName(),
		"Author":      feed.Author,
		"Posts":       feed.Posts,
		"Page":        feed.Page,
		"PostCount":   feed.Page.Total,
		"Following":   feed.IsFollowing,
		"Followers":   feed.Followers,
		"FollowCount": feed.Following,
		"IsSelf":      viewer != nil && viewer.ID == feed.Author.ID,
	})
}

// FollowIndex 关注作者的文章 (GET /follow/)
func (h *FeedHandler) FollowIndex(c *gin.Context) {
	feed, err := h.feeds.Following(c.Request.Context(), middleware.CurrentUser(c), pageParam(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "posts/follow.html", gin.H{
		"Title":  "Following",
		"Posts":  feed.Posts,
		"Page":   feed.Page,
		"Active": "follow",
	})
}
