package router

import (
	"fmt"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/events"
	"inkwell/internal/handlers"
	"inkwell/internal/logging"
	"inkwell/internal/middleware"
	"inkwell/internal/services"
	"inkwell/web"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// Dependencies is everything the HTTP layer needs, built once in main.
type Dependencies struct {
	Config   *config.Config
	Log      logging.Logger
	Accounts *services.AccountService
	Groups   *services.GroupService
	Follows  *services.FollowService
	Feeds    *services.FeedService
	Posts    *services.PostService
	Notes    *services.NotificationService
	Tokens   *auth.Tokens
	Pages    cache.Store
	Bus      events.Bus
}

// New builds the engine with sessions, templates and every route.
func New(d Dependencies) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	store := cookie.NewStore([]byte(d.Config.Session.Secret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: 14 * 24 * 3600})
	r.Use(sessions.Sessions(d.Config.Session.Name, store))

	renderer, err := web.LoadTemplates(web.Funcs(d.Config.Site.Name, d.Posts.ImageURL))
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	r.HTMLRender = renderer

	r.Use(middleware.LoadUser(d.Accounts))
	RegisterRoutes(r, d)
	r.NoRoute(handlers.NotFound)
	return r, nil
}

// indexKey caches the index separately for guests and for each signed-in user,
// so the navigation bar never leaks across viewers.
func indexKey(c *gin.Context) string {
	viewer := "anon"
	if u := middleware.CurrentUser(c); u != nil {
		viewer = fmt.Sprintf("u%d", u.ID)
	}
	return cache.RequestKey("index", viewer, c.Request)
}

func RegisterRoutes(r *gin.Engine, d Dependencies) {
	// Handlers
	feedHandler := handlers.NewFeedHandler(d.Feeds, d.Groups, d.Log)
	postHandler := handlers.NewPostHandler(d.Posts, d.Groups, d.Log)
	followHandler := handlers.NewFollowHandler(d.Follows, d.Log)
	authHandler := handlers.NewAuthHandler(d.Accounts, d.Log)
	adminHandler := handlers.NewAdminHandler(d.Pages, d.Bus, d.Log)
	apiHandler := handlers.NewAPIHandler(d.Feeds, d.Follows, d.Accounts, d.Posts, d.Tokens, d.Log)
	seoHandler := handlers.NewSEOHandler(d.Feeds, d.Groups, d.Config.Site, d.Log)
	imageHandler := handlers.NewImageHandler(d.Posts, d.Config.Site.Name, d.Log)
	notificationHandler := handlers.NewNotificationHandler(d.Notes, d.Log)

	// 本地存储的上传图片，带防盗链检查
	if d.Config.Media.Backend == "local" {
		media := r.Group(d.Config.Media.URLPrefix, imageHandler.Guard)
		media.Static("/", d.Config.Media.Dir)
	}

	// 公共路由 (Public Routes)
	r.GET("/", cache.Page(d.Pages, d.Config.Cache.TTL, indexKey, d.Log), feedHandler.Index) // 首页，短时缓存
	r.GET("/group/:slug/", feedHandler.GroupPosts)                                          // 分组文章
	r.GET("/groups/", feedHandler.Groups)                                                   // 全部分组
	r.GET("/profile/:username/", feedHandler.Profile)                                       // 用户主页
	r.GET("/posts/:id/", postHandler.Detail)                                                // 文章详情

	// SEO
	r.GET("/robots.txt", seoHandler.RobotsTxt)
	r.GET("/sitemap.xml", seoHandler.SitemapXML)
	r.GET("/feed.xml", seoHandler.RSSFeed)

	r.GET("/auth/signup/", authHandler.ShowSignup) // 注册页面
	r.POST("/auth/signup/", authHandler.Signup)    // 提交注册
	r.GET("/auth/login/", authHandler.ShowLogin)   // 登录页面
	r.POST("/auth/login/", authHandler.Login)      // 提交登录
	r.GET("/auth/logout/", authHandler.Logout)     // 退出登录

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/create/", postHandler.ShowCreate)                     // 发布文章页面
		authorized.POST("/create/", postHandler.Create)                        // 提交发布文章
		authorized.GET("/posts/:id/edit/", postHandler.ShowEdit)               // 编辑文章页面
		authorized.POST("/posts/:id/edit/", postHandler.Edit)                  // 提交文章更新
		authorized.POST("/posts/:id/comment/", postHandler.AddComment)         // 发表评论
		authorized.POST("/upload/image", imageHandler.Upload)                  // 编辑器图片上传
		authorized.GET("/follow/", feedHandler.FollowIndex)                    // 关注作者的文章
		authorized.GET("/profile/:username/follow/", followHandler.Follow)     // 关注
		authorized.GET("/profile/:username/unfollow/", followHandler.Unfollow) // 取消关注

		authorized.GET("/notifications/", notificationHandler.List)              // 通知列表
		authorized.POST("/notifications/read-all/", notificationHandler.ReadAll) // 全部已读
		authorized.POST("/notifications/:id/read/", notificationHandler.Read)    // 单条已读
	}

	// 运维路由 (Staff Routes)
	admin := r.Group("/admin")
	admin.Use(middleware.StaffRequired(handlers.Forbidden))
	{
		admin.POST("/cache/clear/", adminHandler.ClearCache) // 清空首页缓存
	}

	// JSON API
	api := r.Group("/api/v1")
	api.Use(middleware.BearerAuth(d.Tokens, d.Accounts))
	{
		api.POST("/token", apiHandler.Token)
		api.GET("/posts", apiHandler.Posts)
		api.GET("/groups/:slug/posts", apiHandler.GroupPosts)
		api.GET("/profiles/:username/posts", apiHandler.ProfilePosts)

		private := api.Group("")
		private.Use(middleware.APIAuthRequired())
		private.GET("/follow/posts", apiHandler.FollowPosts)
		private.POST("/profiles/:username/follow", apiHandler.Follow)
		private.DELETE("/profiles/:username/follow", apiHandler.Unfollow)
	}
}
