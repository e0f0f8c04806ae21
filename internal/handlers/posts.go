package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"inkwell/internal/apperr"
	"inkwell/internal/logging"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/services"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts  *services.PostService
	groups *services.GroupService
	log    logging.Logger
}

func NewPostHandler(posts *services.PostService, groups *services.GroupService, log logging.Logger) *PostHandler {
	return &PostHandler{posts: posts, groups: groups, log: log}
}

func detailURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}

// Detail 文章详情 (GET /posts/:id/)
func (h *PostHandler) Detail(c *gin.Context) {
	h.renderDetail(c, http.StatusOK, "", nil)
}

func (h *PostHandler) renderDetail(c *gin.Context, code int, commentText string, errs apperr.ValidationErrors) {
	id, ok := idParam(c, "id")
	if !ok {
		NotFound(c)
		return
	}
	ctx := c.Request.Context()

	post, err := h.posts.Get(ctx, id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	comments, err := h.posts.Comments(ctx, id)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	viewer := middleware.CurrentUser(c)
	Render(c, code, "posts/post_detail.html", gin.H{
		"Title":       post.String(),
		"Post":        post,
		"Comments":    comments,
		"CommentText": commentText,
		"Errors":      errs,
		"CanEdit":     viewer != nil && post.IsAuthor(viewer.ID),
	})
}

// ShowCreate 发布文章页面 (GET /create/)
func (h *PostHandler) ShowCreate(c *gin.Context) {
	h.renderForm(c, http.StatusOK, nil, "", nil, nil)
}

// Create 提交发布文章 (POST /create/)
func (h *PostHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	groupID, ok := optionalID(c.PostForm("group"))
	if !ok {
		errs := apperr.ValidationErrors{}
		errs.Add("group", "Select a valid choice. That choice is not one of the available choices.")
		h.renderForm(c, http.StatusBadRequest, nil, c.PostForm("text"), nil, errs)
		return
	}

	upload, closeFn, err := formUpload(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	defer closeFn()

	_, err = h.posts.Create(c.Request.Context(), user, services.CreatePostInput{
		Text:    c.PostForm("text"),
		GroupID: groupID,
		Image:   upload,
	})
	if errs, ok := apperr.AsValidation(err); ok {
		h.renderForm(c, http.StatusBadRequest, nil, c.PostForm("text"), groupID, errs)
		return
	}
	if err != nil {
		fail(c, h.log, err)
		return
	}

	c.Redirect(http.StatusFound, profileURL(user.Username))
}

// ShowEdit 编辑文章页面 (GET /posts/:id/edit/)
// Anyone but the author is sent back to the post.
func (h *PostHandler) ShowEdit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		NotFound(c)
		return
	}
	post, err := h.posts.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	user := middleware.CurrentUser(c)
	if user == nil || !post.IsAuthor(user.ID) {
		c.Redirect(http.StatusFound, detailURL(post.ID))
		return
	}
	h.renderForm(c, http.StatusOK, post, post.Text, post.GroupID, nil)
}

// Edit 提交文章更新 (POST /posts/:id/edit/)
func (h *PostHandler) Edit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		NotFound(c)
		return
	}
	ctx := c.Request.Context()

	groupID, ok := optionalID(c.PostForm("group"))
	if !ok {
		groupID = new(uint) // 不存在的分组，交给校验报错
	}
	upload, closeFn, err := formUpload(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	defer closeFn()

	post, err := h.posts.Edit(ctx, middleware.CurrentUser(c), id, services.EditPostInput{
		Text:       c.PostForm("text"),
		GroupID:    groupID,
		Image:      upload,
		ClearImage: c.PostForm("image-clear") != "",
	})
	switch {
	case errors.Is(err, apperr.ErrForbidden):
		c.Redirect(http.StatusFound, detailURL(id))
		return
	case err != nil:
		if errs, ok := apperr.AsValidation(err); ok {
			current, getErr := h.posts.Get(ctx, id)
			if getErr != nil {
				fail(c, h.log, getErr)
				return
			}
			h.renderForm(c, http.StatusBadRequest, current, c.PostForm("text"), groupID, errs)
			return
		}
		fail(c, h.log, err)
		return
	}

	c.Redirect(http.StatusFound, detailURL(post.ID))
}

// AddComment 发表评论 (POST /posts/:id/comment/)
func (h *PostHandler) AddComment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		NotFound(c)
		return
	}

	text := c.PostForm("text")
	_, err := h.posts.AddComment(c.Request.Context(), middleware.CurrentUser(c), id, services.CreateCommentInput{Text: text})
	if errs, ok := apperr.AsValidation(err); ok {
		h.renderDetail(c, http.StatusBadRequest, text, errs)
		return
	}
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.Redirect(http.StatusFound, detailURL(id))
}

// renderForm shows create_post.html; post is nil when creating.
func (h *PostHandler) renderForm(c *gin.Context, code int, post *models.Post, text string, groupID *uint, errs apperr.ValidationErrors) {
	groups, err := h.groups.List(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}

	var selected uint
	if groupID != nil {
		selected = *groupID
	}
	title := "New post"
	if post != nil {
		title = "Edit post"
	}
	Render(c, code, "posts/create_post.html", gin.H{
		"Title":    title,
		"IsEdit":   post != nil,
		"Post":     post,
		"Text":     text,
		"Groups":   groups,
		"Selected": selected,
		"Errors":   errs,
	})
}

// formUpload reads the optional "image" file. The returned func closes it.
func formUpload(c *gin.Context) (*services.Upload, func(), error) {
	noop := func() {}
	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, fmt.Errorf("read upload: %w", err)
	}
	if header.Size == 0 {
		return nil, noop, nil
	}

	f, err := header.Open()
	if err != nil {
		return nil, noop, fmt.Errorf("open upload: %w", err)
	}
	return &services.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	}, func() { f.Close() }, nil
}
