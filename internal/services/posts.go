package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inkwell/internal/apperr"
	"inkwell/internal/events"
	"inkwell/internal/logging"
	"inkwell/internal/media"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// PostService creates and edits posts and their comments.
type PostService struct {
	db    *gorm.DB
	media media.Store
	bus   events.Bus
	log   logging.Logger
	now   func() time.Time
}

func NewPostService(db *gorm.DB, store media.Store, bus events.Bus, log logging.Logger) *PostService {
	return &PostService{
		db:    db,
		media: store,
		bus:   bus,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Get loads a post with its author, group and comment count.
func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Preload("Author").Preload("Group").First(&post, id).Error
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("post %d", id))
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", id).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	post.CommentCount = int(count)
	return &post, nil
}

// Comments lists a post's comments, oldest first.
func (s *PostService) Comments(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).Preload("Author").
		Where("post_id = ?", postID).
		Order("created ASC").Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// Create publishes a new post by author. pub_date is set here and never changes.
func (s *PostService) Create(ctx context.Context, author *models.User, in CreatePostInput) (*models.Post, error) {
	if author == nil {
		return nil, apperr.ErrUnauthorized
	}
	in.Text = strings.TrimSpace(in.Text)
	if err := s.validatePost(ctx, in, in.GroupID, in.Image); err != nil {
		return nil, err
	}

	imageKey, err := s.saveImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Text:     in.Text,
		PubDate:  s.now(),
		AuthorID: author.ID,
		GroupID:  in.GroupID,
		Image:    imageKey,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(post).Error
	})
	if err != nil {
		s.dropImage(ctx, imageKey)
		return nil, fmt.Errorf("create post: %w", err)
	}
	post.Author = *author

	publish(ctx, s.bus, s.log, events.SubjectPostCreated, events.PostEvent{
		PostID: post.ID, AuthorID: author.ID, GroupID: post.GroupID, Timestamp: post.PubDate,
	})
	return post, nil
}

// Edit changes text, group and image of a post. Only the author may edit;
// anyone else gets ErrForbidden and nothing is written.
func (s *PostService) Edit(ctx context.Context, editor *models.User, postID uint, in EditPostInput) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("post %d", postID))
	}
	if editor == nil || !post.IsAuthor(editor.ID) {
		return nil, apperr.ErrForbidden
	}

	in.Text = strings.TrimSpace(in.Text)
	if err := s.validatePost(ctx, in, in.GroupID, in.Image); err != nil {
		return nil, err
	}

	newKey, err := s.saveImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}
	oldKey := post.Image
	switch {
	case newKey != "":
		post.Image = newKey
	case in.ClearImage:
		post.Image = ""
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&post).Select("text", "group_id", "image").Updates(map[string]any{
			"text":     in.Text,
			"group_id": in.GroupID,
			"image":    post.Image,
		}).Error
	})
	if err != nil {
		s.dropImage(ctx, newKey)
		return nil, fmt.Errorf("update post %d: %w", postID, err)
	}
	if oldKey != "" && oldKey != post.Image {
		s.dropImage(ctx, oldKey)
	}

	post.Text = in.Text
	post.GroupID = in.GroupID
	publish(ctx, s.bus, s.log, events.SubjectPostUpdated, events.PostEvent{
		PostID: post.ID, AuthorID: post.AuthorID, GroupID: post.GroupID, Timestamp: s.now(),
	})
	return &post, nil
}

// AddComment attaches a comment by author to an existing post.
func (s *PostService) AddComment(ctx context.Context, author *models.User, postID uint, in CreateCommentInput) (*models.Comment, error) {
	if author == nil {
		return nil, apperr.ErrUnauthorized
	}
	in.Text = strings.TrimSpace(in.Text)
	if err := Validate(in); err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: postID, AuthorID: author.ID, Text: in.Text}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("post %d: %w", postID, apperr.ErrNotFound)
		}
		return tx.Create(comment).Error
	})
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	comment.Author = *author

	publish(ctx, s.bus, s.log, events.SubjectCommentCreated, events.CommentEvent{
		CommentID: comment.ID, PostID: postID, AuthorID: author.ID, Timestamp: comment.Created,
	})
	return comment, nil
}

// UploadImage stores an image for inline use in post text and returns its URL.
func (s *PostService) UploadImage(ctx context.Context, uploader *models.User, up *Upload) (string, error) {
	if uploader == nil {
		return "", apperr.ErrUnauthorized
	}
	verr := apperr.ValidationErrors{}
	if up == nil || up.Body == nil {
		verr.Add("image", "This field is required.")
	} else if err := checkImage(up, verr); err != nil {
		return "", err
	}
	if err := verr.OrNil(); err != nil {
		return "", err
	}

	key, err := s.saveImage(ctx, up)
	if err != nil {
		return "", err
	}
	s.log.Info(ctx, "inline image uploaded", "user_id", uploader.ID, "key", key)
	return s.ImageURL(key), nil
}

// ImageURL maps a stored image key to its public URL.
func (s *PostService) ImageURL(key string) string {
	if key == "" || s.media == nil {
		return ""
	}
	return s.media.URL(key)
}

func (s *PostService) validatePost(ctx context.Context, in any, groupID *uint, image *Upload) error {
	verr := apperr.ValidationErrors{}
	if err := Validate(in); err != nil {
		v, ok := apperr.AsValidation(err)
		if !ok {
			return err
		}
		verr = v
	}

	if groupID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", *groupID).Count(&count).Error; err != nil {
			return fmt.Errorf("check group: %w", err)
		}
		if count == 0 {
			verr.Add("group", "Select a valid choice. That choice is not one of the available choices.")
		}
	}

	if image != nil && image.Body != nil {
		if err := checkImage(image, verr); err != nil {
			return err
		}
	}
	return verr.OrNil()
}

// checkImage sniffs up and replaces the client supplied content type with the
// detected one. Problems with the file itself land in verr.
func checkImage(up *Upload, verr apperr.ValidationErrors) error {
	if up.Size > media.MaxImageSize {
		verr.Add("image", "The image is larger than 10MB.")
		return nil
	}
	contentType, body, err := media.Sniff(up.Body)
	if errors.Is(err, media.ErrNotImage) {
		verr.Add("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		return nil
	}
	if err != nil {
		return err
	}
	up.ContentType = contentType
	up.Body = body
	return nil
}

func (s *PostService) saveImage(ctx context.Context, up *Upload) (string, error) {
	if up == nil || up.Body == nil {
		return "", nil
	}
	if s.media == nil {
		return "", errors.New("no media store configured")
	}
	key, err := s.media.Save(ctx, up.Body)
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return key, nil
}

func (s *PostService) dropImage(ctx context.Context, key string) {
	if key == "" || s.media == nil {
		return
	}
	if err := s.media.Delete(ctx, key); err != nil {
		s.log.Warn(ctx, "delete image failed", "key", key, "error", err)
	}
}
