package services

import (
	"context"
	"encoding/json"
	"fmt"

	"inkwell/internal/apperr"
	"inkwell/internal/events"
	"inkwell/internal/logging"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// notificationQueue groups the consumers so each event is stored once
// however many replicas are running.
const notificationQueue = "inkwell.notifications"

const notificationLimit = 50

// NotificationService turns comment and follow events into per-user notifications.
type NotificationService struct {
	db  *gorm.DB
	log logging.Logger
}

func NewNotificationService(db *gorm.DB, log logging.Logger) *NotificationService {
	return &NotificationService{db: db, log: log}
}

// Subscribe starts consuming events from bus. The returned func stops it.
func (s *NotificationService) Subscribe(bus events.Bus) (func(), error) {
	stopComments, err := bus.QueueSubscribe(events.SubjectCommentCreated, notificationQueue, func(data []byte) {
		var ev events.CommentEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.log.Warn(context.Background(), "bad comment event", "error", err)
			return
		}
		s.handle(s.onComment(context.Background(), ev), events.SubjectCommentCreated)
	})
	if err != nil {
		return nil, err
	}

	stopFollows, err := bus.QueueSubscribe(events.SubjectFollowCreated, notificationQueue, func(data []byte) {
		var ev events.FollowEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.log.Warn(context.Background(), "bad follow event", "error", err)
			return
		}
		s.handle(s.onFollow(context.Background(), ev), events.SubjectFollowCreated)
	})
	if err != nil {
		stopComments()
		return nil, err
	}

	return func() {
		stopComments()
		stopFollows()
	}, nil
}

func (s *NotificationService) handle(err error, subject string) {
	if err != nil {
		s.log.Error(context.Background(), "store notification failed", "subject", subject, "error", err)
	}
}

// onComment notifies the post author, unless they commented themselves.
func (s *NotificationService) onComment(ctx context.Context, ev events.CommentEvent) error {
	var post models.Post
	if err := s.db.WithContext(ctx).Select("id", "author_id").First(&post, ev.PostID).Error; err != nil {
		return notFound(err, "post")
	}
	if post.AuthorID == ev.AuthorID {
		return nil
	}
	return s.db.WithContext(ctx).Create(&models.Notification{
		UserID:  post.AuthorID,
		ActorID: ev.AuthorID,
		Type:    models.NotificationTypeComment,
		PostID:  &post.ID,
	}).Error
}

func (s *NotificationService) onFollow(ctx context.Context, ev events.FollowEvent) error {
	return s.db.WithContext(ctx).Create(&models.Notification{
		UserID:  ev.AuthorID,
		ActorID: ev.UserID,
		Type:    models.NotificationTypeFollow,
	}).Error
}

// List returns the user's most recent notifications, newest first.
func (s *NotificationService) List(ctx context.Context, user *models.User) ([]models.Notification, error) {
	if user == nil {
		return nil, apperr.ErrUnauthorized
	}
	var out []models.Notification
	err := s.db.WithContext(ctx).Preload("Actor").Preload("Post").
		Where("user_id = ?", user.ID).
		Order("created_at DESC").Order("id DESC").
		Limit(notificationLimit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (s *NotificationService) Unread(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// Read marks one of the user's notifications as read.
func (s *NotificationService) Read(ctx context.Context, user *models.User, id uint) error {
	if user == nil {
		return apperr.ErrUnauthorized
	}
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, user.ID).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("read notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("notification %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (s *NotificationService) ReadAll(ctx context.Context, user *models.User) error {
	if user == nil {
		return apperr.ErrUnauthorized
	}
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Update("is_read", true).Error
	if err != nil {
		return fmt.Errorf("read all notifications: %w", err)
	}
	return nil
}
