package services

import (
	"context"
	"fmt"
	"time"

	"inkwell/internal/apperr"
	"inkwell/internal/events"
	"inkwell/internal/logging"
	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowService manages the directed follower -> author relation.
type FollowService struct {
	db       *gorm.DB
	accounts *AccountService
	bus      events.Bus
	log      logging.Logger
}

func NewFollowService(db *gorm.DB, accounts *AccountService, bus events.Bus, log logging.Logger) *FollowService {
	return &FollowService{db: db, accounts: accounts, bus: bus, log: log}
}

// Follow makes viewer follow the user named username and returns that user.
// Following yourself is accepted and ignored; following twice keeps one row.
func (s *FollowService) Follow(ctx context.Context, viewer *models.User, username string) (*models.User, error) {
	if viewer == nil {
		return nil, apperr.ErrUnauthorized
	}
	author, err := s.accounts.ByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if author.ID == viewer.ID {
		return author, nil
	}

	var created bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "author_id"}},
			DoNothing: true,
		}).Create(&models.Follow{UserID: viewer.ID, AuthorID: author.ID})
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("follow %s: %w", username, err)
	}

	if created {
		publish(ctx, s.bus, s.log, events.SubjectFollowCreated, events.FollowEvent{
			UserID: viewer.ID, AuthorID: author.ID, Timestamp: time.Now(),
		})
	}
	return author, nil
}

// Unfollow removes the viewer -> username relation if it exists.
func (s *FollowService) Unfollow(ctx context.Context, viewer *models.User, username string) (*models.User, error) {
	if viewer == nil {
		return nil, apperr.ErrUnauthorized
	}
	author, err := s.accounts.ByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	var deleted bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND author_id = ?", viewer.ID, author.ID).Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unfollow %s: %w", username, err)
	}

	if deleted {
		publish(ctx, s.bus, s.log, events.SubjectFollowDeleted, events.FollowEvent{
			UserID: viewer.ID, AuthorID: author.ID, Timestamp: time.Now(),
		})
	}
	return author, nil
}

// IsFollowing is always false for guests.
func (s *FollowService) IsFollowing(ctx context.Context, viewer *models.User, authorID uint) (bool, error) {
	if viewer == nil {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", viewer.ID, authorID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check follow: %w", err)
	}
	return count > 0, nil
}

// Counts returns how many users follow userID and how many userID follows.
func (s *FollowService) Counts(ctx context.Context, userID uint) (followers, following int64, err error) {
	if err = s.db.WithContext(ctx).Model(&models.Follow{}).Where("author_id = ?", userID).Count(&followers).Error; err != nil {
		return 0, 0, fmt.Errorf("count followers: %w", err)
	}
	if err = s.db.WithContext(ctx).Model(&models.Follow{}).Where("user_id = ?", userID).Count(&following).Error; err != nil {
		return 0, 0, fmt.Errorf("count following: %w", err)
	}
	return followers, following, nil
}

// followedAuthors is a subquery selecting the authors userID follows.
func (s *FollowService) followedAuthors(ctx context.Context, userID uint) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Follow{}).Select("author_id").Where("user_id = ?", userID)
}
