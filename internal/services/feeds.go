package services

import (
	"context"
	"fmt"

	"inkwell/internal/apperr"
	"inkwell/internal/models"
	"inkwell/internal/pagination"

	"gorm.io/gorm"
)

// Feed is one page of posts plus whatever the context needs to render it.
type Feed struct {
	Posts []models.Post
	Page  pagination.Page

	Group *models.Group // group feed only

	// profile feed only
	Author      *models.User
	IsFollowing bool
	Followers   int64
	Following   int64
}

// FeedService assembles the global, group, profile and following feeds.
// Every feed is ordered newest first, ties broken by id.
type FeedService struct {
	db       *gorm.DB
	accounts *AccountService
	groups   *GroupService
	follows  *FollowService
	perPage  int
}

func NewFeedService(db *gorm.DB, accounts *AccountService, groups *GroupService, follows *FollowService, perPage int) *FeedService {
	return &FeedService{db: db, accounts: accounts, groups: groups, follows: follows, perPage: perPage}
}

func (s *FeedService) PerPage() int { return s.perPage }

// Global lists every post.
func (s *FeedService) Global(ctx context.Context, page int) (*Feed, error) {
	posts, p, err := s.list(ctx, nil, page)
	if err != nil {
		return nil, err
	}
	return &Feed{Posts: posts, Page: p}, nil
}

// Group lists the posts of the group with the given slug.
func (s *FeedService) Group(ctx context.Context, slug string, page int) (*Feed, error) {
	group, err := s.groups.BySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	posts, p, err := s.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("group_id = ?", group.ID)
	}, page)
	if err != nil {
		return nil, err
	}
	return &Feed{Posts: posts, Page: p, Group: group}, nil
}

// Profile lists the posts written by username and whether viewer follows them.
func (s *FeedService) Profile(ctx context.Context, viewer *models.User, username string, page int) (*Feed, error) {
	author, err := s.accounts.ByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	posts, p, err := s.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("author_id = ?", author.ID)
	}, page)
	if err != nil {
		return nil, err
	}

	feed := &Feed{Posts: posts, Page: p, Author: author}
	if feed.IsFollowing, err = s.follows.IsFollowing(ctx, viewer, author.ID); err != nil {
		return nil, err
	}
	if feed.Followers, feed.Following, err = s.follows.Counts(ctx, author.ID); err != nil {
		return nil, err
	}
	return feed, nil
}

// Following lists posts by the authors viewer follows. Guests get ErrUnauthorized.
func (s *FeedService) Following(ctx context.Context, viewer *models.User, page int) (*Feed, error) {
	if viewer == nil {
		return nil, apperr.ErrUnauthorized
	}
	posts, p, err := s.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("author_id IN (?)", s.follows.followedAuthors(ctx, viewer.ID))
	}, page)
	if err != nil {
		return nil, err
	}
	return &Feed{Posts: posts, Page: p}, nil
}

// Latest returns up to n of the newest posts, for syndication.
func (s *FeedService) Latest(ctx context.Context, n int) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Preload("Author").Preload("Group").
		Order("pub_date DESC").Order("id DESC").
		Limit(n).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("latest posts: %w", err)
	}
	return posts, nil
}

// list counts the filtered posts, clamps the requested page and loads it.
func (s *FeedService) list(ctx context.Context, filter func(*gorm.DB) *gorm.DB, page int) ([]models.Post, pagination.Page, error) {
	if filter == nil {
		filter = func(q *gorm.DB) *gorm.DB { return q }
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, pagination.Page{}, fmt.Errorf("count posts: %w", err)
	}

	p := pagination.New(int(total), s.perPage, page)
	posts := make([]models.Post, 0, p.Len())
	if total > 0 {
		err := s.db.WithContext(ctx).Scopes(filter).
			Preload("Author").Preload("Group").
			Order("pub_date DESC").Order("id DESC").
			Offset(p.Offset()).Limit(p.Limit()).
			Find(&posts).Error
		if err != nil {
			return nil, pagination.Page{}, fmt.Errorf("list posts: %w", err)
		}
	}

	if err := fillCommentCounts(ctx, s.db, posts); err != nil {
		return nil, pagination.Page{}, err
	}
	return posts, p, nil
}

// fillCommentCounts 批量填充帖子的评论数量
func fillCommentCounts(ctx context.Context, db *gorm.DB, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	postIDs := make([]uint, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	type countResult struct {
		PostID uint
		Count  int
	}
	var results []countResult
	err := db.WithContext(ctx).Model(&models.Comment{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&results).Error
	if err != nil {
		return fmt.Errorf("count comments: %w", err)
	}

	countMap := make(map[uint]int, len(results))
	for _, r := range results {
		countMap[r.PostID] = r.Count
	}
	for i := range posts {
		posts[i].CommentCount = countMap[posts[i].ID]
	}
	return nil
}
