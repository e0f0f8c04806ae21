// Package events publishes domain events and fans out control signals such
// as "clear the page cache" to every replica.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Subjects
const (
	SubjectPostCreated    = "inkwell.post.created"
	SubjectPostUpdated    = "inkwell.post.updated"
	SubjectCommentCreated = "inkwell.comment.created"
	SubjectFollowCreated  = "inkwell.follow.created"
	SubjectFollowDeleted  = "inkwell.follow.deleted"
	SubjectCacheClear     = "inkwell.cache.clear"
)

// Bus publishes JSON payloads on subjects and delivers them to subscribers.
type Bus interface {
	Publish(ctx context.Context, subject string, payload any) error
	// Subscribe registers fn for subject and returns a function that removes it.
	Subscribe(subject string, fn func(data []byte)) (func(), error)
	// QueueSubscribe delivers each message to only one member of queue, so
	// work done per event happens once across replicas.
	QueueSubscribe(subject, queue string, fn func(data []byte)) (func(), error)
	Close()
}

type PostEvent struct {
	PostID    uint      `json:"post_id"`
	AuthorID  uint      `json:"author_id"`
	GroupID   *uint     `json:"group_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type CommentEvent struct {
	CommentID uint      `json:"comment_id"`
	PostID    uint      `json:"post_id"`
	AuthorID  uint      `json:"author_id"`
	Timestamp time.Time `json:"timestamp"`
}

type FollowEvent struct {
	UserID    uint      `json:"user_id"`
	AuthorID  uint      `json:"author_id"`
	Timestamp time.Time `json:"timestamp"`
}

type CacheClearEvent struct {
	RequestedBy string    `json:"requested_by"`
	Timestamp   time.Time `json:"timestamp"`
}

func encode(subject string, payload any) ([]byte, error) {
	if b, ok := payload.([]byte); ok {
		return b, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", subject, err)
	}
	return data, nil
}
