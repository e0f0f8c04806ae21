package models

import (
	"time"
	"unicode/utf8"
)

type Post struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"autoCreateTime;not null;index" json:"pub_date"`
	AuthorID uint      `gorm:"not null;index" json:"-"`
	Author   User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	GroupID  *uint     `gorm:"index" json:"-"` // Nullable, posts may live outside any group
	Group    *Group    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"group,omitempty"`
	Image    string    `gorm:"size:255" json:"image,omitempty"` // media storage key

	// 非数据库字段，查询时填充
	CommentCount int `gorm:"-" json:"comment_count"`
}

const postPreviewLen = 15

// String returns the first characters of the text, the way posts are listed in admin tools.
func (p Post) String() string {
	if utf8.RuneCountInString(p.Text) <= postPreviewLen {
		return p.Text
	}
	return string([]rune(p.Text)[:postPreviewLen])
}

// IsAuthor reports whether userID wrote the post.
func (p Post) IsAuthor(userID uint) bool {
	return userID != 0 && p.AuthorID == userID
}
