// Package testutil opens throwaway databases and builds fixtures for tests.
package testutil

import (
	"fmt"
	"inkwell/internal/config"
	"inkwell/internal/db"
	"inkwell/internal/models"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// NewDB returns a migrated in-memory sqlite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=1", name, dbSeq.Add(1))

	conn, err := db.Open(config.Database{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("test db handle: %v", err)
	}
	// One connection keeps the in-memory database alive for the whole test.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return conn
}

// CreateUser inserts a user with the given username and an unusable password.
func CreateUser(t *testing.T, conn *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "!"}
	if err := conn.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateGroup inserts a group.
func CreateGroup(t *testing.T, conn *gorm.DB, title, slug string) *models.Group {
	t.Helper()
	g := &models.Group{Title: title, Slug: slug, Description: title + " description"}
	if err := conn.Create(g).Error; err != nil {
		t.Fatalf("create group %s: %v", slug, err)
	}
	return g
}

// CreatePost inserts a post authored by author, optionally in group, published at pubDate.
func CreatePost(t *testing.T, conn *gorm.DB, author *models.User, group *models.Group, text string, pubDate time.Time) *models.Post {
	t.Helper()
	p := &models.Post{Text: text, AuthorID: author.ID, PubDate: pubDate}
	if group != nil {
		p.GroupID = &group.ID
	}
	if err := conn.Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

// CreatePosts inserts n posts one minute apart, the newest last.
func CreatePosts(t *testing.T, conn *gorm.DB, author *models.User, group *models.Group, n int, start time.Time) []*models.Post {
	t.Helper()
	out := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, CreatePost(t, conn, author, group, fmt.Sprintf("post %d by %s", i, author.Username), start.Add(time.Duration(i)*time.Minute)))
	}
	return out
}
