package services

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/apperr"
	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func ids(posts []models.Post) []uint {
	out := make([]uint, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestGlobalFeed_NewestFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, e.db, "author")
	testutil.CreatePosts(t, e.db, author, nil, 5, base)

	feed, err := e.feeds.Global(ctx, 1)
	require.NoError(t, err)
	require.Len(t, feed.Posts, 5)
	for i := 1; i < len(feed.Posts); i++ {
		assert.False(t, feed.Posts[i].PubDate.After(feed.Posts[i-1].PubDate), "posts out of order at %d", i)
	}
	assert.Equal(t, "author", feed.Posts[0].Author.Username)
}

func TestGlobalFeed_TiesBrokenByID(t *testing.T) {
	e := newEnv(t)
	author := testutil.CreateUser(t, e.db, "author")
	first := testutil.CreatePost(t, e.db, author, nil, "first", base)
	second := testutil.CreatePost(t, e.db, author, nil, "second", base)

	feed, err := e.feeds.Global(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{second.ID, first.ID}, ids(feed.Posts))
}

func TestGlobalFeed_Pagination(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, e.db, "author")
	testutil.CreatePosts(t, e.db, author, nil, 14, base)

	page1, err := e.feeds.Global(ctx, 1)
	require.NoError(t, err)
	page2, err := e.feeds.Global(ctx, 2)
	require.NoError(t, err)

	assert.Len(t, page1.Posts, 10)
	assert.Len(t, page2.Posts, 4)
	assert.Equal(t, 2, page1.Page.NumPages)
	assert.Equal(t, 14, page2.Page.Total)

	// 超出范围的页码取最后一页
	page9, err := e.feeds.Global(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 2, page9.Page.Number)
	assert.Equal(t, ids(page2.Posts), ids(page9.Posts))
}

func TestGlobalFeed_Empty(t *testing.T) {
	e := newEnv(t)
	feed, err := e.feeds.Global(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, feed.Posts)
	assert.Equal(t, 1, feed.Page.NumPages)
}

func TestGlobalFeed_CommentCounts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, e.db, "author")
	post := testutil.CreatePost(t, e.db, author, nil, "hello", base)
	for i := 0; i < 2; i++ {
		_, err := e.posts.AddComment(ctx, author, post.ID, CreateCommentInput{Text: "nice"})
		require.NoError(t, err)
	}

	feed, err := e.feeds.Global(ctx, 1)
	require.NoError(t, err)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, 2, feed.Posts[0].CommentCount)
}

func TestGroupFeed_OnlyGroupPosts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, e.db, "author")
	cats := testutil.CreateGroup(t, e.db, "Cats", "cats")
	dogs := testutil.CreateGroup(t, e.db, "Dogs", "dogs")
	catPosts := testutil.CreatePosts(t, e.db, author, cats, 3, base)
	testutil.CreatePosts(t, e.db, author, dogs, 2, base.Add(time.Hour))
	testutil.CreatePost(t, e.db, author, nil, "no group", base.Add(2*time.Hour))

	feed, err := e.feeds.Group(ctx, "cats", 1)
	require.NoError(t, err)
	assert.Equal(t, "Cats", feed.Group.Title)
	assert.Equal(t, []uint{catPosts[2].ID, catPosts[1].ID, catPosts[0].ID}, ids(feed.Posts))
	for _, p := range feed.Posts {
		require.NotNil(t, p.Group)
		assert.Equal(t, "cats", p.Group.Slug)
	}
}

func TestGroupFeed_UnknownSlug(t *testing.T) {
	e := newEnv(t)
	_, err := e.feeds.Group(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestProfileFeed_AuthorSubsetAndFollowFlag(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice")
	bob := testutil.CreateUser(t, e.db, "bob")
	testutil.CreatePosts(t, e.db, alice, nil, 3, base)
	testutil.CreatePosts(t, e.db, bob, nil, 2, base)

	feed, err := e.feeds.Profile(ctx, bob, "alice", 1)
	require.NoError(t, err)
	assert.Len(t, feed.Posts, 3)
	assert.Equal(t, 3, feed.Page.Total)
	for _, p := range feed.Posts {
		assert.Equal(t, alice.ID, p.AuthorID)
	}
	assert.False(t, feed.IsFollowing)

	_, err = e.follows.Follow(ctx, bob, "alice")
	require.NoError(t, err)

	feed, err = e.feeds.Profile(ctx, bob, "alice", 1)
	require.NoError(t, err)
	assert.True(t, feed.IsFollowing)
	assert.Equal(t, int64(1), feed.Followers)
	assert.Equal(t, int64(0), feed.Following)

	guest, err := e.feeds.Profile(ctx, nil, "alice", 1)
	require.NoError(t, err)
	assert.False(t, guest.IsFollowing)
}

func TestProfileFeed_UnknownUser(t *testing.T) {
	e := newEnv(t)
	_, err := e.feeds.Profile(context.Background(), nil, "ghost", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFollowingFeed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	reader := testutil.CreateUser(t, e.db, "reader")
	alice := testutil.CreateUser(t, e.db, "alice")
	bob := testutil.CreateUser(t, e.db, "bob")
	testutil.CreatePosts(t, e.db, alice, nil, 2, base)
	testutil.CreatePosts(t, e.db, bob, nil, 3, base)
	testutil.CreatePost(t, e.db, reader, nil, "my own", base)

	feed, err := e.feeds.Following(ctx, reader, 1)
	require.NoError(t, err)
	assert.Empty(t, feed.Posts)

	_, err = e.follows.Follow(ctx, reader, "alice")
	require.NoError(t, err)

	feed, err = e.feeds.Following(ctx, reader, 1)
	require.NoError(t, err)
	assert.Len(t, feed.Posts, 2)
	for _, p := range feed.Posts {
		assert.Equal(t, alice.ID, p.AuthorID)
	}

	// bob 没有关注任何人
	feed, err = e.feeds.Following(ctx, bob, 1)
	require.NoError(t, err)
	assert.Empty(t, feed.Posts)
}

func TestFollowingFeed_GuestRejected(t *testing.T) {
	e := newEnv(t)
	_, err := e.feeds.Following(context.Background(), nil, 1)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestLatest(t *testing.T) {
	e := newEnv(t)
	author := testutil.CreateUser(t, e.db, "author")
	created := testutil.CreatePosts(t, e.db, author, nil, 5, base)

	posts, err := e.feeds.Latest(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, created[4].ID, posts[0].ID)
	assert.Equal(t, created[2].ID, posts[2].ID)
	assert.Equal(t, "author", posts[0].Author.Username)
}
