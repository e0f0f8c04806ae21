package services

import (
	"context"
	"testing"

	"inkwell/internal/apperr"
	"inkwell/internal/events"
	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countFollows(t *testing.T, e *env) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Follow{}).Count(&n).Error)
	return n
}

func TestFollow_Idempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	reader := testutil.CreateUser(t, e.db, "reader")
	testutil.CreateUser(t, e.db, "writer")
	created := e.record(t, events.SubjectFollowCreated)

	author, err := e.follows.Follow(ctx, reader, "writer")
	require.NoError(t, err)
	assert.Equal(t, "writer", author.Username)
	_, err = e.follows.Follow(ctx, reader, "writer")
	require.NoError(t, err)

	assert.Equal(t, int64(1), countFollows(t, e))
	assert.Len(t, *created, 1)
}

func TestFollow_SelfIsNoop(t *testing.T) {
	e := newEnv(t)
	me := testutil.CreateUser(t, e.db, "me")

	author, err := e.follows.Follow(context.Background(), me, "me")
	require.NoError(t, err)
	assert.Equal(t, me.ID, author.ID)
	assert.Zero(t, countFollows(t, e))
}

func TestFollow_UnknownUser(t *testing.T) {
	e := newEnv(t)
	me := testutil.CreateUser(t, e.db, "me")
	_, err := e.follows.Follow(context.Background(), me, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFollow_GuestRejected(t *testing.T) {
	e := newEnv(t)
	testutil.CreateUser(t, e.db, "writer")
	_, err := e.follows.Follow(context.Background(), nil, "writer")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestUnfollow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	reader := testutil.CreateUser(t, e.db, "reader")
	writer := testutil.CreateUser(t, e.db, "writer")
	deleted := e.record(t, events.SubjectFollowDeleted)

	// 未关注时取消关注不报错
	_, err := e.follows.Unfollow(ctx, reader, "writer")
	require.NoError(t, err)
	assert.Empty(t, *deleted)

	_, err = e.follows.Follow(ctx, reader, "writer")
	require.NoError(t, err)
	_, err = e.follows.Unfollow(ctx, reader, "writer")
	require.NoError(t, err)

	assert.Zero(t, countFollows(t, e))
	assert.Len(t, *deleted, 1)

	following, err := e.follows.IsFollowing(ctx, reader, writer.ID)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestUnfollow_UnknownUser(t *testing.T) {
	e := newEnv(t)
	me := testutil.CreateUser(t, e.db, "me")
	_, err := e.follows.Unfollow(context.Background(), me, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCounts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "a")
	b := testutil.CreateUser(t, e.db, "b")
	testutil.CreateUser(t, e.db, "c")

	_, err := e.follows.Follow(ctx, a, "c")
	require.NoError(t, err)
	_, err = e.follows.Follow(ctx, b, "c")
	require.NoError(t, err)
	_, err = e.follows.Follow(ctx, a, "b")
	require.NoError(t, err)

	followers, following, err := e.follows.Counts(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), followers)
	assert.Equal(t, int64(2), following)

	followers, following, err = e.follows.Counts(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), followers)
	assert.Equal(t, int64(1), following)
}

func TestFollowedAuthors_UsesRequestContext(t *testing.T) {
	e := newEnv(t)
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "request")

	q := e.follows.followedAuthors(ctx, 1)
	assert.Equal(t, "request", q.Statement.Context.Value(ctxKey{}))
}
