package cache

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkwell/internal/events"
	"inkwell/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPageRouter(t *testing.T, store Store, status *int, renders *int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	key := func(c *gin.Context) string { return RequestKey("page", "anon", c.Request) }
	r.GET("/", Page(store, 20*time.Second, key, logging.Discard()), func(c *gin.Context) {
		*renders++
		c.String(*status, "render %d", *renders)
	})
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestPage_SecondRequestIsByteIdentical(t *testing.T) {
	store, err := NewMemoryStore(10)
	require.NoError(t, err)
	status, renders := http.StatusOK, 0
	r := newPageRouter(t, store, &status, &renders)

	first := get(r, "/")
	second := get(r, "/")

	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
	assert.Equal(t, 1, renders)
}

func TestPage_QueryStringIsPartOfKey(t *testing.T) {
	store, err := NewMemoryStore(10)
	require.NoError(t, err)
	status, renders := http.StatusOK, 0
	r := newPageRouter(t, store, &status, &renders)

	get(r, "/?page=1")
	get(r, "/?page=2")
	assert.Equal(t, 2, renders)
}

func TestPage_ClearForcesRecompute(t *testing.T) {
	store, err := NewMemoryStore(10)
	require.NoError(t, err)
	status, renders := http.StatusOK, 0
	r := newPageRouter(t, store, &status, &renders)

	first := get(r, "/")
	require.NoError(t, store.Clear(context.Background()))
	second := get(r, "/")

	assert.Equal(t, 2, renders)
	assert.NotEqual(t, first.Body.String(), second.Body.String())
}

func TestPage_ErrorResponsesNotCached(t *testing.T) {
	store, err := NewMemoryStore(10)
	require.NoError(t, err)
	status, renders := http.StatusInternalServerError, 0
	r := newPageRouter(t, store, &status, &renders)

	get(r, "/")
	get(r, "/")
	assert.Equal(t, 2, renders)
	assert.Zero(t, store.Len())
}

func TestRequestKey_SortsQuery(t *testing.T) {
	a := httptest.NewRequest(http.MethodGet, "/?b=2&a=1", nil)
	b := httptest.NewRequest(http.MethodGet, "/?a=1&b=2", nil)
	assert.Equal(t, RequestKey("p", "anon", a), RequestKey("p", "anon", b))
	assert.Equal(t, "p:u7:/", RequestKey("p", "u7", httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestSubscribeClear_EmptiesStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore(10)
	require.NoError(t, err)
	bus := events.NewLocalBus()

	unsubscribe, err := SubscribeClear(bus, store, logging.Discard())
	require.NoError(t, err)
	defer unsubscribe()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute))
	}
	require.NoError(t, bus.Publish(ctx, events.SubjectCacheClear, events.CacheClearEvent{RequestedBy: "admin"}))

	assert.Zero(t, store.Len())
}

func TestStartJanitor_RejectsBadSpec(t *testing.T) {
	store, err := NewMemoryStore(10)
	require.NoError(t, err)

	_, err = StartJanitor(store, "not a schedule", logging.Discard())
	assert.Error(t, err)
}
