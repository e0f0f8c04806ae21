// Package cache memoizes rendered pages for a short TTL.
//
// A Store maps keys to rendered bytes. Concurrent writers to the same key are
// last-write-wins; the cached content is always safe to recompute.
package cache

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type Store interface {
	// Get returns the cached value and true, or false on a miss or expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Clear drops every entry; the next request recomputes.
	Clear(ctx context.Context) error
}

// RequestKey identifies a page by viewer class, path and query string.
// url.Values.Encode sorts keys, so ?a=1&b=2 and ?b=2&a=1 share an entry.
func RequestKey(prefix, viewer string, r *http.Request) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte(':')
	b.WriteString(viewer)
	b.WriteByte(':')
	b.WriteString(r.URL.Path)
	if q := r.URL.Query(); len(q) > 0 {
		b.WriteByte('?')
		b.WriteString(q.Encode())
	}
	return b.String()
}
