package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"inkwell/internal/events"
	"inkwell/internal/logging"

	"github.com/robfig/cron/v3"
)

// Purger is implemented by stores that keep expired entries until swept.
type Purger interface {
	PurgeExpired() int
}

// StartJanitor sweeps expired entries on the given cron spec (e.g. "@every 1m").
// Stop the returned scheduler on shutdown.
func StartJanitor(p Purger, spec string, log logging.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := p.PurgeExpired(); n > 0 {
			log.Debug(context.Background(), "cache janitor purged entries", "count", n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule cache janitor %q: %w", spec, err)
	}
	c.Start()
	log.Info(context.Background(), "cache janitor scheduled", "spec", spec)
	return c, nil
}

// SubscribeClear empties store whenever a clear signal arrives on the bus.
func SubscribeClear(bus events.Bus, store Store, log logging.Logger) (func(), error) {
	return bus.Subscribe(events.SubjectCacheClear, func(data []byte) {
		ctx := context.Background()
		var ev events.CacheClearEvent
		_ = json.Unmarshal(data, &ev)

		if err := store.Clear(ctx); err != nil {
			log.Error(ctx, "cache clear failed", "error", err)
			return
		}
		log.Info(ctx, "page cache cleared", "requested_by", ev.RequestedBy)
	})
}
