package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/db"
	"inkwell/internal/events"
	"inkwell/internal/logging"
	"inkwell/internal/media"
	"inkwell/internal/router"
	"inkwell/internal/services"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.Log.Level)
	gin.SetMode(cfg.Server.Mode)

	// Initialize Database
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.Migrate(conn); err != nil {
		return err
	}
	if err := db.SeedGroups(conn, db.DefaultGroups); err != nil {
		return err
	}
	logger.Info(ctx, "database ready", "driver", cfg.Database.Driver)

	// 事件总线：配置了 NATS 则跨实例广播，否则进程内分发
	var bus events.Bus
	if cfg.NATS.URL != "" {
		nb, err := events.ConnectNATS(cfg.NATS.URL, "inkwell")
		if err != nil {
			return err
		}
		bus = nb
		logger.Info(ctx, "connected to nats", "url", cfg.NATS.URL)
	} else {
		bus = events.NewLocalBus()
	}
	defer bus.Close()

	pages, stopCache, err := openPageCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stopCache()

	unsubscribe, err := cache.SubscribeClear(bus, pages, logger)
	if err != nil {
		return fmt.Errorf("subscribe cache clear: %w", err)
	}
	defer unsubscribe()

	store, err := openMedia(ctx, cfg)
	if err != nil {
		return err
	}

	accounts := services.NewAccountService(conn, cfg.Auth.BcryptCost)
	groups := services.NewGroupService(conn)
	follows := services.NewFollowService(conn, accounts, bus, logger)
	notes := services.NewNotificationService(conn, logger)
	stopNotes, err := notes.Subscribe(bus)
	if err != nil {
		return fmt.Errorf("subscribe notifications: %w", err)
	}
	defer stopNotes()

	r, err := router.New(router.Dependencies{
		Config:   cfg,
		Log:      logger,
		Accounts: accounts,
		Groups:   groups,
		Follows:  follows,
		Feeds:    services.NewFeedService(conn, accounts, groups, follows, cfg.Feed.PageSize),
		Posts:    services.NewPostService(conn, store, bus, logger),
		Notes:    notes,
		Tokens:   auth.NewTokens(cfg.JWT.Secret, cfg.JWT.TTL),
		Pages:    pages,
		Bus:      bus,
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "Inkwell server starting", "addr", cfg.Server.Addr)
	return r.Run(cfg.Server.Addr)
}

// openPageCache returns the index page store. The returned func releases it.
func openPageCache(ctx context.Context, cfg *config.Config, logger logging.Logger) (cache.Store, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		client, err := cache.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		logger.Info(ctx, "page cache on redis", "addr", cfg.Redis.Addr)
		return cache.NewRedisStore(client, "inkwell:page:"), func() { client.Close() }, nil
	case "memory", "":
		mem, err := cache.NewMemoryStore(cfg.Cache.Size)
		if err != nil {
			return nil, nil, err
		}
		janitor, err := cache.StartJanitor(mem, cfg.Cache.Janitor, logger)
		if err != nil {
			return nil, nil, err
		}
		return mem, func() { janitor.Stop() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend %q", cfg.Cache.Backend)
	}
}

func openMedia(ctx context.Context, cfg *config.Config) (media.Store, error) {
	switch cfg.Media.Backend {
	case "s3":
		return media.NewS3Store(ctx, media.S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PublicURL: cfg.S3.PublicURL,
		})
	case "local", "":
		return media.NewFSStore(cfg.Media.Dir, cfg.Media.URLPrefix)
	default:
		return nil, fmt.Errorf("unsupported media backend %q", cfg.Media.Backend)
	}
}
