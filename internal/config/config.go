// Package config loads runtime settings from .env, an optional config.yaml and
// the environment. Environment variables win over the file: the key
// "cache.ttl" is read from CACHE_TTL.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   Server
	Database Database
	Session  Session
	Feed     Feed
	Cache    Cache
	Redis    Redis
	NATS     NATS
	Media    Media
	S3       S3
	JWT      JWT
	Log      Log
	Site     Site
	Auth     Auth
}

type Server struct {
	Addr string
	Mode string // gin mode: debug, release, test
}

type Database struct {
	Driver string // postgres or sqlite
	DSN    string
}

type Session struct {
	Name   string
	Secret string
}

type Feed struct {
	PageSize int // posts per page
}

type Cache struct {
	Backend string // memory or redis
	TTL     time.Duration
	Size    int
	Janitor string // cron spec for purging expired in-memory pages
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type NATS struct {
	URL string // empty keeps events in-process
}

type Media struct {
	Backend   string // local or s3
	Dir       string
	URLPrefix string
}

type S3 struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

type JWT struct {
	Secret string
	TTL    time.Duration
}

type Log struct {
	Level string
}

type Site struct {
	Name string
	URL  string // absolute base used in sitemap and RSS links
}

type Auth struct {
	BcryptCost int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=inkwell port=5432 sslmode=disable")
	v.SetDefault("session.name", "inkwell_session")
	v.SetDefault("session.secret", "secret_key_change_me")
	v.SetDefault("feed.page_size", 10)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 20*time.Second)
	v.SetDefault("cache.size", 500)
	v.SetDefault("cache.janitor", "@every 1m")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("nats.url", "")
	v.SetDefault("media.backend", "local")
	v.SetDefault("media.dir", "./media")
	v.SetDefault("media.url_prefix", "/media/")
	v.SetDefault("s3.bucket", "inkwell")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.public_url", "")
	v.SetDefault("jwt.secret", "jwt_secret_change_me")
	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("site.name", "Inkwell")
	v.SetDefault("site.url", "http://localhost:8080")
	v.SetDefault("auth.bcrypt_cost", 10)
}

// Load reads .env (if present), then config.yaml from "." or "./config"
// (if present), then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from the environment")
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: Server{
			Addr: v.GetString("server.addr"),
			Mode: strings.ToLower(v.GetString("server.mode")),
		},
		Database: Database{
			Driver: strings.ToLower(v.GetString("database.driver")),
			DSN:    v.GetString("database.dsn"),
		},
		Session: Session{
			Name:   v.GetString("session.name"),
			Secret: v.GetString("session.secret"),
		},
		Feed: Feed{
			PageSize: v.GetInt("feed.page_size"),
		},
		Cache: Cache{
			Backend: strings.ToLower(v.GetString("cache.backend")),
			TTL:     v.GetDuration("cache.ttl"),
			Size:    v.GetInt("cache.size"),
			Janitor: v.GetString("cache.janitor"),
		},
		Redis: Redis{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		NATS: NATS{
			URL: v.GetString("nats.url"),
		},
		Media: Media{
			Backend:   strings.ToLower(v.GetString("media.backend")),
			Dir:       v.GetString("media.dir"),
			URLPrefix: v.GetString("media.url_prefix"),
		},
		S3: S3{
			Bucket:    v.GetString("s3.bucket"),
			Region:    v.GetString("s3.region"),
			Endpoint:  v.GetString("s3.endpoint"),
			AccessKey: v.GetString("s3.access_key"),
			SecretKey: v.GetString("s3.secret_key"),
			PublicURL: v.GetString("s3.public_url"),
		},
		JWT: JWT{
			Secret: v.GetString("jwt.secret"),
			TTL:    v.GetDuration("jwt.ttl"),
		},
		Log: Log{
			Level: v.GetString("log.level"),
		},
		Site: Site{
			Name: v.GetString("site.name"),
			URL:  strings.TrimRight(v.GetString("site.url"), "/"),
		},
		Auth: Auth{
			BcryptCost: v.GetInt("auth.bcrypt_cost"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Feed.PageSize < 1 {
		return fmt.Errorf("feed.page_size must be positive, got %d", c.Feed.PageSize)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unsupported server.mode %q", c.Server.Mode)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache.backend %q", c.Cache.Backend)
	}
	switch c.Media.Backend {
	case "local", "s3":
	default:
		return fmt.Errorf("unsupported media.backend %q", c.Media.Backend)
	}
	return nil
}
