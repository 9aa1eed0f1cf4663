package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"trello-cloney/api"
)

const (
	defaultListenAddr         = ":8080"
	defaultViewTTL            = 12 * time.Hour
	defaultDeduperTTL         = 24 * time.Hour
	defaultActivityQueue      = "board-activities"
	defaultViewUpdatesChannel = "board-view-updates"
)

type config struct {
	ListenAddr string
	LogLevel   log.Level

	RedisConn          string
	ViewUpdatesChannel string
	ViewTTL            time.Duration
	DeduperTTL         time.Duration
	ResortOnDrop       bool

	Auth0Domain   string
	Auth0Audience string
	SharedSecret  []byte
	JWKSCacheTTL  time.Duration

	StorageConn   string
	ActivityQueue string
	Publisher     api.PublisherConfig
}

// loadConfig reads the service configuration from the environment.
func loadConfig(getenv func(string) string) (config, error) {
	cfg := config{
		ListenAddr:         defaultListenAddr,
		LogLevel:           log.InfoLevel,
		RedisConn:          strings.TrimSpace(getenv("REDIS_CONNECTION_STRING")),
		ViewUpdatesChannel: defaultViewUpdatesChannel,
		StorageConn:        strings.TrimSpace(getenv("STORAGE_CONNECTION_STRING")),
		ActivityQueue:      defaultActivityQueue,
	}

	switch {
	case getenv("LISTEN_ADDR") != "":
		cfg.ListenAddr = getenv("LISTEN_ADDR")
	case getenv("PORT") != "":
		cfg.ListenAddr = ":" + getenv("PORT")
	case getenv("FUNCTIONS_CUSTOMHANDLER_PORT") != "":
		cfg.ListenAddr = ":" + getenv("FUNCTIONS_CUSTOMHANDLER_PORT")
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		lvl, err := log.ParseLevel(v)
		if err != nil {
			return config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = lvl
	}
	if dbg, err := strconv.ParseBool(getenv("DEBUG")); err == nil && dbg {
		cfg.LogLevel = log.DebugLevel
	}
	if v := getenv("VIEW_UPDATES_CHANNEL"); v != "" {
		cfg.ViewUpdatesChannel = v
	}
	if v := getenv("ACTIVITY_QUEUE"); v != "" {
		cfg.ActivityQueue = v
	}

	var err error
	if cfg.ViewTTL, err = envDuration(getenv, "VIEW_TTL", defaultViewTTL); err != nil {
		return config{}, err
	}
	if cfg.DeduperTTL, err = envDuration(getenv, "DEDUPER_TTL", defaultDeduperTTL); err != nil {
		return config{}, err
	}
	if cfg.JWKSCacheTTL, err = envDuration(getenv, "JWKS_CACHE_TTL", api.DefaultJWKSCacheTTL); err != nil {
		return config{}, err
	}
	if cfg.Publisher.Timeout, err = envDuration(getenv, "ACTIVITY_TIMEOUT", 0); err != nil {
		return config{}, err
	}
	if v := getenv("ACTIVITY_HANDOFF_TIMEOUT"); v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			return config{}, fmt.Errorf("invalid ACTIVITY_HANDOFF_TIMEOUT: %w", perr)
		}
		if d == 0 {
			d = -1
		}
		cfg.Publisher.HandoffTimeout = d
	}
	if cfg.Publisher.Workers, err = envInt(getenv, "ACTIVITY_WORKERS"); err != nil {
		return config{}, err
	}
	if cfg.Publisher.Buffer, err = envInt(getenv, "ACTIVITY_BUFFER"); err != nil {
		return config{}, err
	}
	if v := getenv("BOARD_RESORT_ON_DROP"); v != "" {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			return config{}, fmt.Errorf("invalid BOARD_RESORT_ON_DROP: %w", perr)
		}
		cfg.ResortOnDrop = b
	}

	if err := loadAuthConfig(getenv, &cfg); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func loadAuthConfig(getenv func(string) string, cfg *config) error {
	if mode := strings.ToLower(getenv("LOCAL_AUTH_MODE")); mode != "" {
		if mode != "hs256" {
			return fmt.Errorf("unsupported LOCAL_AUTH_MODE value %q", mode)
		}
		secret := getenv("LOCAL_AUTH_SHARED_SECRET")
		if secret == "" {
			return errors.New("LOCAL_AUTH_SHARED_SECRET must be set when LOCAL_AUTH_MODE=hs256")
		}
		cfg.SharedSecret = []byte(secret)
		return nil
	}
	if getenv("AUTH0_TEST_MODE") == "1" {
		secret := getenv("TEST_JWT_SECRET")
		if secret == "" {
			return errors.New("TEST_JWT_SECRET must be set when AUTH0_TEST_MODE=1")
		}
		cfg.SharedSecret = []byte(secret)
		return nil
	}
	cfg.Auth0Domain = getenv("AUTH0_DOMAIN")
	cfg.Auth0Audience = getenv("AUTH0_AUDIENCE")
	if cfg.Auth0Domain == "" || cfg.Auth0Audience == "" {
		return errors.New("missing Auth0 config")
	}
	return nil
}

func envDuration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func envInt(getenv func(string) string, key string) (int, error) {
	v := getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}
