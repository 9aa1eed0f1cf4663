package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"trello-cloney/api"
	"trello-cloney/board"
	"trello-cloney/storage"
)

const (
	serviceName     = "board-api"
	shutdownTimeout = 10 * time.Second
	maxRequestBody  = 64 * 1024
)

func main() {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := api.NewViewBroker()
	var (
		views    storage.ViewStore
		deduper  api.Deduper
		notifier api.ViewNotifier = broker
		health   []api.Pinger
	)
	if cfg.RedisConn != "" {
		rc := redis.NewClient(storage.ParseRedisOptions(cfg.RedisConn))
		defer rc.Close()
		redisViews := storage.NewRedisStore(rc, cfg.ViewTTL)
		views = redisViews
		health = append(health, redisViews)
		deduper = api.NewRedisDeduper(rc, cfg.DeduperTTL)
		relay := api.NewRedisViewNotifier(rc, cfg.ViewUpdatesChannel, broker)
		go relay.Run(ctx, logger)
		notifier = relay
	} else {
		logger.Warn("REDIS_CONNECTION_STRING not set; views are kept in memory and idempotency keys are ignored")
		views = storage.NewMemoryStore(cfg.ViewTTL)
	}

	var sink api.ActivitySink = api.LogActivitySink{Log: logger}
	if cfg.StorageConn != "" {
		queue, err := storage.NewActivityQueue(cfg.StorageConn, cfg.ActivityQueue)
		if err != nil {
			logger.Fatalf("activity queue: %v", err)
		}
		sink = queue
		health = append(health, queue)
	}
	publisher := api.NewActivityPublisher(sink, logger, cfg.Publisher)
	defer publisher.Close()

	auth, err := newAuth(cfg, logger)
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentEncoding},
	}))
	e.Use(echoprometheus.NewMiddleware("board"))
	e.Use(api.GzipRequestMiddleware(maxRequestBody))
	e.GET("/metrics", echoprometheus.NewHandler())

	api.Register(e, api.Config{
		Views:      views,
		Auth:       auth,
		Deduper:    deduper,
		Activities: publisher,
		Broker:     broker,
		Notifier:   notifier,
		Board:      board.Options{ResortOnDrop: cfg.ResortOnDrop},
		Health:     health,
		Log:        logger,
	})

	go func() {
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}

func newAuth(cfg config, logger *log.Logger) (*api.Auth, error) {
	if len(cfg.SharedSecret) > 0 {
		logger.Warn("using shared-secret token validation")
		return api.NewAuth(api.AuthConfig{SharedSecret: cfg.SharedSecret}), nil
	}
	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Auth0Domain)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.WithError(err).Warn("jwks refresh failed")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	return api.NewAuth(api.AuthConfig{
		JWKS:        jwks,
		Audience:    cfg.Auth0Audience,
		Issuer:      "https://" + cfg.Auth0Domain + "/",
		KeyCacheTTL: cfg.JWKSCacheTTL,
	}), nil
}

// serviceHook stamps every entry with the service name.
type serviceHook struct{ name string }

func (serviceHook) Levels() []log.Level { return log.AllLevels }

func (h serviceHook) Fire(e *log.Entry) error {
	e.Data["service"] = h.name
	return nil
}

func newLogger(level log.Level) *log.Logger {
	logger := log.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.SetLevel(level)
	logger.AddHook(serviceHook{name: serviceName})
	return logger
}
