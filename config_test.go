package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(envMap(map[string]string{
		"AUTH0_DOMAIN":   "tenant.example.com",
		"AUTH0_AUDIENCE": "api://board",
	}))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if cfg.ViewTTL != 12*time.Hour || cfg.DeduperTTL != 24*time.Hour {
		t.Fatalf("unexpected ttls: view=%v dedupe=%v", cfg.ViewTTL, cfg.DeduperTTL)
	}
	if cfg.ResortOnDrop {
		t.Fatal("resort on drop must default to off")
	}
	if cfg.LogLevel != log.InfoLevel {
		t.Fatalf("unexpected log level: %v", cfg.LogLevel)
	}
	if len(cfg.SharedSecret) != 0 {
		t.Fatal("expected JWKS mode")
	}
	if cfg.ActivityQueue != defaultActivityQueue || cfg.RedisConn != "" {
		t.Fatalf("unexpected optional settings: %#v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(envMap(map[string]string{
		"PORT":                     "9000",
		"DEBUG":                    "true",
		"REDIS_CONNECTION_STRING":  " localhost:6379 ",
		"VIEW_TTL":                 "30m",
		"BOARD_RESORT_ON_DROP":     "true",
		"LOCAL_AUTH_MODE":          "HS256",
		"LOCAL_AUTH_SHARED_SECRET": "s3cret",
		"ACTIVITY_WORKERS":         "3",
		"ACTIVITY_BUFFER":          "10",
		"ACTIVITY_HANDOFF_TIMEOUT": "0s",
		"ACTIVITY_QUEUE":           "acts",
	}))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != ":9000" || cfg.LogLevel != log.DebugLevel {
		t.Fatalf("unexpected server settings: %s %v", cfg.ListenAddr, cfg.LogLevel)
	}
	if cfg.RedisConn != "localhost:6379" || cfg.ViewTTL != 30*time.Minute || !cfg.ResortOnDrop {
		t.Fatalf("unexpected board settings: %#v", cfg)
	}
	if string(cfg.SharedSecret) != "s3cret" {
		t.Fatalf("unexpected secret: %q", cfg.SharedSecret)
	}
	if cfg.Publisher.Workers != 3 || cfg.Publisher.Buffer != 10 || cfg.Publisher.HandoffTimeout >= 0 {
		t.Fatalf("unexpected publisher config: %#v", cfg.Publisher)
	}
	if cfg.ActivityQueue != "acts" {
		t.Fatalf("unexpected queue: %s", cfg.ActivityQueue)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	base := map[string]string{"AUTH0_TEST_MODE": "1", "TEST_JWT_SECRET": "x"}
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{name: "view ttl", key: "VIEW_TTL", val: "soon", want: "VIEW_TTL"},
		{name: "negative ttl", key: "DEDUPER_TTL", val: "-1m", want: "DEDUPER_TTL"},
		{name: "workers", key: "ACTIVITY_WORKERS", val: "0", want: "ACTIVITY_WORKERS"},
		{name: "resort", key: "BOARD_RESORT_ON_DROP", val: "maybe", want: "BOARD_RESORT_ON_DROP"},
		{name: "log level", key: "LOG_LEVEL", val: "loud", want: "LOG_LEVEL"},
		{name: "local mode", key: "LOCAL_AUTH_MODE", val: "rs512", want: "LOCAL_AUTH_MODE"},
		{name: "test secret", key: "TEST_JWT_SECRET", val: "", want: "TEST_JWT_SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := map[string]string{}
			for k, v := range base {
				env[k] = v
			}
			env[tt.key] = tt.val
			_, err := loadConfig(envMap(env))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}

	if _, err := loadConfig(envMap(map[string]string{})); err == nil {
		t.Fatal("expected missing Auth0 config to fail")
	}
}

func TestNewLoggerAddsService(t *testing.T) {
	logger := newLogger(log.InfoLevel)
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.Info("hello")

	if !strings.Contains(buf.String(), `"service":"board-api"`) {
		t.Fatalf("expected service field, got %s", buf.String())
	}
}
