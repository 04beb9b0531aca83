package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Config holds daemon configuration.
type Config struct {
	SpannerDB    string
	EngineAddr   string
	HTTPPort     string
	WorkspaceDir string
	LogLevel     zap.AtomicLevel
}

// loadConfig reads configuration from environment variables with defaults.
func loadConfig(getenv func(string) string) (Config, error) {
	cfg := Config{
		SpannerDB:    getenv("SPANNER_DATABASE"),
		EngineAddr:   getenv("ENGINE_ADDR"),
		HTTPPort:     getenv("HTTP_PORT"),
		WorkspaceDir: getenv("MMS_WORKSPACE_DIR"),
	}

	if cfg.SpannerDB == "" {
		cfg.SpannerDB = "projects/test-project/instances/dev-instance/databases/commhistory-db"
	}
	if cfg.EngineAddr == "" {
		cfg.EngineAddr = "unix:///run/mms-engine/engine.sock"
	}
	if cfg.HTTPPort == "" {
		cfg.HTTPPort = "8080"
	}
	if cfg.WorkspaceDir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return Config{}, fmt.Errorf("no MMS_WORKSPACE_DIR and no user cache dir: %w", err)
		}
		cfg.WorkspaceDir = filepath.Join(cacheDir, "commhistory", "mms-send")
	}

	level := getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = atomic

	return cfg, nil
}

func newLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	return zcfg.Build()
}
