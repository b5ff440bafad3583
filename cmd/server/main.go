package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/krishnaAiGen/voice-first-to-do/internal/config"
	"github.com/krishnaAiGen/voice-first-to-do/internal/intent"
	"github.com/krishnaAiGen/voice-first-to-do/internal/serverapp"
	"github.com/krishnaAiGen/voice-first-to-do/internal/task"
	"github.com/krishnaAiGen/voice-first-to-do/internal/telemetry"
)

func main() {
	cfgPath := os.Getenv("TODO_CONFIG")
	if cfgPath == "" {
		cfgPath = "todo_config.yml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := task.NewSQLStore(cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal("open task store", zap.String("path", cfg.Database.Path), zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	producer, err := intent.NewGeminiProducer(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model, logger)
	if err != nil {
		logger.Fatal("init intent producer", zap.Error(err))
	}

	handler, err := serverapp.NewHandler(serverapp.Options{
		Config:   &cfg,
		DataDir:  filepath.Dir(cfg.Database.Path),
		Logger:   logger,
		Store:    store,
		Producer: producer,
		Events:   telemetry.NewMemoryRepository(),
	})
	if err != nil {
		logger.Fatal("build server", zap.Error(err))
	}

	logger.Info("listening", zap.String("addr", cfg.Server.Addr))
	if err := http.ListenAndServe(cfg.Server.Addr, handler); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}

func newLogger(lc config.Logging) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Debug {
		zc = zap.NewDevelopmentConfig()
	}
	if lc.Level != "" {
		lvl, err := zapcore.ParseLevel(lc.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", lc.Level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}
