// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/skatebattle/skate/internal/auth"
	"github.com/skatebattle/skate/internal/cache"
	"github.com/skatebattle/skate/internal/config"
	"github.com/skatebattle/skate/internal/database"
	"github.com/skatebattle/skate/internal/engine"
	"github.com/skatebattle/skate/internal/game"
	"github.com/skatebattle/skate/internal/handlers"
	"github.com/skatebattle/skate/internal/middleware"
	"github.com/skatebattle/skate/internal/reaper"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := auth.Init(); err != nil {
		log.Fatalf("auth: %v", err)
	}

	ctx := context.Background()

	// Without DATABASE_URL the server runs on the in-memory store; fine for
	// local play, useless for anything that must survive a restart.
	var store game.Store
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pool.Close()
		store = database.NewSessionStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory session store")
		store = game.NewMemoryStore()
	}

	var sink engine.IntentSink
	notifier, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.NotifyQueue)
	if err != nil {
		logger.Warnf("redis unavailable, notifications disabled: %v", err)
	} else {
		defer notifier.Close()
		sink = notifier
	}

	eng := engine.New(store, sink, logger, cfg.TurnTimeoutSec)

	cooldowns := reaper.NewCooldownStore(cfg.WarnCooldown)
	rp := reaper.New(store, eng, sink, cooldowns, logger, reaper.Options{
		WarningWindow: cfg.WarningWindow,
		HardAgeCap:    cfg.HardAgeCap,
	})
	go rp.Run(ctx, cfg.ReaperInterval)

	srv := handlers.NewServer(eng, store, logger, cfg.ResolverKeyHash)

	mux := http.NewServeMux()
	srv.Register(mux)

	addr := ":" + cfg.Port
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, middleware.LogMiddleware(logger)(mux)); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
