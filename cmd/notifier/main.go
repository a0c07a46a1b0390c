// cmd/notifier/main.go is the asynchronous delivery worker: it pops
// notification intents the engine enqueued in Redis and hands them to the
// delivery collaborator. Delivery itself is a logged stub; push and email
// transports plug in behind deliver.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/skatebattle/skate/internal/cache"
	"github.com/skatebattle/skate/internal/config"
	"github.com/skatebattle/skate/internal/game"
)

// popTimeout bounds each BLPop so context cancellation is noticed promptly.
const popTimeout = 3 * time.Second

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.NotifyQueue)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer notifier.Close()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		logger.Info("notifier shutting down")
		cancel()
	}()

	logger.Infof("notifier started, queue %q", cfg.NotifyQueue)
	for {
		intent, err := notifier.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.WithError(err).Error("failed to pop intent")
			time.Sleep(time.Second)
			continue
		}
		if intent == nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		deliver(logger, intent)
	}
}

// deliver routes one intent to its transport. Currently everything is logged;
// each intent type keeps its payload so a real transport needs no re-fetch.
func deliver(logger *logrus.Logger, intent *game.Intent) {
	entry := logger.WithFields(logrus.Fields{
		"type":    intent.Type,
		"game_id": intent.GameID,
	})
	if intent.PlayerID != uuid.Nil {
		entry = entry.WithField("player_id", intent.PlayerID)
	}
	entry.Info("delivering notification")
}
