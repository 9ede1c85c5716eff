package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"polymerit/pkg/alerts"
	"polymerit/pkg/cache"
	"polymerit/pkg/config"
	"polymerit/pkg/gamma"
	"polymerit/pkg/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore := preferencesStore(ctx, cfg)
	defer closeStore()

	// The terminal has no permission dialog; the configured state stands in for it
	state := alerts.ParsePermission(cfg.Watcher.Notifications)
	permission := alerts.NewStaticPermission(state, alerts.PermissionGranted)

	manager := alerts.NewManager(store, permission, alerts.WithNotifier(alerts.LogNotifier{}))

	if args := os.Args[1:]; len(args) > 0 && args[0] != "run" {
		if err := runCommand(ctx, manager, args, os.Stdout); err != nil {
			if errors.Is(err, errUsage) {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			logrus.Fatalf("Command failed: %v", err)
		}
		return
	}

	client := gamma.NewClient(gamma.OptionsFromConfig(cfg.Upstream))

	w := watcher.New(client, manager, cfg.Watcher, cfg.Upstream.WhaleMinSize)
	if err := w.Run(ctx); err != nil {
		logrus.Fatalf("Watcher failed: %v", err)
	}

	if unread, err := manager.UnreadCount(context.Background()); err == nil {
		logrus.WithField("unread", unread).Info("Watcher stopped")
	}
}

func preferencesStore(ctx context.Context, cfg *config.Config) (alerts.PreferencesStore, func()) {
	if cfg.Watcher.PrefsBackend == "redis" {
		redisCache, err := cache.New(ctx, cfg)
		if err != nil {
			logrus.Fatalf("Failed to connect to Redis: %v", err)
		}
		return alerts.NewRedisStore(redisCache, "watcher"), func() { redisCache.Close() }
	}

	store := alerts.NewFileStore(cfg.Watcher.PrefsPath)
	logrus.WithField("path", store.Path()).Info("Using file preferences")
	return store, func() {}
}

func setupLogging(cfg *config.Config) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
