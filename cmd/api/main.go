package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hamza-farooq/solsniper/internal/ai"
	"github.com/hamza-farooq/solsniper/internal/config"
	"github.com/hamza-farooq/solsniper/internal/denylist"
	"github.com/hamza-farooq/solsniper/internal/history"
	"github.com/hamza-farooq/solsniper/internal/jupiter"
	"github.com/hamza-farooq/solsniper/internal/server"
	"github.com/hamza-farooq/solsniper/internal/sniper"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main runs the control API standalone: deny-list management, trade
// history, quote passthrough and report classification, without a snipe
// in flight.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var deny *denylist.Store
	if cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Fatal("failed to connect to Redis")
		}
		deny, err = denylist.NewStore(rclient)
		if err != nil {
			logger.WithError(err).Fatal("failed to create deny list store")
		}
	}

	var hist *history.Store
	if cfg.ClickHouseAddr != "" {
		hist, err = history.NewStore(ctx, history.Config{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to ClickHouse")
		}
		defer hist.Close()
	}

	// Classifier is optional; without a key, text-only reports grade low.
	var classifier *ai.Classifier
	if cfg.OpenRouterAPIKey != "" {
		classifier, err = ai.NewClassifier(ai.ClassifierConfig{
			OpenRouterAPIKey: cfg.OpenRouterAPIKey,
			Model:            cfg.ClassifierModel,
			Logger:           logger,
		})
		if err != nil {
			logger.WithError(err).Warn("failed to initialize classifier")
		}
	}

	h := &server.Handlers{
		Signals:    sniper.NewSignalWatcher(cfg.SignalsEnabled),
		Tracker:    sniper.NewTracker(),
		Deny:       deny,
		History:    hist,
		Classifier: classifier,
		Jupiter:    jupiter.NewClient(cfg.JupiterBaseURL, cfg.JupiterAPIKey, cfg.HTTPTimeout),
		DevMode:    cfg.DevMode,
		Logger:     logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil {
		if err.Error() == "http: Server closed" {
			return
		}
		logger.WithError(err).Fatal("api server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
