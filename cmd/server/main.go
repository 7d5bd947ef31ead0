package main

import (
	"context"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"go.uber.org/zap"

	"map-chat/internal/auth"
	"map-chat/internal/prefs"
	"map-chat/internal/realtime"
	"map-chat/internal/server"
	"map-chat/internal/storage"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("zap.NewDevelopment: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	sugar.Info("Application is starting")

	cfg := server.EnvConfig{}
	if err := env.Parse(&cfg); err != nil {
		sugar.Fatalf("Cannot parse env config: %v", err)
	}

	dbCfg := storage.Config{}
	if err := env.Parse(&dbCfg); err != nil {
		sugar.Fatalf("Cannot parse database config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(ctx, sugar, dbCfg, storage.ConnectionTimeout(30*time.Second), storage.MaxConns(16))
	if err != nil {
		sugar.Fatalf("Cannot create Store instance: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		sugar.Fatalf("Cannot migrate database: %v", err)
	}

	kv, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		sugar.Fatalf("Cannot open preferences at %s: %v", cfg.PrefsPath, err)
	}

	authService := auth.NewService(sugar, store, kv, auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL))

	groups := realtime.NewGroupStore(sugar, store)
	go func() {
		if err := groups.Run(ctx); err != nil && err != context.Canceled {
			sugar.Errorf("Group change listener stopped: %v", err)
		}
	}()

	serverOpts := []server.Option{
		server.WithEnvConfig(cfg),
		server.ReadTimeout(5 * time.Second),
		server.TimeoutHandler(10*time.Second, "Request timed out"),
		server.RegisterAfterShutdown(cancel),
		server.RegisterAfterShutdown(func() {
			sugar.Info("Closing preferences")
			if err := kv.Close(); err != nil {
				sugar.Errorf("Cannot close preferences: %v", err)
			}
		}),
		server.RegisterAfterShutdown(func() {
			sugar.Info("Closing store")
			store.Close()
			sugar.Info("Store is closed")
		}),
	}

	srv, err := server.NewServer(sugar, server.Deps{
		Auth:     authService,
		Groups:   groups,
		Profiles: store,
		Prefs:    kv,
	}, serverOpts...)
	if err != nil {
		sugar.Fatalf("Cannot create Server instance: %v", err)
	}

	if err := srv.Start(); err != nil {
		sugar.Fatalf("Cannot start http srv: %v", err)
	}
}
