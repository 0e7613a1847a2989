package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/teragrab/teragrab/bot"
	"github.com/teragrab/teragrab/config"
	"github.com/teragrab/teragrab/routes"
	"github.com/teragrab/teragrab/storage"
	"github.com/teragrab/teragrab/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	var store storage.Store
	var err error
	if cfg.DatabaseURI != "" {
		store, err = storage.NewGormStore(cfg.DatabaseURI, cfg.LogLevel)
	} else {
		store, err = storage.NewFileStore(cfg.StorePath)
	}
	if err != nil {
		utils.Sugar.Fatalf("cannot open user store: %v", err)
	}
	defer store.Close()

	if n, err := store.Count(context.Background()); err == nil {
		utils.Sugar.Infof("user store ready with %d users", n)
	}

	b, err := bot.New(cfg, store)
	if err != nil {
		utils.Sugar.Fatalf("cannot start bot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.StatusPort != "disabled" {
		r := routes.SetupRouter(store, b.Username)
		go func() {
			utils.Sugar.Infof("status API listening on :%s", cfg.StatusPort)
			if err := utils.GraceServer(ctx, ":"+cfg.StatusPort, r); err != nil {
				utils.Sugar.Errorf("status API stopped with error: %v", err)
			}
		}()
	}

	utils.Sugar.Infof("starting long-poll loop (fsub=%d dump=%d admins=%d broadcast=%v)",
		cfg.FsubChatID, cfg.DumpChatID, len(cfg.AdminIDs), cfg.BroadcastEnabled)
	b.Start(ctx)
	utils.Sugar.Info("bot stopped")
}
