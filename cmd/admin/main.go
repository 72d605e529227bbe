package main

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"go-gin-auth-service/internal/app"
	"go-gin-auth-service/internal/core/config"
	"go-gin-auth-service/internal/core/logger"
	"go-gin-auth-service/internal/core/server"
	"go-gin-auth-service/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, flush := logger.FromConfig(cfg.Log)
	defer flush()

	ctx := context.Background()
	a, cleanup, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer cleanup()

	if ad := cfg.App.Admin; ad.SeedEmail != "" {
		u, err := a.Users.EnsureAdmin(ctx, ad.SeedEmail, ad.SeedPassword)
		if err != nil {
			log.Fatal("seed admin", zap.Error(err))
		}
		log.Info("admin account ready", zap.String("uid", u.ID))
	}

	r := router.NewAdminEngine(a.RouterDeps(cfg, log))

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 5*time.Second, 10*time.Second, 60*time.Second)
	log.Info("admin api starting", zap.String("addr", addr))
	server.Run(srv, log, "admin api", 10*time.Second)
}
