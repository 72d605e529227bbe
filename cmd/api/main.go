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

	a, cleanup, err := app.Build(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer cleanup()

	r := router.NewAPIEngine(a.RouterDeps(cfg, log))

	h := cfg.App.HTTP
	addr := server.Addr(h.Host, h.Port)
	srv := server.BuildServer(addr, r,
		time.Duration(h.ReadTimeoutSec)*time.Second,
		time.Duration(h.WriteTimeoutSec)*time.Second,
		time.Duration(h.IdleTimeoutSec)*time.Second,
	)
	log.Info("user api starting",
		zap.String("addr", addr),
		zap.String("env", cfg.App.Env),
		zap.Duration("token_ttl", cfg.JWT.TTL),
	)
	server.Run(srv, log, "user api", 10*time.Second)
}
