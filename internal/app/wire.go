// Package app wires the shared dependency graph for both entrypoints.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-auth-service/internal/core/auth"
	"go-gin-auth-service/internal/core/cache"
	"go-gin-auth-service/internal/core/config"
	"go-gin-auth-service/internal/core/database"
	"go-gin-auth-service/internal/repo"
	"go-gin-auth-service/internal/service"
	"go-gin-auth-service/internal/transport/http/router"
	"go-gin-auth-service/pkg/utils"
)

type App struct {
	DB    *gorm.DB
	Cache *cache.Cache // nil when redis.addr is empty
	Users *service.UserService
	Auth  *service.AuthService
	JWT   *auth.JWTer
}

// Build opens storage and constructs services. The returned func releases
// connections.
func Build(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, func(), error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	}, l)
	if err != nil {
		return nil, nil, err
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	userRepo := repo.NewUserRepo(db)
	if cfg.DB.AutoMigrate {
		if err := migrateOrClose(ctx, db, userRepo); err != nil {
			return nil, nil, err
		}
		l.Info("automigrate done")
	}

	a := &App{DB: db}
	var opts []service.Option
	if cfg.Redis.Addr != "" {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.Ping(pctx)
		cancel()
		if err != nil {
			// lookups fall through to the database while redis is down
			l.Warn("redis unreachable, continuing", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		a.Cache = c
		opts = append(opts, service.WithCache(c, cfg.Redis.UserTTL))
	}

	hasher := utils.NewHasher(cfg.Security.BcryptCost, cfg.Security.HashConcurrency)
	a.JWT = &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL,
		Leeway: cfg.JWT.Leeway,
		Log:    l,
	}
	a.Users = service.NewUserService(userRepo, hasher, l, opts...)
	a.Auth = service.NewAuthService(a.Users, hasher, a.JWT, l)

	cleanup := func() {
		if a.Cache != nil {
			_ = a.Cache.Close()
		}
		closeDB(db)
	}
	return a, cleanup, nil
}

// migrateOrClose runs the schema migration and releases the pool if it
// fails, since the caller gets no cleanup func in that case.
func migrateOrClose(ctx context.Context, db *gorm.DB, r *repo.UserRepo) error {
	if err := r.Migrate(ctx); err != nil {
		closeDB(db)
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (a *App) RouterDeps(cfg *config.Config, l *zap.Logger) router.Deps {
	return router.Deps{
		Log:        l,
		Users:      a.Users,
		Auth:       a.Auth,
		Verifier:   a.JWT,
		LoginRPS:   cfg.Security.LoginRPS,
		LoginBurst: cfg.Security.LoginBurst,
	}
}
