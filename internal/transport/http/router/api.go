package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-gin-auth-service/internal/core/server"
	"go-gin-auth-service/internal/service"
	"go-gin-auth-service/internal/transport/http/ez"
	"go-gin-auth-service/internal/transport/http/handler"
	mdw "go-gin-auth-service/internal/transport/http/middleware"
)

type Deps struct {
	Log      *zap.Logger
	Users    *service.UserService
	Auth     *service.AuthService
	Verifier mdw.TokenVerifier

	// per-IP login limit; zero disables it
	LoginRPS   float64
	LoginBurst int
	// per-request deadline, default 10s
	RequestTimeout time.Duration
}

func base(d Deps, name string) *gin.Engine {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := server.NewRouter(d.Log)
	r.Use(
		mdw.RequestID(),
		mdw.AccessLog(d.Log, "/health", "/metrics"),
		mdw.Metrics(name),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(timeout),
	)
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func guard(v mdw.TokenVerifier) ez.Guard {
	return func(roles ...string) gin.HandlerFunc { return mdw.AuthJWT(v, roles...) }
}

// NewAPIEngine serves the user-facing API under /api/v1.
func NewAPIEngine(d Deps) *gin.Engine {
	r := base(d, "api")

	var loginMW []gin.HandlerFunc
	if d.LoginRPS > 0 {
		loginMW = append(loginMW, mdw.RateLimitPerIP(rate.Limit(d.LoginRPS), max(1, d.LoginBurst), 10*time.Minute))
	}

	api := r.Group("/api/v1")
	var routes ez.Table
	routes = append(routes, handler.NewAuthHandler(d.Auth, loginMW...).Routes()...)
	routes = append(routes, handler.NewUserHandler(d.Users).Routes()...)
	ez.Mount(api, guard(d.Verifier), routes)
	return r
}
