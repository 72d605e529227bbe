package router

import (
	"github.com/gin-gonic/gin"

	"go-gin-auth-service/internal/transport/http/ez"
	"go-gin-auth-service/internal/transport/http/handler"
)

// NewAdminEngine serves account moderation under /admin/v1.
func NewAdminEngine(d Deps) *gin.Engine {
	r := base(d, "admin")
	admin := r.Group("/admin/v1")
	ez.Mount(admin, guard(d.Verifier), handler.NewAdminHandler(d.Users).Routes())
	return r
}
