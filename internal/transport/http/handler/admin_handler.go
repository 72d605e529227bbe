package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-auth-service/internal/domain"
	"go-gin-auth-service/internal/service"
	"go-gin-auth-service/internal/transport/http/ez"
)

// AdminHandler serves account moderation. Every route requires the admin
// role.
type AdminHandler struct {
	users *service.UserService
}

func NewAdminHandler(u *service.UserService) *AdminHandler { return &AdminHandler{users: u} }

type roleIn struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

func (h *AdminHandler) Routes() ez.Table {
	admin := []string{domain.RoleAdmin}
	return ez.Table{
		{
			Method:  http.MethodGet,
			Path:    "/users",
			Roles:   admin,
			Handler: listHandler(h.users),
		},
		{
			Method:  http.MethodPost,
			Path:    "/users/:id/ban",
			Roles:   admin,
			Handler: h.setActive(false),
		},
		{
			Method:  http.MethodPost,
			Path:    "/users/:id/unban",
			Roles:   admin,
			Handler: h.setActive(true),
		},
		{
			Method: http.MethodPatch,
			Path:   "/users/:id/role",
			Roles:  admin,
			Handler: ez.Handle(ez.Action[roleIn, domain.PublicUser]{
				Binder: ez.BindJSON,
				Handler: func(c *gin.Context, in *roleIn) (domain.PublicUser, error) {
					return h.users.Update(c.Request.Context(), c.Param("id"), service.UserPatch{Role: &in.Role})
				},
			}),
		},
	}
}

func (h *AdminHandler) setActive(active bool) gin.HandlerFunc {
	return ez.Handle(ez.Action[none, domain.PublicUser]{
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *none) (domain.PublicUser, error) {
			return h.users.Update(c.Request.Context(), c.Param("id"), service.UserPatch{IsActive: &active})
		},
	})
}
