package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-auth-service/internal/service"
	"go-gin-auth-service/internal/transport/http/ez"
)

type AuthHandler struct {
	auth *service.AuthService
	// extra middleware for the login route, e.g. a per-IP rate limit
	loginMW []gin.HandlerFunc
}

func NewAuthHandler(a *service.AuthService, loginMW ...gin.HandlerFunc) *AuthHandler {
	return &AuthHandler{auth: a, loginMW: loginMW}
}

type loginIn struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Routes() ez.Table {
	return ez.Table{
		{
			Method:     http.MethodPost,
			Path:       "/auth/login",
			Public:     true,
			Middleware: h.loginMW,
			Handler: ez.Handle(ez.Action[loginIn, *service.LoginResult]{
				Binder: ez.BindJSON,
				Handler: func(c *gin.Context, in *loginIn) (*service.LoginResult, error) {
					return h.auth.Login(c.Request.Context(), service.Credentials{Email: in.Email, Password: in.Password})
				},
			}),
		},
	}
}
