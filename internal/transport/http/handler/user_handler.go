package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-auth-service/internal/domain"
	"go-gin-auth-service/internal/service"
	"go-gin-auth-service/internal/transport/http/ez"
	mdw "go-gin-auth-service/internal/transport/http/middleware"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(u *service.UserService) *UserHandler { return &UserHandler{users: u} }

type createUserIn struct {
	Email     string `json:"email"     binding:"required,email,max=191"`
	Password  string `json:"password"  binding:"required,min=8,max=72"`
	FirstName string `json:"firstName" binding:"max=64"`
	LastName  string `json:"lastName"  binding:"max=64"`
}

type updateUserIn struct {
	Email     *string `json:"email"     binding:"omitempty,email,max=191"`
	Password  *string `json:"password"  binding:"omitempty,min=8,max=72"`
	FirstName *string `json:"firstName" binding:"omitempty,max=64"`
	LastName  *string `json:"lastName"  binding:"omitempty,max=64"`
}

type listQ struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

type none struct{}

func (h *UserHandler) Routes() ez.Table {
	return ez.Table{
		{
			Method: http.MethodPost,
			Path:   "/users",
			Public: true,
			Handler: ez.Handle(ez.Action[createUserIn, domain.PublicUser]{
				Binder: ez.BindJSON,
				Status: http.StatusCreated,
				Handler: func(c *gin.Context, in *createUserIn) (domain.PublicUser, error) {
					return h.users.Create(c.Request.Context(), service.CreateUserInput{
						Email:     in.Email,
						Password:  in.Password,
						FirstName: in.FirstName,
						LastName:  in.LastName,
					})
				},
			}),
		},
		{
			Method:  http.MethodGet,
			Path:    "/users",
			Handler: listHandler(h.users),
		},
		{
			Method: http.MethodGet,
			Path:   "/users/:id",
			Handler: ez.Handle(ez.Action[none, domain.PublicUser]{
				Binder: ez.BindNone,
				Handler: func(c *gin.Context, _ *none) (domain.PublicUser, error) {
					return h.users.Get(c.Request.Context(), c.Param("id"))
				},
			}),
		},
		{
			Method: http.MethodPatch,
			Path:   "/users/:id",
			Handler: ez.Handle(ez.Action[updateUserIn, domain.PublicUser]{
				Binder: ez.BindJSON,
				Handler: func(c *gin.Context, in *updateUserIn) (domain.PublicUser, error) {
					return h.users.Update(c.Request.Context(), c.Param("id"), service.UserPatch{
						Email:     in.Email,
						Password:  in.Password,
						FirstName: in.FirstName,
						LastName:  in.LastName,
					})
				},
			}),
		},
		{
			Method: http.MethodDelete,
			Path:   "/users/:id",
			Handler: ez.Handle(ez.Action[none, none]{
				Binder: ez.BindNone,
				Status: http.StatusNoContent,
				Handler: func(c *gin.Context, _ *none) (none, error) {
					return none{}, h.users.Remove(c.Request.Context(), c.Param("id"))
				},
			}),
		},
		{
			Method: http.MethodGet,
			Path:   "/me",
			Handler: ez.Handle(ez.Action[none, domain.PublicUser]{
				Binder: ez.BindNone,
				Handler: func(c *gin.Context, _ *none) (domain.PublicUser, error) {
					id, ok := mdw.Identity(c)
					if !ok {
						return domain.PublicUser{}, domain.ErrUnauthorized
					}
					return h.users.Get(c.Request.Context(), id.SubjectID)
				},
			}),
		},
	}
}

func listHandler(users *service.UserService) gin.HandlerFunc {
	return ez.Handle(ez.Action[listQ, domain.Page]{
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *listQ) (domain.Page, error) {
			return users.List(c.Request.Context(), in.Page, in.Limit)
		},
	})
}
