package ez

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-auth-service/internal/core/auth"
	"go-gin-auth-service/internal/domain"
	resp "go-gin-auth-service/internal/transport/http/response"
)

// WriteError is the one place domain errors become HTTP responses. Only
// fixed messages reach the client; unexpected errors are attached to the
// gin context for the access log and answered with a bare 500.
func WriteError(c *gin.Context, err error) {
	status, body := Map(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

func Map(err error) (int, resp.Resp) {
	var (
		be *bindError
		ce *domain.ConflictError
		me *http.MaxBytesError
	)
	switch {
	case errors.As(err, &me):
		return http.StatusRequestEntityTooLarge, resp.Error(resp.CodeTooLarge, "request body too large")
	case errors.As(err, &be):
		return http.StatusBadRequest, resp.Error(resp.CodeBadRequest, "invalid request: "+be.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, resp.Error(resp.CodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "invalid token")
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, resp.Error(resp.CodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, resp.Error(resp.CodeNotFound, "not found")
	case errors.As(err, &ce):
		return http.StatusConflict, resp.ErrorWithData(resp.CodeConflict, ce.Error(), gin.H{"field": ce.Field})
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, resp.Error(resp.CodeConflict, "conflict")
	default:
		return http.StatusInternalServerError, resp.Error(resp.CodeServerError, "internal error")
	}
}
