package ez

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "go-gin-auth-service/internal/transport/http/response"
)

type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none" // handler reads c.Param itself
)

// Action is a typed handler: I is bound from the request, O is written
// as the data of the success envelope.
type Action[I any, O any] struct {
	Binder Binder
	// Status on success, default 200. 204 writes no body.
	Status  int
	Handler func(c *gin.Context, in *I) (O, error)
}

type bindError struct{ err error }

func (e *bindError) Error() string { return e.err.Error() }
func (e *bindError) Unwrap() error { return e.err }

func Handle[I any, O any](a Action[I, O]) gin.HandlerFunc {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	return func(c *gin.Context) {
		var in I
		var err error
		switch a.Binder {
		case BindJSON:
			err = c.ShouldBindJSON(&in)
		case BindQuery:
			err = c.ShouldBindQuery(&in)
		}
		if err != nil {
			WriteError(c, &bindError{err: err})
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			WriteError(c, err)
			return
		}
		if status == http.StatusNoContent {
			c.Status(status)
			return
		}
		c.JSON(status, resp.OK(out))
	}
}
