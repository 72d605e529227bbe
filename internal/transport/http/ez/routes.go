package ez

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// Route is one row of a route table. Every route that is not Public is
// mounted behind the guard, ahead of its own middleware and handler.
type Route struct {
	Method     string
	Path       string
	Public     bool
	Roles      []string // only for non-public routes
	Middleware []gin.HandlerFunc
	Handler    gin.HandlerFunc
}

type Table []Route

// Guard builds the authorization middleware for a route's roles.
type Guard func(roles ...string) gin.HandlerFunc

func Mount(g *gin.RouterGroup, guard Guard, routes Table) {
	for _, r := range routes {
		if !r.Public && guard == nil {
			panic(fmt.Sprintf("ez: %s %s is protected but no guard given", r.Method, r.Path))
		}
		chain := make([]gin.HandlerFunc, 0, len(r.Middleware)+2)
		if !r.Public {
			chain = append(chain, guard(r.Roles...))
		}
		chain = append(chain, r.Middleware...)
		chain = append(chain, r.Handler)
		g.Handle(r.Method, r.Path, chain...)
	}
}
