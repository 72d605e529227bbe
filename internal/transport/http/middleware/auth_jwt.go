package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-gin-auth-service/internal/core/auth"
	resp "go-gin-auth-service/internal/transport/http/response"
)

const keyIdentity = "identity"

type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// AuthJWT rejects the request unless it carries a valid bearer token and,
// when roles are given, the token's role is one of them. On success the
// identity is available through Identity(c) and auth.FromContext.
func AuthJWT(v TokenVerifier, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		id, err := v.Verify(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		if len(roles) > 0 && !hasRole(id.Role, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, resp.Error(resp.CodeForbidden, "forbidden"))
			return
		}
		c.Set(keyIdentity, id)
		c.Request = c.Request.WithContext(auth.NewContext(c.Request.Context(), id))
		c.Next()
	}
}

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, tok, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

func Identity(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(keyIdentity)
	if !ok {
		return nil, false
	}
	id, ok := v.(*auth.Identity)
	return id, ok
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
