package middleware

import (
	"fmt"
	"strings"

	"github.com/brahimakil/chibox-cms-sub000/internal/shared/actor"
	"github.com/brahimakil/chibox-cms-sub000/internal/shared/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AuthorizationHeader is the header key for authorization.
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens.
	BearerPrefix = "Bearer "
	// ActorKey is the gin context key for the authenticated actor.
	ActorKey = "actor"
)

// actorClaims are the JWT claims issued by the identity service.
type actorClaims struct {
	Role        string   `json:"role"`
	Permissions []string `json:"perms"`
	jwt.RegisteredClaims
}

// Auth returns a middleware that validates bearer tokens and places the
// resulting actor context on the request. Token issuance lives in the
// identity service; this only verifies.
func Auth(jwtSecret string) gin.HandlerFunc {
	secret := []byte(jwtSecret)
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			response.AbortUnauthorized(c, "missing_token")
			return
		}

		claims := &actorClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !parsed.Valid {
			response.AbortUnauthorized(c, "invalid_token")
			return
		}

		actorID, err := uuid.Parse(claims.Subject)
		if err != nil {
			response.AbortUnauthorized(c, "invalid_token")
			return
		}

		a := actor.Context{
			ID:          actorID,
			Role:        claims.Role,
			Permissions: claims.Permissions,
		}
		c.Set(ActorKey, a)
		c.Request = c.Request.WithContext(actor.WithContext(c.Request.Context(), a))

		c.Next()
	}
}

// GetActor returns the authenticated actor from the gin context.
func GetActor(c *gin.Context) (actor.Context, bool) {
	v, exists := c.Get(ActorKey)
	if !exists {
		return actor.Context{}, false
	}
	a, ok := v.(actor.Context)
	return a, ok
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader(AuthorizationHeader)
	if !strings.HasPrefix(header, BearerPrefix) {
		return ""
	}
	return strings.TrimPrefix(header, BearerPrefix)
}
