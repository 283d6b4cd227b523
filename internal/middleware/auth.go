package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"settlement-service/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextEmail  = "email"
)

type Authenticator struct {
	Secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{Secret: []byte(secret)}
}

type Identity struct {
	UserID string
	Role   string
	Email  string
}

// Parse validates an HS256 bearer token and extracts the caller identity.
func (a *Authenticator) Parse(header string) (*Identity, error) {
	if len(a.Secret) == 0 {
		return nil, errors.New("authentication is not configured")
	}
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenStr == "" {
		return nil, errors.New("missing bearer token")
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	identity := &Identity{UserID: claimString(claims, "id")}
	if identity.UserID == "" {
		identity.UserID = claimString(claims, "sub")
	}
	if identity.UserID == "" {
		return nil, errors.New("token has no subject")
	}
	identity.Role = claimString(claims, "role")
	identity.Email = claimString(claims, "email")
	return identity, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

func (a *Authenticator) set(c *gin.Context, identity *Identity) {
	c.Set(ContextUserID, identity.UserID)
	c.Set(ContextRole, identity.Role)
	c.Set(ContextEmail, identity.Email)
}

// RequireAuth rejects requests without a valid bearer token.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := a.Parse(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("Unauthorized", nil, http.StatusUnauthorized))
			return
		}
		a.set(c, identity)
		c.Next()
	}
}

// OptionalAuth attaches the caller identity when a valid token is present.
// Guests pass through.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			if identity, err := a.Parse(header); err == nil {
				a.set(c, identity)
			}
		}
		c.Next()
	}
}

// RequireRoles ensures the caller's role is one of roles. It must run after
// RequireAuth.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, common.NewErrorResponse("role missing", nil, http.StatusForbidden))
			return
		}
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, common.NewErrorResponse("access denied", nil, http.StatusForbidden))
	}
}
