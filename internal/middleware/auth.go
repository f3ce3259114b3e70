// Package middleware provides gin middleware for the coordinator's HTTP
// surface.
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/srdtrk/nft-ica/internal/config"
)

// CallerAddressKey is the gin context key holding the authenticated caller
// address.
const CallerAddressKey = "caller_address"

// Claims is the JWT claim set carried by execute callers. The address
// claim is the caller identity the authorization gate checks against
// ledger ownership.
type Claims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies bearer JWTs on the execute surface.
type AuthMiddleware struct {
	cfg    config.AuthConfig
	logger *logrus.Logger
}

// NewAuthMiddleware creates an AuthMiddleware.
func NewAuthMiddleware(cfg config.AuthConfig, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg, logger: logger}
}

// RequireAuth aborts requests without a valid bearer token and stores the
// caller address in the context for handlers.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "missing or malformed Authorization header",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := a.validate(tokenString)
		if err != nil {
			a.logger.WithFields(logrus.Fields{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			}).Warn("JWT validation failed")

			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(CallerAddressKey, claims.Address)
		c.Next()
	}
}

func (a *AuthMiddleware) validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(a.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Address == "" {
		return nil, fmt.Errorf("token carries no address claim")
	}
	if a.cfg.Issuer != "" && claims.Issuer != a.cfg.Issuer {
		return nil, fmt.Errorf("unexpected issuer %s", claims.Issuer)
	}
	return claims, nil
}

// CallerAddress returns the authenticated caller address set by
// RequireAuth.
func CallerAddress(c *gin.Context) string {
	if v, ok := c.Get(CallerAddressKey); ok {
		if addr, ok := v.(string); ok {
			return addr
		}
	}
	return ""
}
