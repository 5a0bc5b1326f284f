package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gatherly/api/internal/helpers"
)

func parseBearerToken(c *gin.Context) (uuid.UUID, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return uuid.Nil, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return uuid.Nil, false
	}

	secret := os.Getenv("JWT_SECRET")
	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, false
	}
	rawID, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

// JWTAuthMiddleware rejects requests without a valid bearer token.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := parseBearerToken(c)
		if !ok {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid or missing token.")
			c.Abort()
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

// OptionalJWTAuthMiddleware resolves the caller's identity when a token is
// present but lets anonymous requests through. Public event reads depend on
// this.
func OptionalJWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := parseBearerToken(c); ok {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}
