package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userContextKey = "UserID"
	tokenTTL       = 72 * time.Hour
)

// UserClaims represents JWT claims for authenticated users. Tokens are
// issued by the trading backend and share its secret.
type UserClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

func generateToken(userID, secret string, expiresAt time.Time) (string, error) {
	claims := UserClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseToken(tokenStr, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims.UserID, nil
	}
	return "", errors.New("invalid token claims")
}

// bearerToken extracts the token from the Authorization header, falling back
// to the token query parameter browsers use for socket upgrades.
func bearerToken(c *gin.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if q := c.Query("token"); q != "" {
			return q, ""
		}
		return "", "MISSING_TOKEN"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "INVALID_AUTH_HEADER"
	}
	return parts[1], ""
}

// AuthMiddleware enforces JWT auth for protected routes.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, code := bearerToken(c)
		switch code {
		case "MISSING_TOKEN":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  code,
				"error": "missing Authorization header",
			})
			return
		case "INVALID_AUTH_HEADER":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  code,
				"error": "invalid Authorization header",
			})
			return
		}

		userID, err := parseToken(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  "INVALID_TOKEN",
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(userContextKey, userID)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	if v, ok := c.Get(userContextKey); ok {
		if id, okCast := v.(string); okCast {
			return id
		}
	}
	return ""
}

// refreshToken reissues a token for the current user with a fresh expiry.
func (s *Server) refreshToken(c *gin.Context) {
	userID := CurrentUserID(c)
	if userID == "" {
		respondError(c, http.StatusUnauthorized, "AUTH_DISABLED", "no authenticated user")
		return
	}
	expiresAt := time.Now().Add(tokenTTL)
	token, err := generateToken(userID, s.opts.JWTSecret, expiresAt)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to generate token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
		"user_id":    userID,
	})
}
