// file: internal/server/middleware/basicauth.go
// version: 2.0.0
// guid: a1b2c3d4-e5f6-7a8b-9c0d-1e2f3a4b5c6d

package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/book-search/internal/config"
	"golang.org/x/crypto/bcrypt"
)

const basicAuthRealm = `Basic realm="Book Search"`

// HashPassword returns the bcrypt hash stored as basic_auth_password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// BasicAuth returns a Gin middleware that enforces HTTP Basic Authentication
// when config.AppConfig.BasicAuthEnabled is true. The configured password
// is a bcrypt hash. Health endpoints are exempt.
func BasicAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.AppConfig.BasicAuthEnabled {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		if path == "/health" || path == "/api/v1/health" {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", basicAuthRealm)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		expectedUser := config.AppConfig.BasicAuthUsername
		expectedHash := config.AppConfig.BasicAuthPassword

		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(expectedUser)) == 1
		passMatch := bcrypt.CompareHashAndPassword([]byte(expectedHash), []byte(pass)) == nil

		if !userMatch || !passMatch {
			c.Header("WWW-Authenticate", basicAuthRealm)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set("auth_user", user)
		c.Next()
	}
}
