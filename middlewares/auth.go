package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	SessionCookie = "admin_session"
	sessionTTL    = 24 * time.Hour
)

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// CreateSession stores a fresh admin session token in redis and returns
// it for the login handler to set as a cookie.
func CreateSession(c *gin.Context, rdb *redis.Client) (string, error) {
	token := uuid.NewString()
	if err := rdb.Set(c.Request.Context(), sessionKey(token), "1", sessionTTL).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func DestroySession(c *gin.Context, rdb *redis.Client, token string) {
	rdb.Del(c.Request.Context(), sessionKey(token))
}

// AdminAuth gates the back office: requests need a live session cookie.
func AdminAuth(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
			return
		}
		ok, err := rdb.Exists(c.Request.Context(), sessionKey(token)).Result()
		if err != nil || ok == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
		c.Next()
	}
}
