package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/kacamatagratis/kacamatagratis/middlewares"
	"github.com/kacamatagratis/kacamatagratis/pkg/utils"
)

type AuthHandler struct {
	rdb *redis.Client
}

func NewAuthHandler(rdb *redis.Client) *AuthHandler {
	return &AuthHandler{rdb: rdb}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expected := utils.GetEnv("ADMIN_PASSWORD")
	if expected == "" || subtle.ConstantTimeCompare([]byte(body.Password), []byte(expected)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
		return
	}

	token, err := middlewares.CreateSession(c, h.rdb)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.SetCookie(middlewares.SessionCookie, token, 24*60*60, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(middlewares.SessionCookie); err == nil && token != "" {
		middlewares.DestroySession(c, h.rdb, token)
	}
	c.SetCookie(middlewares.SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
