package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/servicehooks/userbase/internal/interface/http"
	"github.com/servicehooks/userbase/internal/interface/middleware"
	"github.com/servicehooks/userbase/pkg/helpers"
)

// AuthModule wires the session lifecycle routes.
// Public: signup, signin, signout, reset, me.
// Protected: password update, email verify, token refresh.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Tokens  *helpers.TokenManager
	Redis   *redis.Client
}

func NewAuthModule(h *handlers.AuthHandler, tokens *helpers.TokenManager, rdb *redis.Client) *AuthModule {
	return &AuthModule{Handler: h, Tokens: tokens, Redis: rdb}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	signInLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIPAndPath())
	resetLimiter := middleware.RateLimit(m.Redis, 5, time.Minute, middleware.KeyByIPAndPath())

	rg.POST("/auth/signup", signInLimiter, m.Handler.SignUp)
	rg.POST("/auth/signin", signInLimiter, m.Handler.SignIn)
	rg.POST("/auth/signout", m.Handler.SignOut)
	rg.POST("/auth/reset", resetLimiter, m.Handler.ResetPassword)
	rg.GET("/auth/me", m.Handler.Me)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Tokens))
	auth.Use(middleware.RateLimit(m.Redis, 60, time.Minute, middleware.KeyByUserID()))
	{
		auth.PUT("/auth/password", m.Handler.UpdatePassword)
		auth.POST("/auth/verify", m.Handler.VerifyEmail)
		auth.GET("/auth/token", m.Handler.Token)
	}
}
