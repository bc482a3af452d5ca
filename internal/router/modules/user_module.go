package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/servicehooks/userbase/internal/interface/http"
	"github.com/servicehooks/userbase/internal/interface/middleware"
	"github.com/servicehooks/userbase/pkg/helpers"
)

// UserModule wires the user management routes. Reads are public;
// mutations require a session token.
type UserModule struct {
	Handler *handlers.UserHandler
	Tokens  *helpers.TokenManager
	Redis   *redis.Client
}

func NewUserModule(h *handlers.UserHandler, tokens *helpers.TokenManager, rdb *redis.Client) *UserModule {
	return &UserModule{Handler: h, Tokens: tokens, Redis: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	readLimiter := middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByIP())

	rg.GET("/users", readLimiter, m.Handler.List)
	rg.GET("/users/search", readLimiter, m.Handler.Search)
	rg.GET("/users/stats", readLimiter, m.Handler.Stats)
	rg.GET("/users/:id", readLimiter, m.Handler.Get)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Tokens))
	auth.Use(middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID()))
	{
		auth.PUT("/users/:id", m.Handler.Update)
		auth.DELETE("/users/:id", m.Handler.Delete)
		auth.POST("/users/:id/deactivate", m.Handler.Deactivate)
		auth.POST("/users/:id/activate", m.Handler.Activate)
		auth.PUT("/users/:id/role", m.Handler.ChangeRole)
	}
}
