package router

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/servicehooks/userbase/internal/application"
	handlers "github.com/servicehooks/userbase/internal/interface/http"
	"github.com/servicehooks/userbase/internal/router/modules"
	"github.com/servicehooks/userbase/pkg/helpers"
)

// Deps carries everything the route modules need. Instances are built
// once at startup and passed in explicitly; there is no ambient lookup.
type Deps struct {
	Auth   *application.AuthService
	Users  *application.UserService
	Tokens *helpers.TokenManager
	Redis  *redis.Client
	Logger *logrus.Logger
}

// InitModules registers all feature modules with the registry.
func InitModules(r *Registry, d Deps) {
	authHandler := handlers.NewAuthHandler(d.Auth, d.Logger)
	userHandler := handlers.NewUserHandler(d.Users, d.Logger)

	r.Add(modules.NewAuthModule(authHandler, d.Tokens, d.Redis))
	r.Add(modules.NewUserModule(userHandler, d.Tokens, d.Redis))
}
