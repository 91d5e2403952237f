package bootstrap

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/go-sim-projects/config"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/auth"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/auth/middleware"
)

// NeedsFirebase reports whether cfg uses any Firebase service.
func NeedsFirebase(cfg *config.Config) bool {
	return cfg.Auth.Mode == config.AuthFirebase || cfg.Store.Backend == config.BackendFirestore
}

// Authenticator returns the middleware that resolves the request owner.
func Authenticator(ctx context.Context, cfg *config.Config, app *firebase.App) (gin.HandlerFunc, error) {
	switch cfg.Auth.Mode {
	case config.AuthHeader:
		return auth.OptionalUser(cfg.Auth.DevUser), nil
	case config.AuthFirebase:
		if app == nil {
			return nil, fmt.Errorf("firebase auth requires a firebase app")
		}
		client, err := auth.NewAuthClient(ctx, app)
		if err != nil {
			return nil, err
		}
		return middleware.FirebaseAuthMiddleware(client), nil
	}
	return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
}
