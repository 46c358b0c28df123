package server

import (
	"context"
	"net/http"
	"os"

	cachepackage "oauth2-login/cache"
	"oauth2-login/config"
	"oauth2-login/database"
	"oauth2-login/handlers"
	"oauth2-login/oauth"
	"oauth2-login/store"

	"github.com/umakantv/go-utils/httpserver"
	"github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
)

// newAuthCheck validates the bearer token protecting the service API
// (token lookup/refresh, user lookup). The browser-facing login routes are
// registered without auth.
func newAuthCheck(apiToken string) func(r *http.Request) (bool, httpserver.RequestAuth) {
	return func(r *http.Request) (bool, httpserver.RequestAuth) {
		auth := r.Header.Get("Authorization")
		if auth == "" || apiToken == "" {
			return false, httpserver.RequestAuth{}
		}

		if len(auth) > 7 && auth[:7] == "Bearer " && auth[7:] == apiToken {
			return true, httpserver.RequestAuth{
				Type:   "bearer",
				Client: "service-api-client",
				Claims: map[string]interface{}{"service": "oauth2-login"},
			}
		}

		return false, httpserver.RequestAuth{}
	}
}

func StartServer() {
	// Initialize logger
	logger.Init(logger.LoggerConfig{
		CallerKey:  "file",
		TimeKey:    "timestamp",
		CallerSkip: 1,
	})

	logger.Info("Starting OAuth2 Login Service...")

	cfg := config.FromEnv()

	// Initialize database
	dbConn := database.InitializeDatabase(cfg.DatabaseFile, cfg.MigrationsDir)
	defer dbConn.Close()

	// Initialize cache
	cache := cachepackage.InitializeCache(cfg.RedisAddr)
	defer cache.Close()

	users := store.NewUserStore(dbConn)
	tokens := store.NewTokenStore(dbConn)

	// The rememberer issues the local session after a successful login.
	// An unrecognized name is a configuration mistake worth failing on.
	var rememberer oauth.Rememberer
	switch cfg.RemembererName {
	case "session":
		rememberer = oauth.NewSessionRememberer(cache)
	case "":
		rememberer = nil
	default:
		logger.Error("Unknown rememberer", zap.String("rememberer_name", cfg.RemembererName))
		os.Exit(1)
	}

	helper, err := oauth.NewHelper(oauth.Settings{
		AuthorizationEndpoint:   cfg.AuthorizationEndpoint,
		TokenEndpoint:           cfg.TokenEndpoint,
		ProfileAPIURL:           cfg.ProfileAPIURL,
		ClientID:                cfg.ClientID,
		ClientSecret:            cfg.ClientSecret,
		Scope:                   cfg.Scope,
		RemembererName:          cfg.RemembererName,
		ProfileAPIUserField:     cfg.ProfileAPIUserField,
		ProfileAPIFullnameField: cfg.ProfileAPIFullnameField,
		ProfileAPIMailField:     cfg.ProfileAPIMailField,
	}, users, tokens, rememberer)
	if err != nil {
		logger.Error("Invalid OAuth2 configuration", zap.Error(err))
		os.Exit(1)
	}

	// Create HTTP server with authentication
	server := httpserver.New(cfg.Port, newAuthCheck(cfg.ServiceAPIToken))

	// Register routes
	server.Register(httpserver.Route{
		Name:     "HealthCheck",
		Method:   "GET",
		Path:     "/health",
		AuthType: "none",
	}, httpserver.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "oauth2-login"}`))
	}))

	server.Register(httpserver.Route{
		Name:     "Login",
		Method:   "GET",
		Path:     "/user/login",
		AuthType: "none",
	}, handlers.LoginHandler(helper))

	server.Register(httpserver.Route{
		Name:     "OAuth2Callback",
		Method:   "GET",
		Path:     oauth.CallbackPath,
		AuthType: "none",
	}, handlers.CallbackHandler(helper, tokens, cache))

	server.Register(httpserver.Route{
		Name:     "Logout",
		Method:   "GET",
		Path:     "/user/logout",
		AuthType: "none",
	}, handlers.LogoutHandler(helper))

	server.Register(httpserver.Route{
		Name:     "GetToken",
		Method:   "GET",
		Path:     "/oauth2/tokens/{user_name}",
		AuthType: "bearer",
	}, handlers.GetTokenHandler(helper))

	server.Register(httpserver.Route{
		Name:     "RefreshToken",
		Method:   "POST",
		Path:     "/oauth2/tokens/{user_name}/refresh",
		AuthType: "bearer",
	}, handlers.RefreshTokenHandler(helper))

	server.Register(httpserver.Route{
		Name:     "GetUser",
		Method:   "GET",
		Path:     "/users/{name}",
		AuthType: "bearer",
	}, handlers.GetUserHandler(users, cache))

	logger.Info("OAuth2 Login Service started on port " + cfg.Port)
	logger.Info("Login flow: GET /user/login -> " + oauth.CallbackPath)
	logger.Info("Service API: GET/POST /oauth2/tokens, GET /users")

	// Start server
	if err := server.Start(); err != nil {
		logger.Error("Server failed to start", zap.Error(err))
		os.Exit(1)
	}
}
