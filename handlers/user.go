package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"oauth2-login/oauth"

	"github.com/gorilla/mux"
	"github.com/umakantv/go-utils/cache"
	"github.com/umakantv/go-utils/errs"
	"github.com/umakantv/go-utils/httpserver"
	"go.uber.org/zap"
)

// GetUserHandler handles GET /users/{name} - returns the local user record
// provisioned by the login flow, with a cache read-through.
func GetUserHandler(users oauth.UserStore, cache cache.Cache) httpserver.HandlerFunc {
	return httpserver.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		logRequest(ctx, "info", "Getting user", zap.String("name", name))

		// Try cache first
		cacheKey := "user:" + name
		if cached, err := cache.Get(cacheKey); err == nil {
			if body, ok := cached.([]byte); ok {
				logRequest(ctx, "debug", "Serving user from cache", zap.String("name", name))
				w.Header().Set("Content-Type", "application/json")
				w.Write(body)
				return
			}
		}

		user, err := users.ByName(ctx, name)
		if err != nil {
			logRequest(ctx, "error", "Failed to query user", zap.Error(err), zap.String("name", name))
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(errs.NewInternalServerError("Database error"))
			return
		}
		if user == nil {
			logRequest(ctx, "info", "User not found", zap.String("name", name))
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(errs.NewNotFoundError("User not found"))
			return
		}

		response, _ := json.Marshal(user)
		cache.Set(cacheKey, response, 10*time.Minute)

		w.Header().Set("Content-Type", "application/json")
		w.Write(response)
	})
}
