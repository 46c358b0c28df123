package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"oauth2-login/models"
	"oauth2-login/oauth"

	"github.com/gorilla/mux"
	"github.com/umakantv/go-utils/errs"
	"github.com/umakantv/go-utils/httpserver"
	"go.uber.org/zap"
)

// GetTokenHandler handles GET /oauth2/tokens/{user_name} - returns the
// stored token record for a user.
func GetTokenHandler(helper *oauth.Helper) httpserver.HandlerFunc {
	return httpserver.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		userName := mux.Vars(r)["user_name"]
		logRequest(ctx, "info", "Getting token", zap.String("user_name", userName))

		token, err := helper.GetToken(ctx, userName)
		if err != nil {
			logRequest(ctx, "error", "Failed to load token", zap.Error(err), zap.String("user_name", userName))
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(errs.NewInternalServerError("Database error"))
			return
		}
		if token == nil {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(errs.NewNotFoundError("User has no stored token"))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.TokenResponse{
			AccessToken:  token.AccessToken,
			TokenType:    token.TokenType,
			ExpiresIn:    token.ExpiresIn,
			RefreshToken: token.RefreshToken,
		})
	})
}

// RefreshTokenHandler handles POST /oauth2/tokens/{user_name}/refresh -
// performs the refresh-token grant and returns the new record. A refresh
// failure is surfaced, not swallowed: the stored credential may be stale and
// the caller has to know.
func RefreshTokenHandler(helper *oauth.Helper) httpserver.HandlerFunc {
	return httpserver.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		userName := mux.Vars(r)["user_name"]
		logRequest(ctx, "info", "Refreshing token", zap.String("user_name", userName))

		token, err := helper.RefreshToken(ctx, userName)
		if err != nil {
			var refreshErr *oauth.TokenRefreshError
			if errors.As(err, &refreshErr) {
				logRequest(ctx, "error", "Token refresh failed", zap.Error(err), zap.String("user_name", userName))
				w.WriteHeader(http.StatusBadGateway)
				json.NewEncoder(w).Encode(errs.NewInternalServerError("Token refresh failed"))
				return
			}
			logRequest(ctx, "error", "Failed to refresh token", zap.Error(err), zap.String("user_name", userName))
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(errs.NewInternalServerError("Database error"))
			return
		}
		if token == nil {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(errs.NewNotFoundError("User has no refresh token"))
			return
		}

		logRequest(ctx, "info", "Token refreshed", zap.String("user_name", userName))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.TokenResponse{
			AccessToken:  token.AccessToken,
			TokenType:    token.TokenType,
			ExpiresIn:    token.ExpiresIn,
			RefreshToken: token.RefreshToken,
		})
	})
}
