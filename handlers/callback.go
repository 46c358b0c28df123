package handlers

import (
	"context"
	"errors"
	"net/http"

	"oauth2-login/oauth"

	"github.com/umakantv/go-utils/cache"
	"github.com/umakantv/go-utils/httpserver"
	"go.uber.org/zap"
)

// CallbackHandler handles GET /oauth2/callback - the return leg of the
// authorization-code grant. It runs identify -> authenticate -> token
// persistence -> remember -> redirect. Every failure collapses to an
// anonymous redirect to the home page: an interactive login that did not
// happen must never crash the request or leave partial state behind.
func CallbackHandler(helper *oauth.Helper, tokens oauth.TokenStore, cache cache.Cache) httpserver.HandlerFunc {
	return httpserver.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		logRequest(ctx, "info", "OAuth2 callback")

		identity := helper.Identify(r)
		if identity == nil {
			// Identify already logged the cause.
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		identity, err := helper.Authenticate(ctx, identity)
		if err != nil {
			var invalidToken *oauth.InvalidTokenError
			if errors.As(err, &invalidToken) {
				logRequest(ctx, "error", "Profile endpoint rejected the token",
					zap.String("description", invalidToken.Description))
			} else {
				logRequest(ctx, "error", "Authentication failed", zap.Error(err))
			}
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		if identity == nil {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		// Login fully succeeded; only now does the token record exist.
		record := oauth.TokenRecord(identity.UserID, identity.Token)
		if err := tokens.UpdateToken(ctx, identity.UserID, record); err != nil {
			logRequest(ctx, "error", "Failed to persist token", zap.Error(err),
				zap.String("user_name", identity.UserID))
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		// The user record may have changed; drop the cached copy.
		cache.Delete("user:" + identity.UserID)

		if err := helper.Remember(w, r, identity); err != nil {
			logRequest(ctx, "error", "Failed to establish session", zap.Error(err),
				zap.String("user_name", identity.UserID))
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		logRequest(ctx, "info", "Login completed", zap.String("user_name", identity.UserID))
		helper.RedirectFromCallback(w, r, identity)
	})
}
