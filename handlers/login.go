package handlers

import (
	"context"
	"net/http"

	"oauth2-login/oauth"

	"github.com/umakantv/go-utils/httpserver"
	"go.uber.org/zap"
)

// LoginHandler handles GET /user/login - starts the OAuth2 login flow.
// The helper sanitizes the referrer into a safe return URL, encodes it into
// the state parameter and 302-redirects to the authorization endpoint.
func LoginHandler(helper *oauth.Helper) httpserver.HandlerFunc {
	return httpserver.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		logRequest(ctx, "info", "Login challenge")
		helper.Challenge(w, r)
	})
}

// LogoutHandler handles GET /user/logout - revokes the local session via the
// rememberer and redirects to the post-logout landing page.
func LogoutHandler(helper *oauth.Helper) httpserver.HandlerFunc {
	return httpserver.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		logRequest(ctx, "info", "Logout")

		if err := helper.Forget(w, r); err != nil {
			logRequest(ctx, "error", "Failed to revoke session", zap.Error(err))
		}
		http.Redirect(w, r, oauth.LoggedOutPage, http.StatusFound)
	})
}
