package oauth

import "net/url"

const (
	// InitialPage is the default post-login landing page.
	InitialPage = "/dashboard"

	// LoggedOutPage is where the host application sends users after logout.
	LoggedOutPage = "/user/logged_out_redirect"

	// CallbackPath is the fixed callback path registered with the
	// authorization server.
	CallbackPath = "/oauth2/callback"
)

// SafeCameFrom computes the post-login destination from the Referer header
// of the login request. Referrers pointing at a different host are replaced
// with the default landing page so a forged referrer can never turn the
// callback into an open redirect. The home and post-logout pages also fall
// back to the default, so the user is not bounced back to a logout screen.
//
// The result is always an internal-relative path or a same-host URL.
func SafeCameFrom(referer, host string) string {
	if referer == "" {
		return InitialPage
	}

	parsed, err := url.Parse(referer)
	if err != nil {
		return InitialPage
	}

	if parsed.Host != "" && parsed.Host != host {
		return InitialPage
	}

	if parsed.Path == "/" || parsed.Path == LoggedOutPage {
		return InitialPage
	}

	return referer
}
