package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"oauth2-login/models"

	logger "github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// outboundTimeout bounds every call to the authorization, token and profile
// endpoints. An unresponsive external server must not hang the serving
// goroutine indefinitely.
const outboundTimeout = 15 * time.Second

// Settings holds the process-wide OAuth2 configuration, loaded once at
// startup and immutable afterwards.
type Settings struct {
	AuthorizationEndpoint   string
	TokenEndpoint           string
	ProfileAPIURL           string
	ClientID                string
	ClientSecret            string
	Scope                   string // space-separated
	RemembererName          string
	ProfileAPIUserField     string
	ProfileAPIFullnameField string
	ProfileAPIMailField     string
}

// Identity is the in-memory result of one login flow. It carries the token
// acquired during Identify and the sanitized came-from URL; UserID is
// attached once Authenticate maps the profile to a local user.
type Identity struct {
	Token    *oauth2.Token
	CameFrom string
	UserID   string
}

// UserStore is the persistent user-identity collaborator.
type UserStore interface {
	// ByName returns nil when no user with that name exists.
	ByName(ctx context.Context, name string) (*models.User, error)
	// Save upserts the user record.
	Save(ctx context.Context, user *models.User) error
}

// TokenStore persists one token record per local user name.
type TokenStore interface {
	// GetToken returns nil when the user has no stored token.
	GetToken(ctx context.Context, userName string) (*models.UserToken, error)
	// UpdateToken upserts the record, overwriting all fields.
	UpdateToken(ctx context.Context, userName string, token *models.UserToken) error
}

// Rememberer issues and revokes the local session for an authenticated
// identity. The helper never knows its mechanism; it only copies the headers
// the rememberer produces onto the outgoing response.
type Rememberer interface {
	Remember(r *http.Request, identity *Identity) (http.Header, error)
	Forget(r *http.Request) (http.Header, error)
}

// Helper drives the OAuth2 authorization-code login flow:
// Challenge redirects the browser to the authorization server, Identify
// exchanges the callback code for a token, Authenticate maps the remote
// profile onto a local user, Remember delegates session issuance, and
// RedirectFromCallback sends the user back where they came from.
type Helper struct {
	settings   Settings
	scopes     []string
	client     *http.Client
	users      UserStore
	tokens     TokenStore
	rememberer Rememberer
}

// NewHelper validates the settings and builds the flow controller.
// authorization endpoint, token endpoint, profile API URL, client id, client
// secret and the profile user field are all mandatory; a *ConfigurationError
// listing the absent ones is returned otherwise.
func NewHelper(settings Settings, users UserStore, tokens TokenStore, rememberer Rememberer) (*Helper, error) {
	var missing []string
	for name, value := range map[string]string{
		"authorization_endpoint": settings.AuthorizationEndpoint,
		"token_endpoint":         settings.TokenEndpoint,
		"profile_api_url":        settings.ProfileAPIURL,
		"client_id":              settings.ClientID,
		"client_secret":          settings.ClientSecret,
		"profile_api_user_field": settings.ProfileAPIUserField,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &ConfigurationError{Missing: missing}
	}

	return &Helper{
		settings:   settings,
		scopes:     strings.Fields(settings.Scope),
		client:     &http.Client{Timeout: outboundTimeout},
		users:      users,
		tokens:     tokens,
		rememberer: rememberer,
	}, nil
}

// redirectURI is the exact callback URL for the request's host, which must
// match between the challenge redirect and the code exchange.
func (h *Helper) redirectURI(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + CallbackPath
}

func (h *Helper) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.settings.ClientID,
		ClientSecret: h.settings.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  h.settings.AuthorizationEndpoint,
			TokenURL: h.settings.TokenEndpoint,
		},
		RedirectURL: redirectURI,
		Scopes:      h.scopes,
	}
}

// outboundContext routes every x/oauth2 call through the bounded-timeout
// client.
func (h *Helper) outboundContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, h.client)
}

// Challenge starts the login flow: it computes a safe return URL from the
// referrer, encodes it into the state parameter and redirects the browser to
// the authorization endpoint. Nothing is persisted at this point.
func (h *Helper) Challenge(w http.ResponseWriter, r *http.Request) {
	cameFrom := SafeCameFrom(r.Referer(), r.Host)
	state := EncodeState(cameFrom)

	authURL := h.oauthConfig(h.redirectURI(r)).AuthCodeURL(state)
	logger.Debug("Challenge: redirecting to authorization endpoint",
		zap.String("came_from", cameFrom))

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Identify handles the callback request: it decodes the state parameter and
// exchanges the authorization code for a token. Any failure (tampered
// state, missing or rejected code, unreachable token endpoint) yields nil:
// authentication simply did not happen and the request stays anonymous.
func (h *Helper) Identify(r *http.Request) *Identity {
	identity, err := h.identify(r)
	if err != nil {
		logger.Info("Login callback rejected", zap.Error(err))
		return nil
	}
	return identity
}

// identify keeps the failure causes distinguishable; Identify collapses them.
func (h *Helper) identify(r *http.Request) (*Identity, error) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		return nil, &FlowAbortedError{
			Reason: fmt.Sprintf("authorization server returned %q: %s", errParam, query.Get("error_description")),
		}
	}

	cameFrom, err := DecodeState(query.Get("state"))
	if err != nil {
		return nil, &FlowAbortedError{Reason: "bad state parameter", Err: err}
	}

	code := query.Get("code")
	if code == "" {
		return nil, &FlowAbortedError{Reason: "callback carries no authorization code"}
	}

	ctx := h.outboundContext(r.Context())
	token, err := h.oauthConfig(h.redirectURI(r)).Exchange(ctx, code)
	if err != nil {
		return nil, &FlowAbortedError{Reason: "code exchange failed", Err: err}
	}

	return &Identity{Token: token, CameFrom: cameFrom}, nil
}

// Authenticate fetches the user profile with the identity's bearer token and
// maps it onto a local user record, creating the user on first login and
// updating fullname/email when those profile fields are configured and
// present. On success the identity is returned with UserID attached.
//
// An identity without a token yields (nil, nil). A profile response carrying
// an invalid_token error yields *InvalidTokenError with the server's
// description; any other failure yields *ProfileFetchError.
func (h *Helper) Authenticate(ctx context.Context, identity *Identity) (*Identity, error) {
	if identity == nil || identity.Token == nil {
		return nil, nil
	}

	profile, err := h.fetchProfile(ctx, identity.Token)
	if err != nil {
		return nil, err
	}

	userName, ok := profile[h.settings.ProfileAPIUserField].(string)
	if !ok || userName == "" {
		return nil, &ProfileFetchError{
			Reason: fmt.Sprintf("profile response has no %q field", h.settings.ProfileAPIUserField),
		}
	}

	user, err := h.users.ByName(ctx, userName)
	if err != nil {
		return nil, fmt.Errorf("user lookup for %q: %w", userName, err)
	}
	if user == nil {
		user = &models.User{Name: userName}
	}

	if field := h.settings.ProfileAPIFullnameField; field != "" {
		if fullname, ok := profile[field].(string); ok {
			user.Fullname = fullname
		}
	}
	if field := h.settings.ProfileAPIMailField; field != "" {
		if email, ok := profile[field].(string); ok {
			user.Email = email
		}
	}

	if err := h.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("saving user %q: %w", userName, err)
	}

	logger.Info("User authenticated", zap.String("user_name", user.Name))

	identity.UserID = user.Name
	return identity, nil
}

func (h *Helper) fetchProfile(ctx context.Context, token *oauth2.Token) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.settings.ProfileAPIURL, nil)
	if err != nil {
		return nil, &ProfileFetchError{Reason: "building profile request", Err: err}
	}
	token.SetAuthHeader(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &ProfileFetchError{Reason: "profile endpoint unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProfileFetchError{StatusCode: resp.StatusCode, Reason: "reading profile response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var oauthErr struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		if json.Unmarshal(body, &oauthErr) == nil && oauthErr.Error == "invalid_token" {
			return nil, &InvalidTokenError{Description: oauthErr.Description}
		}
		return nil, &ProfileFetchError{
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("profile endpoint returned status %d", resp.StatusCode),
		}
	}

	var profile map[string]interface{}
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, &ProfileFetchError{StatusCode: resp.StatusCode, Reason: "profile response is not JSON", Err: err}
	}
	return profile, nil
}

// Remember delegates session issuance to the configured rememberer and
// copies every header it produces onto the response. With no rememberer
// configured the login completes without a local session.
func (h *Helper) Remember(w http.ResponseWriter, r *http.Request, identity *Identity) error {
	if h.rememberer == nil {
		return nil
	}

	headers, err := h.rememberer.Remember(r, identity)
	if err != nil {
		return err
	}
	copyHeaders(w, headers)
	return nil
}

// Forget revokes the session through the rememberer, copying its headers
// (typically an expired cookie) onto the response.
func (h *Helper) Forget(w http.ResponseWriter, r *http.Request) error {
	if h.rememberer == nil {
		return nil
	}

	headers, err := h.rememberer.Forget(r)
	if err != nil {
		return err
	}
	copyHeaders(w, headers)
	return nil
}

// RedirectFromCallback sends the user to the came-from URL recorded during
// Challenge, or the default landing page when absent. The value was
// sanitized by SafeCameFrom before it entered the state token; it is not
// re-checked here.
func (h *Helper) RedirectFromCallback(w http.ResponseWriter, r *http.Request, identity *Identity) {
	cameFrom := InitialPage
	if identity != nil && identity.CameFrom != "" {
		cameFrom = identity.CameFrom
	}
	http.Redirect(w, r, cameFrom, http.StatusFound)
}

// TokenRecord converts an exchanged oauth2 token into the persisted
// four-field shape. Servers that omit expires_in but set an absolute expiry
// get the remaining lifetime; a missing token type defaults to Bearer.
func TokenRecord(userName string, token *oauth2.Token) *models.UserToken {
	expiresIn := token.ExpiresIn
	if expiresIn == 0 && !token.Expiry.IsZero() {
		expiresIn = int64(time.Until(token.Expiry).Round(time.Second).Seconds())
	}

	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return &models.UserToken{
		UserName:     userName,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn,
		TokenType:    tokenType,
	}
}

func copyHeaders(w http.ResponseWriter, headers http.Header) {
	for name, values := range headers {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
}
