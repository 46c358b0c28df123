package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"

	"oauth2-login/models"

	logger "github.com/umakantv/go-utils/logger"
	"golang.org/x/oauth2"
)

func TestMain(m *testing.M) {
	logger.Init(logger.LoggerConfig{
		CallerKey: "file",
		TimeKey:   "timestamp",
	})
	os.Exit(m.Run())
}

// --- fakes ---

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (s *fakeUserStore) ByName(ctx context.Context, name string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[name]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeUserStore) Save(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *user
	s.users[user.Name] = &copied
	return nil
}

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*models.UserToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]*models.UserToken)}
}

func (s *fakeTokenStore) GetToken(ctx context.Context, userName string) (*models.UserToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token, ok := s.tokens[userName]; ok {
		copied := *token
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeTokenStore) UpdateToken(ctx context.Context, userName string, token *models.UserToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *token
	s.tokens[userName] = &copied
	return nil
}

func testSettings(authorizationEndpoint, tokenEndpoint, profileURL string) Settings {
	return Settings{
		AuthorizationEndpoint: authorizationEndpoint,
		TokenEndpoint:         tokenEndpoint,
		ProfileAPIURL:         profileURL,
		ClientID:              "test-client",
		ClientSecret:          "test-secret",
		Scope:                 "profile email",
		ProfileAPIUserField:   "nickname",
	}
}

func newTestHelper(t *testing.T, settings Settings, users UserStore, tokens TokenStore) *Helper {
	t.Helper()
	helper, err := NewHelper(settings, users, tokens, nil)
	if err != nil {
		t.Fatalf("NewHelper returned error: %v", err)
	}
	return helper
}

// --- construction ---

func TestNewHelperMissingSettings(t *testing.T) {
	settings := testSettings("https://idp.example.org/authorize", "https://idp.example.org/token", "https://idp.example.org/user")
	settings.ClientSecret = ""
	settings.ProfileAPIUserField = ""

	_, err := NewHelper(settings, newFakeUserStore(), newFakeTokenStore(), nil)

	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected *ConfigurationError, got %v", err)
	}
	if len(confErr.Missing) != 2 {
		t.Fatalf("expected 2 missing settings, got %v", confErr.Missing)
	}
	if confErr.Missing[0] != "client_secret" || confErr.Missing[1] != "profile_api_user_field" {
		t.Errorf("unexpected missing settings: %v", confErr.Missing)
	}
}

// --- challenge ---

func TestChallengeRedirect(t *testing.T) {
	settings := testSettings("https://idp.example.org/authorize", "https://idp.example.org/token", "https://idp.example.org/user")
	helper := newTestHelper(t, settings, newFakeUserStore(), newFakeTokenStore())

	r := httptest.NewRequest("GET", "http://myportal.org/user/login", nil)
	r.Header.Set("Referer", "/datasets/foo")
	w := httptest.NewRecorder()

	helper.Challenge(w, r)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}

	location, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("invalid Location header: %v", err)
	}
	if location.Host != "idp.example.org" || location.Path != "/authorize" {
		t.Errorf("redirected to %s, want the authorization endpoint", location)
	}

	query := location.Query()
	if query.Get("response_type") != "code" {
		t.Errorf("response_type = %q", query.Get("response_type"))
	}
	if query.Get("client_id") != "test-client" {
		t.Errorf("client_id = %q", query.Get("client_id"))
	}
	if query.Get("redirect_uri") != "http://myportal.org/oauth2/callback" {
		t.Errorf("redirect_uri = %q", query.Get("redirect_uri"))
	}

	cameFrom, err := DecodeState(query.Get("state"))
	if err != nil {
		t.Fatalf("state parameter did not decode: %v", err)
	}
	if cameFrom != "/datasets/foo" {
		t.Errorf("state carries came_from %q, want /datasets/foo", cameFrom)
	}
}

func TestChallengeForeignReferer(t *testing.T) {
	settings := testSettings("https://idp.example.org/authorize", "https://idp.example.org/token", "https://idp.example.org/user")
	helper := newTestHelper(t, settings, newFakeUserStore(), newFakeTokenStore())

	r := httptest.NewRequest("GET", "http://myportal.org/user/login", nil)
	r.Header.Set("Referer", "https://evil.com/x")
	w := httptest.NewRecorder()

	helper.Challenge(w, r)

	location, _ := url.Parse(w.Header().Get("Location"))
	cameFrom, err := DecodeState(location.Query().Get("state"))
	if err != nil {
		t.Fatalf("state parameter did not decode: %v", err)
	}
	if cameFrom != InitialPage {
		t.Errorf("came_from = %q, want %q", cameFrom, InitialPage)
	}
}

// --- identify ---

func newTokenServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "access-123",
			"token_type": "Bearer",
			"expires_in": 3600,
			"refresh_token": "refresh-456"
		}`))
	}))
}

func callbackRequest(state string) *http.Request {
	return httptest.NewRequest("GET", "http://myportal.org/oauth2/callback?code=abc&state="+url.QueryEscape(state), nil)
}

func TestIdentifySuccess(t *testing.T) {
	tokenServer := newTokenServer(t, nil)
	defer tokenServer.Close()

	settings := testSettings("https://idp.example.org/authorize", tokenServer.URL, "https://idp.example.org/user")
	helper := newTestHelper(t, settings, newFakeUserStore(), newFakeTokenStore())

	identity := helper.Identify(callbackRequest(EncodeState("/datasets/foo")))
	if identity == nil {
		t.Fatal("Identify returned nil for a valid callback")
	}
	if identity.Token.AccessToken != "access-123" {
		t.Errorf("access token = %q", identity.Token.AccessToken)
	}
	if identity.Token.RefreshToken != "refresh-456" {
		t.Errorf("refresh token = %q", identity.Token.RefreshToken)
	}
	if identity.CameFrom != "/datasets/foo" {
		t.Errorf("came_from = %q", identity.CameFrom)
	}
}

func TestIdentifyTamperedState(t *testing.T) {
	tokenServer := newTokenServer(t, nil)
	defer tokenServer.Close()

	settings := testSettings("https://idp.example.org/authorize", tokenServer.URL, "https://idp.example.org/user")
	helper := newTestHelper(t, settings, newFakeUserStore(), newFakeTokenStore())

	if identity := helper.Identify(callbackRequest("tampered-%%%-state")); identity != nil {
		t.Errorf("Identify accepted a tampered state token: %+v", identity)
	}
}

func TestIdentifyAuthorizationError(t *testing.T) {
	settings := testSettings("https://idp.example.org/authorize", "https://idp.example.org/token", "https://idp.example.org/user")
	helper := newTestHelper(t, settings, newFakeUserStore(), newFakeTokenStore())

	r := httptest.NewRequest("GET", "http://myportal.org/oauth2/callback?error=access_denied", nil)
	if identity := helper.Identify(r); identity != nil {
		t.Errorf("Identify returned an identity for an error callback: %+v", identity)
	}
}

func TestIdentifyMissingCode(t *testing.T) {
	settings := testSettings("https://idp.example.org/authorize", "https://idp.example.org/token", "https://idp.example.org/user")
	helper := newTestHelper(t, settings, newFakeUserStore(), newFakeTokenStore())

	r := httptest.NewRequest("GET", "http://myportal.org/oauth2/callback?state="+url.QueryEscape(EncodeState("/x")), nil)
	if identity := helper.Identify(r); identity != nil {
		t.Errorf("Identify returned an identity without a code: %+v", identity)
	}
}

func TestIdentifyExchangeFailure(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid_grant"}`, http.StatusBadRequest)
	}))
	defer tokenServer.Close()

	settings := testSettings("https://idp.example.org/authorize", tokenServer.URL, "https://idp.example.org/user")
	helper := newTestHelper(t, settings, newFakeUserStore(), newFakeTokenStore())

	if identity := helper.Identify(callbackRequest(EncodeState("/x"))); identity != nil {
		t.Errorf("Identify returned an identity for a rejected code: %+v", identity)
	}
}

// --- authenticate ---

func bearerIdentity() *Identity {
	return &Identity{
		Token:    &oauth2.Token{AccessToken: "access-123", TokenType: "Bearer"},
		CameFrom: "/datasets/foo",
	}
}

func TestAuthenticateNoToken(t *testing.T) {
	settings := testSettings("https://idp.example.org/authorize", "https://idp.example.org/token", "https://idp.example.org/user")
	helper := newTestHelper(t, settings, newFakeUserStore(), newFakeTokenStore())

	identity, err := helper.Authenticate(context.Background(), &Identity{CameFrom: "/x"})
	if identity != nil || err != nil {
		t.Errorf("Authenticate without a token = (%+v, %v), want (nil, nil)", identity, err)
	}
}

func TestAuthenticateInvalidToken(t *testing.T) {
	profileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid_token", "error_description": "expired"}`))
	}))
	defer profileServer.Close()

	settings := testSettings("https://idp.example.org/authorize", "https://idp.example.org/token", profileServer.URL)
	helper := newTestHelper(t, settings, newFakeUserStore(), newFakeTokenStore())

	_, err := helper.Authenticate(context.Background(), bearerIdentity())

	var invalidToken *InvalidTokenError
	if !errors.As(err, &invalidToken) {
		t.Fatalf("expected *InvalidTokenError, got %v", err)
	}
	if invalidToken.Description != "expired" {
		t.Errorf("description = %q, want expired", invalidToken.Description)
	}
}

func TestAuthenticateProfileFetchError(t *testing.T) {
	profileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer profileServer.Close()

	settings := testSettings("https://idp.example.org/authorize", "https://idp.example.org/token", profileServer.URL)
	helper := newTestHelper(t, settings, newFakeUserStore(), newFakeTokenStore())

	_, err := helper.Authenticate(context.Background(), bearerIdentity())

	var profileErr *ProfileFetchError
	if !errors.As(err, &profileErr) {
		t.Fatalf("expected *ProfileFetchError, got %v", err)
	}
	if profileErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", profileErr.StatusCode)
	}
}

func TestAuthenticateMissingUserField(t *testing.T) {
	profileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fullname": "Alice Doe"}`))
	}))
	defer profileServer.Close()

	settings := testSettings("https://idp.example.org/authorize", "https://idp.example.org/token", profileServer.URL)
	helper := newTestHelper(t, settings, newFakeUserStore(), newFakeTokenStore())

	_, err := helper.Authenticate(context.Background(), bearerIdentity())

	var profileErr *ProfileFetchError
	if !errors.As(err, &profileErr) {
		t.Fatalf("expected *ProfileFetchError for a missing user field, got %v", err)
	}
}

func TestAuthenticateCreatesUser(t *testing.T) {
	profileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			http.Error(w, "no bearer token", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"nickname": "alice", "fullname": "Alice Doe", "mail": "alice@example.org"}`))
	}))
	defer profileServer.Close()

	settings := testSettings("https://idp.example.org/authorize", "https://idp.example.org/token", profileServer.URL)
	settings.ProfileAPIFullnameField = "fullname"
	settings.ProfileAPIMailField = "mail"

	users := newFakeUserStore()
	helper := newTestHelper(t, settings, users, newFakeTokenStore())

	identity, err := helper.Authenticate(context.Background(), bearerIdentity())
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if identity.UserID != "alice" {
		t.Errorf("UserID = %q, want alice", identity.UserID)
	}

	user, _ := users.ByName(context.Background(), "alice")
	if user == nil {
		t.Fatal("user record was not created")
	}
	if user.Fullname != "Alice Doe" || user.Email != "alice@example.org" {
		t.Errorf("user = %+v, want fullname and email from the profile", user)
	}
}

func TestAuthenticateLeavesUnconfiguredFieldsUntouched(t *testing.T) {
	profileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"nickname": "alice", "fullname": "Alice Renamed", "mail": "new@example.org"}`))
	}))
	defer profileServer.Close()

	// Only the fullname field is configured; email must stay untouched.
	settings := testSettings("https://idp.example.org/authorize", "https://idp.example.org/token", profileServer.URL)
	settings.ProfileAPIFullnameField = "fullname"

	users := newFakeUserStore()
	users.Save(context.Background(), &models.User{Name: "alice", Fullname: "Alice Doe", Email: "old@example.org"})

	helper := newTestHelper(t, settings, users, newFakeTokenStore())

	if _, err := helper.Authenticate(context.Background(), bearerIdentity()); err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}

	user, _ := users.ByName(context.Background(), "alice")
	if user.Fullname != "Alice Renamed" {
		t.Errorf("fullname = %q, want updated value", user.Fullname)
	}
	if user.Email != "old@example.org" {
		t.Errorf("email = %q, want untouched value", user.Email)
	}
}
