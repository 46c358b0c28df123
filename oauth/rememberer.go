package oauth

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/umakantv/go-utils/cache"
)

const (
	sessionKeyPrefix  = "session:"
	sessionCookieName = "session_id"
	sessionTTL        = 24 * time.Hour
)

// SessionRememberer issues Redis-backed sessions referenced by an HttpOnly
// session_id cookie. It implements Rememberer by returning the Set-Cookie
// headers rather than writing them, so the flow controller stays in charge
// of the response.
type SessionRememberer struct {
	cache cache.Cache
}

// NewSessionRememberer builds the default rememberer on top of the shared
// cache client.
func NewSessionRememberer(cache cache.Cache) *SessionRememberer {
	return &SessionRememberer{cache: cache}
}

// Remember stores the authenticated user name under a fresh session id and
// returns the cookie header that references it.
func (s *SessionRememberer) Remember(r *http.Request, identity *Identity) (http.Header, error) {
	sessionID := uuid.New().String()
	sessionData := map[string]interface{}{
		"user_name": identity.UserID,
	}
	if err := s.cache.Set(sessionKeyPrefix+sessionID, sessionData, sessionTTL); err != nil {
		return nil, err
	}

	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true, // Prevent JS access for security
		MaxAge:   int(sessionTTL.Seconds()),
	}

	headers := http.Header{}
	headers.Add("Set-Cookie", cookie.String())
	return headers, nil
}

// Forget drops the session behind the request's cookie and returns an
// expired replacement cookie.
func (s *SessionRememberer) Forget(r *http.Request) (http.Header, error) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		s.cache.Delete(sessionKeyPrefix + cookie.Value)
	}

	expired := &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	}

	headers := http.Header{}
	headers.Add("Set-Cookie", expired.String())
	return headers, nil
}
