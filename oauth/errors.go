package oauth

import (
	"fmt"
	"strings"
)

// ConfigurationError reports mandatory settings missing at construction
// time. It is fatal; the service must not start without them.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("oauth: required settings missing: %s", strings.Join(e.Missing, ", "))
}

// DecodeError reports a state token that is not valid base64 or valid JSON.
// Callers must treat it as an unrecoverable flow error, not retry.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("oauth: invalid state token: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FlowAbortedError is any failure during the callback identify step: a bad
// state token, a missing or rejected authorization code, or a failed code
// exchange. It never escapes Identify; the boundary collapses it to an
// anonymous result.
type FlowAbortedError struct {
	Reason string
	Err    error
}

func (e *FlowAbortedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oauth: login flow aborted: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("oauth: login flow aborted: %s", e.Reason)
}

func (e *FlowAbortedError) Unwrap() error { return e.Err }

// InvalidTokenError means the profile endpoint rejected the bearer token as
// invalid. The stored credential is stale; the caller should restart the
// login flow.
type InvalidTokenError struct {
	Description string
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("oauth: invalid token: %s", e.Description)
}

// ProfileFetchError is any other non-success outcome of the profile fetch.
type ProfileFetchError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *ProfileFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oauth: profile fetch failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("oauth: profile fetch failed: %s", e.Reason)
}

func (e *ProfileFetchError) Unwrap() error { return e.Err }

// TokenRefreshError means the refresh-token exchange failed. Unlike
// interactive login failures it is never swallowed: the caller decides
// whether to retry, notify, or deactivate the integration.
type TokenRefreshError struct {
	UserName string
	Err      error
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("oauth: token refresh for user %q failed: %v", e.UserName, e.Err)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }
