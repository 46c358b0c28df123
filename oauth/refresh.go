package oauth

import (
	"context"

	"oauth2-login/models"

	logger "github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// GetToken returns the stored token record for a user, or nil when none
// exists.
func (h *Helper) GetToken(ctx context.Context, userName string) (*models.UserToken, error) {
	return h.tokens.GetToken(ctx, userName)
}

// RefreshToken re-acquires an access token from the user's stored refresh
// token and overwrites the stored record with the result. A user without a
// stored token yields (nil, nil) and no network call. Exchange failures
// propagate as *TokenRefreshError; unlike interactive login failures they
// must stay observable to the caller, typically a background job.
func (h *Helper) RefreshToken(ctx context.Context, userName string) (*models.UserToken, error) {
	stored, err := h.tokens.GetToken(ctx, userName)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		logger.Info("User has no refresh token", zap.String("user_name", userName))
		return nil, nil
	}

	// A token source seeded with only the refresh token always performs
	// the refresh-token grant.
	source := h.oauthConfig("").TokenSource(h.outboundContext(ctx), &oauth2.Token{
		RefreshToken: stored.RefreshToken,
	})
	token, err := source.Token()
	if err != nil {
		return nil, &TokenRefreshError{UserName: userName, Err: err}
	}

	record := TokenRecord(userName, token)
	if err := h.tokens.UpdateToken(ctx, userName, record); err != nil {
		return nil, err
	}

	logger.Info("Token refreshed", zap.String("user_name", userName))
	return record, nil
}
