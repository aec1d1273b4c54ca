package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Yulian302/lfusys-services-media/identity"
	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	"github.com/Yulian302/lfusys-services-media/internal/caching"
	logger "github.com/Yulian302/lfusys-services-media/internal/logging"
	"github.com/Yulian302/lfusys-services-media/models"
)

type AuthService interface {
	SignIn(ctx context.Context, username string, password string) (*models.SignInResult, error)
	SignOut(ctx context.Context, accessToken string) error
	Authenticate(ctx context.Context, accessToken string) (*models.UserInfo, error)
}

type AuthServiceImpl struct {
	provider   identity.Provider
	cachingSvc caching.CachingService
	tokenTTL   time.Duration

	logger logger.Logger
}

func NewAuthServiceImpl(
	provider identity.Provider,
	cachingSvc caching.CachingService,
	tokenTTL time.Duration,
	l logger.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		provider:   provider,
		cachingSvc: cachingSvc,
		tokenTTL:   tokenTTL,
		logger:     l,
	}
}

func (svc *AuthServiceImpl) SignIn(ctx context.Context, username string, password string) (*models.SignInResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.Validation("username and password are required")
	}

	res, err := svc.provider.SignIn(ctx, username, password)
	if err != nil {
		svc.logger.Warn("sign in failed", "username", username, "error", err)
		return nil, err
	}

	svc.logger.Info("user signed in", "username", username, "challenge", res.ChallengeName)
	return res, nil
}

func (svc *AuthServiceImpl) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return apperror.ErrUnauthorized
	}

	if err := svc.provider.SignOut(ctx, accessToken); err != nil {
		return err
	}

	// the token is revoked, a cached identity must not outlive it
	if err := svc.cachingSvc.Delete(ctx, tokenCacheKey(accessToken)); err != nil {
		svc.logger.Error("cached identity invalidation failed", "error", err)
	}

	return nil
}

// Authenticate resolves an access token to its user, consulting the cache
// before the identity provider.
func (svc *AuthServiceImpl) Authenticate(ctx context.Context, accessToken string) (*models.UserInfo, error) {
	if accessToken == "" {
		return nil, apperror.ErrUnauthorized
	}

	key := tokenCacheKey(accessToken)

	cached, err := svc.cachingSvc.Get(ctx, key)
	switch {
	case err == nil:
		var info models.UserInfo
		if jsonErr := json.Unmarshal([]byte(cached), &info); jsonErr == nil && info.UserID != "" {
			return &info, nil
		}
		svc.logger.Warn("discarding malformed cached identity")
	case !errors.Is(err, apperror.ErrCacheMiss):
		svc.logger.Warn("identity cache unavailable", "error", err)
	}

	info, err := svc.provider.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(info); err == nil {
		if err := svc.cachingSvc.Set(ctx, key, string(b), svc.tokenTTL); err != nil {
			svc.logger.Warn("failed to cache identity", "user_id", info.UserID, "error", err)
		}
	}

	return info, nil
}

// tokenCacheKey never stores the raw token.
func tokenCacheKey(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return "auth:token:" + hex.EncodeToString(sum[:])
}
