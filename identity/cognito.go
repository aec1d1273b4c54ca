package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	logger "github.com/Yulian302/lfusys-services-media/internal/logging"
	"github.com/Yulian302/lfusys-services-media/internal/retries"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

// CognitoAPI is the subset of the user pool client the provider uses.
type CognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, params *cip.RespondToAuthChallengeInput, optFns ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error)
	GlobalSignOut(ctx context.Context, params *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
	GetUser(ctx context.Context, params *cip.GetUserInput, optFns ...func(*cip.Options)) (*cip.GetUserOutput, error)
}

var _ CognitoAPI = (*cip.Client)(nil)

type Provider interface {
	SignIn(ctx context.Context, username string, password string) (*models.SignInResult, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*models.UserInfo, error)
}

type CognitoProviderImpl struct {
	client   CognitoAPI
	clientID string

	logger logger.Logger
}

func NewCognitoProviderImpl(client CognitoAPI, clientID string, l logger.Logger) *CognitoProviderImpl {
	return &CognitoProviderImpl{
		client:   client,
		clientID: clientID,
		logger:   l,
	}
}

// SignIn runs the USER_PASSWORD_AUTH flow. Users created by an administrator
// must set a new password on first login; the given password is reused.
func (p *CognitoProviderImpl) SignIn(ctx context.Context, username string, password string) (*models.SignInResult, error) {
	out, err := p.client.InitiateAuth(ctx, &cip.InitiateAuthInput{
		ClientId: aws.String(p.clientID),
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return nil, mapAuthError("initiate auth", err)
	}

	if out.ChallengeName != types.ChallengeNameTypeNewPasswordRequired {
		return signInResult(out.AuthenticationResult, out.ChallengeName, out.Session), nil
	}

	p.logger.Info("first login, setting new password", "username", username)

	challenge, err := p.client.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ClientId:      aws.String(p.clientID),
		ChallengeName: types.ChallengeNameTypeNewPasswordRequired,
		ChallengeResponses: map[string]string{
			"USERNAME":     username,
			"NEW_PASSWORD": password,
		},
		Session: out.Session,
	})
	if err != nil {
		return nil, mapAuthError("respond to auth challenge", err)
	}

	return signInResult(challenge.AuthenticationResult, challenge.ChallengeName, challenge.Session), nil
}

func signInResult(auth *types.AuthenticationResultType, challenge types.ChallengeNameType, session *string) *models.SignInResult {
	res := &models.SignInResult{
		ChallengeName: string(challenge),
		Session:       aws.ToString(session),
	}
	if auth != nil {
		res.AuthenticationResult = &models.AuthResult{
			AccessToken:  aws.ToString(auth.AccessToken),
			IdToken:      aws.ToString(auth.IdToken),
			RefreshToken: aws.ToString(auth.RefreshToken),
			TokenType:    aws.ToString(auth.TokenType),
			ExpiresIn:    auth.ExpiresIn,
		}
	}
	return res
}

func (p *CognitoProviderImpl) SignOut(ctx context.Context, accessToken string) error {
	_, err := p.client.GlobalSignOut(ctx, &cip.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return mapAuthError("global sign out", err)
	}
	return nil
}

// GetUser resolves an access token to the user's sub and attributes. The
// lookup is rate limited by the user pool, so throttling is retried.
func (p *CognitoProviderImpl) GetUser(ctx context.Context, accessToken string) (*models.UserInfo, error) {
	if accessToken == "" {
		return nil, apperror.ErrUnauthorized
	}

	var out *cip.GetUserOutput
	err := retries.Retry(
		ctx,
		retries.IdentityAttempts,
		retries.IdentityBaseDelay,
		func() error {
			var err error
			out, err = p.client.GetUser(ctx, &cip.GetUserInput{
				AccessToken: aws.String(accessToken),
			})
			if err != nil && retries.IsThrottled(err) {
				p.logger.Warn("user lookup throttled, retrying")
			}
			return err
		},
		retries.IsThrottled,
	)
	if err != nil {
		return nil, mapAuthError("get user", err)
	}

	info := &models.UserInfo{
		Username:   aws.ToString(out.Username),
		Attributes: make(map[string]string, len(out.UserAttributes)),
	}
	for _, attr := range out.UserAttributes {
		info.Attributes[aws.ToString(attr.Name)] = aws.ToString(attr.Value)
	}

	info.UserID = info.Attributes["sub"]
	if info.UserID == "" {
		p.logger.Warn("user has no sub attribute", "username", info.Username)
		return nil, apperror.ErrUnauthorized
	}

	return info, nil
}

var unauthorizedCodes = map[string]struct{}{
	"NotAuthorizedException":         {},
	"UserNotFoundException":          {},
	"UserNotConfirmedException":      {},
	"PasswordResetRequiredException": {},
}

func mapAuthError(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := unauthorizedCodes[apiErr.ErrorCode()]; ok {
			return fmt.Errorf("%s: %w", op, apperror.ErrUnauthorized)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
