package service

import (
	"context"

	"github.com/xcloud/console-client/internal/domain"
)

// AuthClient is the slice of the auth API the session store drives. Calls
// made through it must not trigger the pipeline's own refresh handling.
type AuthClient interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.LoginResponse, error)
	Logout(ctx context.Context, accessToken string) (*domain.BaseResponse, error)
}

type ProfileClient interface {
	Profile(ctx context.Context) (*domain.UserInfoResponse, error)
}
