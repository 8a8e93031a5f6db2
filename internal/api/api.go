// Package api is the typed surface over the request pipeline. Fixture mode
// swaps the client transport, never the implementations here.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/xcloud/console-client/internal/apierror"
	"github.com/xcloud/console-client/internal/domain"
	"github.com/xcloud/console-client/internal/http/client"
	"github.com/xcloud/console-client/internal/navigation"
)

const (
	PathLogin       = "/v1/auth/login"
	PathRefresh     = "/v1/auth/refresh"
	PathLogout      = "/v1/auth/logout"
	PathUserProfile = "/v1/users/profile"
	PathUsers       = "/v1/users"
)

type AuthAPI interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.LoginResponse, error)
	Logout(ctx context.Context, accessToken string) (*domain.BaseResponse, error)
}

type UserAPI interface {
	Profile(ctx context.Context) (*domain.UserInfoResponse, error)
	List(ctx context.Context) (*domain.UserListResponse, error)
}

// RawAPI issues arbitrary authenticated calls and returns the envelope.
type RawAPI interface {
	Call(ctx context.Context, method, path string, body json.RawMessage) (*domain.Envelope, error)
}

// Authed is the session-bound pipeline shared by the non-auth APIs.
type Authed struct {
	*client.Client
}

func NewAuthed(c *client.Client, tokens client.TokenProvider, nav navigation.Navigator) Authed {
	return Authed{Client: c.WithSession(tokens, nav)}
}

type httpAuthAPI struct {
	c *client.Client
}

// NewHTTPAuthAPI sends every auth call with SkipAuthRefresh so a 401 from
// these endpoints is returned to the session store rather than refreshed.
func NewHTTPAuthAPI(c *client.Client) AuthAPI {
	return &httpAuthAPI{c: c}
}

func (a *httpAuthAPI) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResponse, error) {
	var out domain.LoginResponse
	err := a.c.DoJSON(ctx, client.Request{
		Method:          http.MethodPost,
		Path:            PathLogin,
		Body:            creds,
		SkipAuthRefresh: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *httpAuthAPI) Refresh(ctx context.Context, refreshToken string) (*domain.LoginResponse, error) {
	var out domain.LoginResponse
	err := a.c.DoJSON(ctx, client.Request{
		Method:          http.MethodPost,
		Path:            PathRefresh,
		Body:            domain.RefreshRequest{RefreshToken: refreshToken},
		SkipAuthRefresh: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *httpAuthAPI) Logout(ctx context.Context, accessToken string) (*domain.BaseResponse, error) {
	var out domain.BaseResponse
	err := a.c.DoJSON(ctx, client.Request{
		Method:          http.MethodPost,
		Path:            PathLogout,
		BearerToken:     accessToken,
		SkipAuthRefresh: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type httpUserAPI struct {
	c Authed
}

func NewHTTPUserAPI(c Authed) UserAPI {
	return &httpUserAPI{c: c}
}

func (a *httpUserAPI) Profile(ctx context.Context) (*domain.UserInfoResponse, error) {
	var out domain.UserInfoResponse
	if err := a.c.DoJSON(ctx, client.Request{Path: PathUserProfile}, &out); err != nil {
		return nil, err
	}
	if err := envelopeError(out.Code, out.Message); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *httpUserAPI) List(ctx context.Context) (*domain.UserListResponse, error) {
	var out domain.UserListResponse
	if err := a.c.DoJSON(ctx, client.Request{Path: PathUsers}, &out); err != nil {
		return nil, err
	}
	if err := envelopeError(out.Code, out.Message); err != nil {
		return nil, err
	}
	return &out, nil
}

type httpRawAPI struct {
	c Authed
}

func NewHTTPRawAPI(c Authed) RawAPI {
	return &httpRawAPI{c: c}
}

func (a *httpRawAPI) Call(ctx context.Context, method, path string, body json.RawMessage) (*domain.Envelope, error) {
	req := client.Request{Method: method, Path: path}
	if len(body) > 0 {
		req.Body = []byte(body)
	}
	var out domain.Envelope
	if err := a.c.DoJSON(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.Code != domain.ResponseCodeOK {
		return nil, apierror.Application(out.Code, out.Message, out.Data)
	}
	return &out, nil
}

// envelopeError rejects a 2xx response whose envelope code is not 200.
func envelopeError(code int, message string) error {
	if code == domain.ResponseCodeOK {
		return nil
	}
	return apierror.Application(code, message, nil)
}
