package api

import (
	"context"
	"net/http"

	"techblok-cli/internal/model"
)

const (
	opLogin          = "auth.login"
	opMe             = "auth.me"
	opChangePassword = "auth.change-password"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string         `json:"access_token"`
	User        model.Identity `json:"user"`
}

// Login exchanges credentials for an access token and the caller's identity.
// A 401 here means bad credentials, not an expired session, so it is
// classified as InvalidCredentials and does not fire the unauthorized hook.
func (c *Client) Login(ctx context.Context, username, password string) (model.Identity, string, error) {
	var out loginResponse
	err := c.sendJSON(ctx, opLogin, http.MethodPost, "/auth/login", loginRequest{
		Username: username,
		Password: password,
	}, &out, reqOpts{classify: func(status int) (Kind, bool) {
		switch status {
		case http.StatusUnauthorized:
			return KindInvalidCredentials, true
		case http.StatusForbidden:
			return KindAccountDisabled, true
		}
		return 0, false
	}})
	if err != nil {
		return model.Identity{}, "", err
	}
	if out.AccessToken == "" {
		return model.Identity{}, "", &Error{Kind: KindInvalidCredentials, Op: opLogin}
	}
	return out.User, out.AccessToken, nil
}

// Me exchanges the current token for a fresh identity ("who am I").
func (c *Client) Me(ctx context.Context) (model.Identity, error) {
	var id model.Identity
	if err := c.getJSON(ctx, opMe, "/auth/me", &id); err != nil {
		return model.Identity{}, err
	}
	return id, nil
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangeOwnPassword changes the caller's password. The backend answers 401
// when the current password is wrong; that must not collapse the session, so
// it is classified as InvalidCredentials (hook stays silent). The token is
// untouched: the session remains usable afterward.
func (c *Client) ChangeOwnPassword(ctx context.Context, current, next string) error {
	return c.sendJSON(ctx, opChangePassword, http.MethodPost, "/auth/change-password", changePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	}, nil, reqOpts{classify: func(status int) (Kind, bool) {
		if status == http.StatusUnauthorized {
			return KindInvalidCredentials, true
		}
		return 0, false
	}})
}
