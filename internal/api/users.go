package api

import (
	"context"
	"net/http"
	"net/url"

	"techblok-cli/internal/model"
)

const (
	opUsersList        = "users.list"
	opUsersCreate      = "users.create"
	opUsersUpdate      = "users.update"
	opUsersDelete      = "users.delete"
	opUsersSetPassword = "users.set-password"
)

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.getJSON(ctx, opUsersList, "/auth/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

type CreateUserInput struct {
	Username string     `json:"username"`
	FullName string     `json:"full_name"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

type createUserResponse struct {
	User model.User `json:"user"`
}

func (c *Client) CreateUser(ctx context.Context, in CreateUserInput) (model.User, error) {
	var out createUserResponse
	err := c.sendJSON(ctx, opUsersCreate, http.MethodPost, "/auth/signup", in, &out, reqOpts{})
	if err != nil {
		return model.User{}, err
	}
	return out.User, nil
}

// UpdateUserInput carries a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	Username *string     `json:"username,omitempty"`
	FullName *string     `json:"full_name,omitempty"`
	Role     *model.Role `json:"role,omitempty"`
}

func (c *Client) UpdateUser(ctx context.Context, uid string, in UpdateUserInput) (model.User, error) {
	var out model.User
	err := c.sendJSON(ctx, opUsersUpdate, http.MethodPatch, "/auth/update/"+url.PathEscape(uid), in, &out, reqOpts{})
	if err != nil {
		return model.User{}, err
	}
	return out, nil
}

func (c *Client) DeleteUser(ctx context.Context, uid string) error {
	_, _, err := c.roundTrip(ctx, opUsersDelete, http.MethodDelete, "/auth/"+url.PathEscape(uid), nil, reqOpts{})
	return err
}

type setPasswordRequest struct {
	Password string `json:"password"`
}

func (c *Client) SetUserPassword(ctx context.Context, uid, password string) error {
	return c.sendJSON(ctx, opUsersSetPassword, http.MethodPatch, "/auth/update-password/"+url.PathEscape(uid), setPasswordRequest{
		Password: password,
	}, nil, reqOpts{})
}
