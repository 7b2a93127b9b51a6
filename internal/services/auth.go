package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/desertthunder/folio/internal/models"
)

// LoginResult is the user record and bearer token issued by the backend.
type LoginResult struct {
	User  models.User
	Token string
}

type loginRequest struct {
	Account  string `json:"Account" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login exchanges an account (email or username) and password for a session token.
//
// A 401 from the backend is reported as a [KindStatus] error that also matches [shared.ErrNotAuthenticated].
func (c *Client) Login(ctx context.Context, account, password string) (*LoginResult, error) {
	const op = "login"
	req := loginRequest{Account: strings.TrimSpace(account), Password: password}
	if err := c.validator.Validate(op, req); err != nil {
		return nil, err
	}

	var env loginEnvelope
	if err := c.sendJSON(ctx, op, http.MethodPost, c.loginPath, req, &env); err != nil {
		return nil, err
	}

	d := env.detail()
	if d == nil || d.Payload == nil {
		return nil, missingDetail(op)
	}
	if d.Token == "" {
		return nil, malformedError(op, errNoToken)
	}
	return &LoginResult{User: *d.Payload, Token: d.Token}, nil
}

// RegisterRequest creates a reader account. Role and pen name are fixed at sign-up.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role"`
	PenName  string `json:"pen_name"`
}

// Register creates a new account with the Reader role.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	const op = "register"
	req.Role = models.RoleReader
	req.PenName = ""
	if err := c.validator.Validate(op, req); err != nil {
		return err
	}
	return c.sendJSON(ctx, op, http.MethodPost, "/signup/", req, &statusEnvelope{})
}

// PenNameRequest sets the author display name.
type PenNameRequest struct {
	PenName string    `json:"pen_name" validate:"required,max=100"`
	UserID  models.ID `json:"userId" validate:"required"`
}

// UpdatePenName sets the user's pen name and returns the effective value.
func (c *Client) UpdatePenName(ctx context.Context, req PenNameRequest) (string, error) {
	const op = "update pen name"
	req.PenName = strings.TrimSpace(req.PenName)
	if err := c.validator.Validate(op, req); err != nil {
		return "", err
	}

	var env profileEnvelope
	if err := c.sendJSON(ctx, op, http.MethodPost, "/profile/pen-name/", req, &env); err != nil {
		return "", err
	}

	// detail is either the updated user or a confirmation string.
	var user models.User
	if hasValue(env.Detail) && json.Unmarshal(env.Detail, &user) == nil && user.PenName != "" {
		return user.PenName, nil
	}
	return req.PenName, nil
}
