package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"balama-storefront/internal/domain"
)

var (
	// ErrEmailNotConfirmed marks an account that exists but has not clicked
	// its confirmation link yet; the UI routes to the confirmation screen.
	ErrEmailNotConfirmed = errors.New("email not confirmed")

	// ErrMalformedAuth marks a login response missing the token or user id.
	ErrMalformedAuth = errors.New("login response missing token or user id")
)

type loginWire struct {
	Token          string     `json:"token"`
	UserID         flexString `json:"userId"`
	Role           string     `json:"role"`
	FullName       string     `json:"fullName"`
	EmailConfirmed *bool      `json:"emailConfirmed"`
}

// Login authenticates and derives the local user record from the flat
// response shape the auth endpoint returns.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	raw, status, err := c.do(ctx, http.MethodPost, "/api/Auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var wire loginWire
	_ = json.Unmarshal(raw, &wire)

	if wire.EmailConfirmed != nil && !*wire.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}
	if !ok(status) {
		return nil, apiError(status, raw)
	}
	if wire.Token == "" || wire.UserID == "" {
		return nil, ErrMalformedAuth
	}

	userID := string(wire.UserID)
	username := wire.FullName
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	role := wire.Role
	if role == "" {
		role = "customer"
	}

	return &domain.AuthResult{
		Token: wire.Token,
		User: &domain.User{
			ID:       userID,
			UserID:   userID,
			Email:    email,
			Username: username,
			FullName: wire.FullName,
			Role:     role,
		},
	}, nil
}

// Register submits a new account. The backend has shipped two flows: one
// answers with a token (auto-login), the other only acknowledges and gates
// the account behind email confirmation. Both are reported through the
// outcome; picking a policy is the session manager's job.
func (c *Client) Register(ctx context.Context, form domain.RegisterForm) (*domain.RegisterOutcome, error) {
	raw, status, err := c.do(ctx, http.MethodPost, "/api/Auth/register", form)
	if err != nil {
		return nil, err
	}
	if !ok(status) || failed(raw) {
		return nil, apiError(status, raw)
	}

	var wire struct {
		Token   string     `json:"token"`
		UserID  flexString `json:"userId"`
		Message string     `json:"message"`
	}
	_ = json.Unmarshal(raw, &wire)

	if wire.Token != "" {
		userID := string(wire.UserID)
		return &domain.RegisterOutcome{
			SessionEstablished: true,
			Token:              wire.Token,
			User: &domain.User{
				ID:       userID,
				UserID:   userID,
				Email:    form.Email,
				Username: form.FullName,
				FullName: form.FullName,
				Phone:    form.Phone,
				Role:     "customer",
			},
		}, nil
	}

	message := wire.Message
	if message == "" {
		message = "Registration successful. Check your email to confirm your account."
	}
	return &domain.RegisterOutcome{SessionEstablished: false, Message: message}, nil
}

func (c *Client) ConfirmEmail(ctx context.Context, token string) error {
	path := "/api/Auth/confirm-email?token=" + url.QueryEscape(token)
	raw, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if !ok(status) || failed(raw) {
		return apiError(status, raw)
	}
	return nil
}

func (c *Client) ResendConfirmation(ctx context.Context, email string) error {
	raw, status, err := c.do(ctx, http.MethodPost, "/api/Auth/resend-confirmation", map[string]string{
		"email": email,
	})
	if err != nil {
		return err
	}
	if !ok(status) || failed(raw) {
		return apiError(status, raw)
	}
	return nil
}
