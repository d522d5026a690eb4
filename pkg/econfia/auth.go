package econfia

import (
	"context"
	"time"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login authenticates against the API and returns a bearer token usable as a
// StaticToken provider.
func Login(ctx context.Context, baseURL, email, password string) (string, error) {
	c := NewClient(baseURL, nil)
	var result tokenResponse
	if err := c.post(ctx, "/api/auth/login", &loginRequest{Email: email, Password: password}, &result); err != nil {
		return "", err
	}
	return result.Token, nil
}

// Register creates an account and returns a bearer token.
func Register(ctx context.Context, baseURL, email, password, name string) (string, error) {
	c := NewClient(baseURL, nil)
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}{Email: email, Password: password, Name: name}
	var result tokenResponse
	if err := c.post(ctx, "/api/auth/register", &body, &result); err != nil {
		return "", err
	}
	return result.Token, nil
}
