package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// HashPassword returns the lowercase hex SHA-256 of the trimmed password,
// the form the service stores and compares.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(password)))
	return hex.EncodeToString(sum[:])
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Login authenticates and stores the resulting session on the client.
func (c *Client) Login(ctx context.Context, login, password string) (*Session, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, &ValidationError{Field: "login", Message: "is required"}
	}
	if strings.TrimSpace(password) == "" {
		return nil, &ValidationError{Field: "password", Message: "is required"}
	}

	resp, err := c.doJSON(ctx, http.MethodPost, "/login", loginRequest{Login: login, Password: HashPassword(password)})
	if err != nil {
		return nil, err
	}
	lr, err := parseLoginResponse(resp)
	if err != nil {
		return nil, err
	}
	s := newSession(login, lr.UserID, lr.AccessToken, time.Now())
	c.SetSession(s)
	c.log.Info("logged in", "login", login, "user_id", lr.UserID, "bearer", lr.AccessToken != "")
	return s, nil
}

// Validate applies the checks the registration form performs: every field
// is required and the email must look like an address.
func (r RegisterRequest) Validate() error {
	fields := []struct{ name, value string }{
		{"name", r.Name},
		{"email", r.Email},
		{"login", r.Login},
		{"password", r.Password},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.name, Message: "is required"}
		}
	}
	if !emailPattern.MatchString(strings.TrimSpace(r.Email)) {
		return &ValidationError{Field: "email", Message: "is not a valid address"}
	}
	return nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, r RegisterRequest) (*LoginResponse, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	body := registerRequest{
		Name:     strings.TrimSpace(r.Name),
		Email:    strings.TrimSpace(r.Email),
		Login:    strings.TrimSpace(r.Login),
		Password: HashPassword(r.Password),
	}
	resp, err := c.doJSON(ctx, http.MethodPost, "/register", body)
	if err != nil {
		return nil, err
	}
	lr, err := parseLoginResponse(resp)
	if err != nil {
		return nil, err
	}
	c.log.Info("registered", "login", body.Login, "user_id", lr.UserID)
	return lr, nil
}

func parseLoginResponse(resp *response) (*LoginResponse, error) {
	obj, ok := object(resp.doc)
	if !ok {
		return nil, missingField(resp.status, "user_id")
	}
	userID, ok := stringValue(obj["user_id"])
	if !ok || userID == "" {
		return nil, missingField(resp.status, "user_id")
	}
	lr := &LoginResponse{UserID: userID}
	lr.Message, _ = stringValue(obj["message"])
	lr.AccessToken, _ = obj["access_token"].(string)
	return lr, nil
}
