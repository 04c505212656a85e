// Package github resolves the identity behind the workflow's GitHub token.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/psantana5/steward-action/pkg/logging"
)

// githubAPIVersion pins the REST API version header
const githubAPIVersion = "2022-11-28"

// DefaultBaseURL is the public GitHub API
const DefaultBaseURL = "https://api.github.com"

// Client is a minimal GitHub REST client for identity lookups
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates a client for baseURL. An empty baseURL targets the
// public API.
func NewClient(baseURL string, httpClient *http.Client, logger *logging.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.WithField("component", "github"),
	}
}

// User is the authenticated account Scala Steward commits as
type User struct {
	ID    int64
	login string
	name  string
	email string
}

// NewUser builds a user from already known profile fields
func NewUser(id int64, login, name, email string) *User {
	return &User{ID: id, login: login, name: name, email: email}
}

// Login returns the account login
func (u *User) Login() string { return u.login }

// Name returns the display name, or the login when none is set
func (u *User) Name() string {
	if u.name != "" {
		return u.name
	}
	return u.login
}

// Email returns the public or primary email, or the account's noreply
// address when neither is visible
func (u *User) Email() string {
	if u.email != "" {
		return u.email
	}
	return fmt.Sprintf("%d+%s@users.noreply.github.com", u.ID, u.login)
}

type userResponse struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type emailResponse struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GetAuthUser returns the user that owns token
func (client *Client) GetAuthUser(ctx context.Context, token string) (*User, error) {
	var resp userResponse
	if err := client.get(ctx, token, "/user", &resp); err != nil {
		client.logger.Debug(err.Error())
		return nil, &UserInfoError{Err: err}
	}
	if resp.Login == "" {
		return nil, &UserInfoError{Err: errors.New("github: empty login")}
	}

	user := &User{ID: resp.ID, login: resp.Login, name: resp.Name, email: resp.Email}
	if user.email == "" {
		user.email = client.primaryEmail(ctx, token)
	}

	client.logger.Info("✓ Github user information retrieved", map[string]interface{}{
		"login": user.Login(),
	})
	return user, nil
}

// primaryEmail looks up the verified primary address. Tokens without the
// user:email scope get a 403 here, which is not fatal.
func (client *Client) primaryEmail(ctx context.Context, token string) string {
	var emails []emailResponse
	if err := client.get(ctx, token, "/user/emails", &emails); err != nil {
		client.logger.Debug("Primary email unavailable", map[string]interface{}{"error": err.Error()})
		return ""
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	return ""
}

func (client *Client) get(ctx context.Context, token, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("github: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("github: reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var parsed struct {
			Message          string `json:"message"`
			DocumentationURL string `json:"documentation_url"`
		}
		if json.Unmarshal(body, &parsed) == nil {
			apiErr.Message = parsed.Message
			apiErr.DocumentationURL = parsed.DocumentationURL
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("github: decoding %s: %w", path, err)
	}
	return nil
}
