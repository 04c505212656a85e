package github

import (
	"errors"
	"fmt"
)

// ErrUserInfo is returned when the authenticated user cannot be resolved
var ErrUserInfo = errors.New("Unable to retrieve user information from Github")

// UserInfoError wraps the cause of a failed identity lookup. Its message
// is ErrUserInfo's so the cause stays out of the run's failure line.
type UserInfoError struct {
	Err error
}

func (err *UserInfoError) Error() string        { return ErrUserInfo.Error() }
func (err *UserInfoError) Unwrap() error        { return err.Err }
func (err *UserInfoError) Is(target error) bool { return target == ErrUserInfo }

// APIError represents a non-2xx response from the GitHub REST API
type APIError struct {
	StatusCode int
	Message    string
	// DocumentationURL points to the relevant API documentation
	DocumentationURL string
}

func (err *APIError) Error() string {
	return fmt.Sprintf("github: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsUnauthorized reports whether err is a 401 from the API, usually a bad
// or expired token.
func IsUnauthorized(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 401
}
