// Package args turns the resolved configuration into the Scala Steward
// command line.
package args

import (
	"strings"

	"github.com/psantana5/steward-action/internal/input"
)

// Kind is the semantic kind of an option value
type Kind int

const (
	KindAbsent Kind = iota
	KindBool
	KindString
)

// Value is an option value of one of the three kinds
type Value struct {
	kind Kind
	b    bool
	s    string
}

// None is a value that was never provided
func None() Value { return Value{kind: KindAbsent} }

// Bool is a flag value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String is a string value. The empty string behaves like None.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind returns the value's kind
func (v Value) Kind() Kind { return v.kind }

// Arg renders one option. Absent values, empty strings and false flags
// produce nothing; true flags produce the name alone; strings produce
// the name followed by the value.
func Arg(name string, value Value) []string {
	switch value.kind {
	case KindString:
		if value.s == "" {
			return nil
		}
		return []string{name, value.s}
	case KindBool:
		if value.b {
			return []string{name}
		}
		return nil
	default:
		return nil
	}
}

// SBTOpts is passed to every build Scala Steward runs
const SBTOpts = "SBT_OPTS=-Xmx2048m -Xss8m -XX:MaxMetaspaceSize=512m"

// Identity is the authenticated GitHub user
type Identity interface {
	Login() string
	Name() string
	Email() string
}

// Layout is the set of paths inside a prepared workspace
type Layout interface {
	WorkspaceDir() string
	ReposFile() string
	AskPassFile() string
	AppKeyFile() string
}

// Steward builds the full Scala Steward command line. Author fields fall
// back to the authenticated user when not configured.
func Steward(cfg *input.Config, ws Layout, user Identity) []string {
	email := cfg.Commits.Author.Email
	if email == "" {
		email = user.Email()
	}
	name := cfg.Commits.Author.Name
	if name == "" {
		name = user.Name()
	}

	appID, appKeyFile := None(), None()
	if cfg.GitHub.App != nil {
		appID = String(cfg.GitHub.App.ID)
		appKeyFile = String(ws.AppKeyFile())
	}

	var tokens []string
	for _, a := range []struct {
		name  string
		value Value
	}{
		{"--workspace", String(ws.WorkspaceDir())},
		{"--repos-file", String(ws.ReposFile())},
		{"--git-ask-pass", String(ws.AskPassFile())},
		{"--git-author-email", String(email)},
		{"--git-author-name", String(name)},
		{"--vcs-login", String(user.Login())},
		{"--env-var", String(SBTOpts)},
		{"--process-timeout", String(cfg.Steward.Timeout)},
		{"--vcs-api-host", String(cfg.GitHub.APIURL)},
		{"--ignore-opts-files", Bool(cfg.Steward.IgnoreOptsFiles)},
		{"--sign-commits", Bool(cfg.Commits.Sign.Enabled)},
		{"--git-author-signing-key", String(cfg.Commits.Sign.Key)},
		{"--cache-ttl", String(cfg.Steward.CacheTTL)},
		{"--scalafix-migrations", String(cfg.Migrations.Scalafix)},
		{"--artifact-migrations", String(cfg.Migrations.Artifacts)},
		{"--repo-config", String(cfg.Steward.DefaultConfiguration)},
		{"--github-app-id", appID},
		{"--github-app-key-file", appKeyFile},
	} {
		tokens = append(tokens, Arg(a.name, a.value)...)
	}

	tokens = append(tokens, "--do-not-fork", "--disable-sandbox")
	return append(tokens, strings.Fields(cfg.Steward.ExtraArgs)...)
}
