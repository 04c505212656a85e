package input

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/psantana5/steward-action/pkg/logging"
)

// Input names, as declared in action.yml. GitHub exposes each one to the
// action as INPUT_<NAME> with the name upper-cased.
const (
	KeyGitHubToken        = "github-token"
	KeyGitHubAPIURL       = "github-api-url"
	KeyGitHubAppID        = "github-app-id"
	KeyGitHubAppKey       = "github-app-key"
	KeyReposFile          = "repos-file"
	KeyGitHubRepository   = "github-repository"
	KeyBranches           = "branches"
	KeyAuthorEmail        = "author-email"
	KeyAuthorName         = "author-name"
	KeySignCommits        = "sign-commits"
	KeySigningKey         = "signing-key"
	KeyCacheTTL           = "cache-ttl"
	KeyTimeout            = "timeout"
	KeyIgnoreOptsFiles    = "ignore-opts-files"
	KeyStewardVersion     = "scala-steward-version"
	KeyScalafixMigrations = "scalafix-migrations"
	KeyArtifactMigrations = "artifact-migrations"
	KeyRepoConfig         = "repo-config"
	KeyOtherArgs          = "other-args"
	KeyMillVersion        = "mill-version"
	KeyWorkspaceDir       = "workspace-dir"
	KeyToolsDir           = "tools-dir"
	KeyCacheDir           = "cache-dir"
	KeyMetricsFile        = "metrics-file"
	KeyOTLPEndpoint       = "otlp-endpoint"
	KeyLogLevel           = "log-level"
	KeyLogFormat          = "log-format"
	KeyMavenCentralURL    = "maven-central-url"
)

const (
	DefaultAPIURL          = "https://api.github.com"
	DefaultStewardVersion  = "0.30.2"
	DefaultMillVersion     = "0.11.12"
	DefaultRepoConfig      = ".github/.scala-steward.conf"
	DefaultMavenCentralURL = "https://repo1.maven.org/maven2/"
	DefaultTimeout         = "30min"
	DefaultCacheTTL        = "2hours"
)

// Input describes one action input
type Input struct {
	Key         string
	Description string
}

// Inputs lists every input Resolve reads, for flag registration
var Inputs = []Input{
	{KeyGitHubToken, "GitHub token used to open pull requests"},
	{KeyGitHubAPIURL, "GitHub API URL"},
	{KeyGitHubAppID, "GitHub App ID, used with github-app-key"},
	{KeyGitHubAppKey, "GitHub App private key, used with github-app-id"},
	{KeyReposFile, "file listing the repositories to update"},
	{KeyGitHubRepository, "repository to update (owner/name)"},
	{KeyBranches, "comma separated branches of github-repository to update"},
	{KeyAuthorEmail, "commit author email, defaults to the token owner's"},
	{KeyAuthorName, "commit author name, defaults to the token owner's"},
	{KeySignCommits, "sign commits with the author's signing key"},
	{KeySigningKey, "key ID used to sign commits"},
	{KeyCacheTTL, "TTL for Scala Steward's artifact cache"},
	{KeyTimeout, "timeout for external processes"},
	{KeyIgnoreOptsFiles, "ignore .jvmopts and .sbtopts files"},
	{KeyStewardVersion, "Scala Steward version to launch"},
	{KeyScalafixMigrations, "file with extra scalafix migrations"},
	{KeyArtifactMigrations, "file with extra artifact migrations"},
	{KeyRepoConfig, "default repository configuration file"},
	{KeyOtherArgs, "extra arguments for Scala Steward, space separated"},
	{KeyMillVersion, "Mill version to install"},
	{KeyWorkspaceDir, "directory for Scala Steward's workspace"},
	{KeyToolsDir, "directory for installed tools"},
	{KeyCacheDir, "directory holding workspace cache blobs"},
	{KeyMetricsFile, "write Prometheus metrics to this file"},
	{KeyOTLPEndpoint, "OTLP/HTTP collector (host:port) for run traces"},
	{KeyLogLevel, "log level: debug, info, warn, error"},
	{KeyLogFormat, "log format: text or json"},
	{KeyMavenCentralURL, "Maven Central URL probed before installing tools"},
}

// Files is the filesystem access Resolve needs
type Files interface {
	Exists(path string) bool
	ReadFile(path string) ([]byte, error)
}

// OSFiles reads from the real filesystem
type OSFiles struct{}

func (OSFiles) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFiles) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Bind wires env lookup and defaults into v. home is used to derive the
// default workspace, tools and cache locations.
func Bind(v *viper.Viper, home string) {
	v.SetEnvPrefix("INPUT")
	v.AutomaticEnv()

	// Fall back to the repository the workflow runs in
	_ = v.BindEnv(KeyGitHubRepository, "INPUT_GITHUB-REPOSITORY", "GITHUB_REPOSITORY")

	v.SetDefault(KeyGitHubAPIURL, DefaultAPIURL)
	v.SetDefault(KeyStewardVersion, DefaultStewardVersion)
	v.SetDefault(KeyMillVersion, DefaultMillVersion)
	v.SetDefault(KeyRepoConfig, DefaultRepoConfig)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyCacheTTL, DefaultCacheTTL)
	v.SetDefault(KeySignCommits, "false")
	v.SetDefault(KeyIgnoreOptsFiles, "false")
	v.SetDefault(KeyMavenCentralURL, DefaultMavenCentralURL)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyWorkspaceDir, filepath.Join(home, "scala-steward"))
	v.SetDefault(KeyToolsDir, defaultToolsDir(home))
	v.SetDefault(KeyCacheDir, filepath.Join(home, ".steward-action", "cache"))
}

func defaultToolsDir(home string) string {
	if dir := os.Getenv("RUNNER_TOOL_CACHE"); dir != "" {
		return filepath.Join(dir, "steward-action")
	}
	return filepath.Join(home, ".steward-action", "tools")
}

// Resolve reads every input from v and validates the result
func Resolve(v *viper.Viper, files Files, logger *logging.Logger) (*Config, error) {
	token := get(v, KeyGitHubToken)
	if token == "" {
		return nil, fmt.Errorf("Input required and not supplied: %s", KeyGitHubToken)
	}

	app, err := resolveApp(v)
	if err != nil {
		return nil, err
	}

	repos, err := resolveRepos(v, files, app != nil)
	if err != nil {
		return nil, err
	}

	defaultConf, err := resolveRepoConfig(v, files, logger)
	if err != nil {
		return nil, err
	}

	ignoreOpts, err := getBool(v, KeyIgnoreOptsFiles)
	if err != nil {
		return nil, err
	}
	sign, err := getBool(v, KeySignCommits)
	if err != nil {
		return nil, err
	}

	scalafix, err := existingFile(v, files, KeyScalafixMigrations)
	if err != nil {
		return nil, err
	}
	artifacts, err := existingFile(v, files, KeyArtifactMigrations)
	if err != nil {
		return nil, err
	}

	return &Config{
		GitHub: GitHub{
			Token:  token,
			APIURL: get(v, KeyGitHubAPIURL),
			App:    app,
		},
		Steward: Steward{
			Repos:                repos,
			Version:              get(v, KeyStewardVersion),
			Timeout:              get(v, KeyTimeout),
			CacheTTL:             get(v, KeyCacheTTL),
			IgnoreOptsFiles:      ignoreOpts,
			DefaultConfiguration: defaultConf,
			ExtraArgs:            get(v, KeyOtherArgs),
		},
		Commits: Commits{
			Author: Author{
				Name:  get(v, KeyAuthorName),
				Email: get(v, KeyAuthorEmail),
			},
			Sign: Sign{
				Enabled: sign,
				Key:     get(v, KeySigningKey),
			},
		},
		Migrations: Migrations{
			Scalafix:  scalafix,
			Artifacts: artifacts,
		},
		Runner: Runner{
			WorkspaceDir:    get(v, KeyWorkspaceDir),
			ToolsDir:        get(v, KeyToolsDir),
			CacheDir:        get(v, KeyCacheDir),
			MillVersion:     get(v, KeyMillVersion),
			MavenCentralURL: get(v, KeyMavenCentralURL),
			MetricsFile:     get(v, KeyMetricsFile),
			OTLPEndpoint:    get(v, KeyOTLPEndpoint),
			LogLevel:        get(v, KeyLogLevel),
			LogFormat:       get(v, KeyLogFormat),
		},
	}, nil
}

func get(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func getBool(v *viper.Viper, key string) (bool, error) {
	raw := get(v, key)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("input %s must be true or false, got %q", key, raw)
	}
	return b, nil
}

func resolveApp(v *viper.Viper) (*App, error) {
	id := get(v, KeyGitHubAppID)
	key := get(v, KeyGitHubAppKey)

	switch {
	case id == "" && key == "":
		return nil, nil
	case id == "" || key == "":
		return nil, fmt.Errorf("`%s` and `%s` must be provided together", KeyGitHubAppID, KeyGitHubAppKey)
	}
	return &App{ID: id, Key: key}, nil
}

// resolveRepos builds the repos.md content
func resolveRepos(v *viper.Viper, files Files, hasApp bool) (string, error) {
	if path := get(v, KeyReposFile); path != "" {
		if !files.Exists(path) {
			return "", fmt.Errorf("The path indicated in `%s` (%s) does not exist", KeyReposFile, path)
		}
		data, err := files.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return string(data), nil
	}

	// Scala Steward lists the app installations itself
	if hasApp {
		return "", nil
	}

	repo := get(v, KeyGitHubRepository)
	if repo == "" {
		return "", errors.New("no repository to update: set `github-repository` or `repos-file`")
	}

	var branches []string
	for _, b := range strings.Split(get(v, KeyBranches), ",") {
		if b = strings.TrimSpace(b); b != "" {
			branches = append(branches, b)
		}
	}
	if len(branches) == 0 {
		return "- " + repo, nil
	}

	lines := make([]string, len(branches))
	for i, b := range branches {
		lines[i] = fmt.Sprintf("- %s:%s", repo, b)
	}
	return strings.Join(lines, "\n"), nil
}

func resolveRepoConfig(v *viper.Viper, files Files, logger *logging.Logger) (string, error) {
	path := get(v, KeyRepoConfig)
	if path == "" {
		return "", nil
	}
	if files.Exists(path) {
		return path, nil
	}
	if path != DefaultRepoConfig {
		return "", fmt.Errorf("Provided default repo conf file (%s) does not exist", path)
	}
	logger.Debug("No default repo configuration found", map[string]interface{}{"path": path})
	return "", nil
}

func existingFile(v *viper.Viper, files Files, key string) (string, error) {
	path := get(v, key)
	if path == "" {
		return "", nil
	}
	if !files.Exists(path) {
		return "", fmt.Errorf("The path indicated in `%s` (%s) does not exist", key, path)
	}
	return path, nil
}
