package input

// Config is the resolved action configuration. It is built once by Resolve
// and only read afterwards.
type Config struct {
	GitHub     GitHub     `json:"github" yaml:"github"`
	Steward    Steward    `json:"steward" yaml:"steward"`
	Commits    Commits    `json:"commits" yaml:"commits"`
	Migrations Migrations `json:"migrations" yaml:"migrations"`
	Runner     Runner     `json:"runner" yaml:"runner"`
}

// GitHub holds the credentials used to talk to GitHub
type GitHub struct {
	Token  string `json:"token" yaml:"token"`
	APIURL string `json:"api_url" yaml:"api_url"`
	// App is nil unless both the app id and key were provided
	App *App `json:"app,omitempty" yaml:"app,omitempty"`
}

// App is a GitHub App credential
type App struct {
	ID  string `json:"id" yaml:"id"`
	Key string `json:"key" yaml:"key"`
}

// Steward holds the Scala Steward launch settings
type Steward struct {
	// Repos is the markdown list written to repos.md
	Repos                string `json:"repos" yaml:"repos"`
	Version              string `json:"version" yaml:"version"`
	Timeout              string `json:"timeout" yaml:"timeout"`
	CacheTTL             string `json:"cache_ttl" yaml:"cache_ttl"`
	IgnoreOptsFiles      bool   `json:"ignore_opts_files" yaml:"ignore_opts_files"`
	DefaultConfiguration string `json:"default_configuration,omitempty" yaml:"default_configuration,omitempty"`
	// ExtraArgs is the raw, space separated "other-args" input
	ExtraArgs string `json:"extra_args,omitempty" yaml:"extra_args,omitempty"`
}

// Commits configures the commits Scala Steward creates
type Commits struct {
	Author Author `json:"author" yaml:"author"`
	Sign   Sign   `json:"sign" yaml:"sign"`
}

// Author overrides the authenticated user's identity when set
type Author struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// Sign configures commit signing
type Sign struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Key     string `json:"key,omitempty" yaml:"key,omitempty"`
}

// Migrations points at extra migration files
type Migrations struct {
	Scalafix  string `json:"scalafix,omitempty" yaml:"scalafix,omitempty"`
	Artifacts string `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
}

// Runner holds settings for the runner itself rather than Scala Steward
type Runner struct {
	WorkspaceDir    string `json:"workspace_dir" yaml:"workspace_dir"`
	ToolsDir        string `json:"tools_dir" yaml:"tools_dir"`
	CacheDir        string `json:"cache_dir" yaml:"cache_dir"`
	MillVersion     string `json:"mill_version" yaml:"mill_version"`
	MavenCentralURL string `json:"maven_central_url" yaml:"maven_central_url"`
	MetricsFile     string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty"`
	OTLPEndpoint    string `json:"otlp_endpoint,omitempty" yaml:"otlp_endpoint,omitempty"`
	LogLevel        string `json:"log_level" yaml:"log_level"`
	LogFormat       string `json:"log_format" yaml:"log_format"`
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	out := c
	if out.GitHub.Token != "" {
		out.GitHub.Token = redacted
	}
	if c.GitHub.App != nil {
		app := *c.GitHub.App
		app.Key = redacted
		out.GitHub.App = &app
	}
	return out
}

const redacted = "***"
