package internal

// Mode selects what Run does.
type Mode string

// Run modes.
const (
	ModeStdio   Mode = "stdio"   // MCP tools over stdin/stdout
	ModeHTTP    Mode = "http"    // REST API, SSE and watcher
	ModeRender  Mode = "render"  // regenerate the documents once
	ModeReindex Mode = "reindex" // rebuild search indexes and documents
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	mode    Mode
	version string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode sets the run mode. The default is ModeStdio.
func WithMode(m Mode) Option {
	return func(a *application) {
		a.mode = m
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}
