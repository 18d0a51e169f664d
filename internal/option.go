package internal

import (
	"io"

	"github.com/starford/trellis/internal/graph"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	logOut   io.Writer
	graphOpt []graph.Option
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects the structured log. The MCP server needs this to
// keep stdout free for the protocol.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}

// WithGraphOptions passes options to every graph the application builds.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(a *application) {
		a.graphOpt = append(a.graphOpt, opts...)
	}
}
