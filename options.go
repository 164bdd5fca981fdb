package compiledtrees

import (
	"log/slog"

	"github.com/compiledtrees/compiledtrees/ccompile"
)

type options struct {
	toolchain  ccompile.Toolchain
	cache      *ccompile.Cache
	keepSource bool
	logger     *slog.Logger
}

func defaultOptions() *options {
	return &options{
		toolchain: ccompile.NewSystemToolchain(),
		logger:    slog.Default(),
	}
}

// Option is a function that configures compilation
type Option func(*options)

// WithToolchain sets the native toolchain used to build the module
func WithToolchain(tc ccompile.Toolchain) Option {
	return func(o *options) {
		o.toolchain = tc
	}
}

// WithCache sets a compiled-module cache consulted before invoking the toolchain
func WithCache(c *ccompile.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithKeepSource keeps the generated C source next to the compiled module
func WithKeepSource(keep bool) Option {
	return func(o *options) {
		o.keepSource = keep
	}
}

// WithLogger sets the structured logger used by the build pipeline
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
