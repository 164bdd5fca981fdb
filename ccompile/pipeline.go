package ccompile

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	scierr "github.com/compiledtrees/compiledtrees/pkg/errors"
	"github.com/compiledtrees/compiledtrees/pkg/log"
)

// Pipeline materializes generated source to a transient file, invokes the
// toolchain, and hands back the path of the compiled module. The caller owns
// the returned path: it must outlive any evaluator linked against it, and the
// caller removes the containing directory when done.
type Pipeline struct {
	toolchain  Toolchain
	cache      *Cache
	keepSource bool
	logger     *slog.Logger
}

// NewPipeline creates a pipeline around the given toolchain.
func NewPipeline(tc Toolchain) *Pipeline {
	return &Pipeline{
		toolchain: tc,
		logger:    slog.Default(),
	}
}

// SetCache attaches a compiled-module cache. Generation is deterministic, so
// a source-hash hit yields a module functionally identical to a fresh build.
func (p *Pipeline) SetCache(c *Cache) {
	p.cache = c
}

// SetKeepSource leaves the generated .c file next to the module instead of
// removing it after the build, which helps when inspecting miscompiles.
func (p *Pipeline) SetKeepSource(keep bool) {
	p.keepSource = keep
}

// SetLogger replaces the default slog logger.
func (p *Pipeline) SetLogger(l *slog.Logger) {
	if l != nil {
		p.logger = l
	}
}

// Compile builds the source into a shared module and returns its path inside
// a fresh transient directory. On any failure the directory is removed before
// the error is returned, so no half-built artifacts leak.
func (p *Pipeline) Compile(ctx context.Context, source []byte) (string, error) {
	start := time.Now()
	key := sha256.Sum256(source)

	dir, err := os.MkdirTemp("", "compiledtrees-*")
	if err != nil {
		return "", scierr.Wrap(err, "create transient build directory")
	}
	modulePath := filepath.Join(dir, "model.so")

	if p.cache != nil {
		module, ok, err := p.cache.Get(key)
		if err != nil {
			os.RemoveAll(dir)
			return "", err
		}
		if ok {
			if err := os.WriteFile(modulePath, module, 0o600); err != nil {
				os.RemoveAll(dir)
				return "", scierr.Wrap(err, "materialize cached module")
			}
			p.logger.Debug("compile served from cache",
				slog.Bool(log.CacheHitKey, true),
				slog.String(log.ModulePathKey, modulePath),
			)
			return modulePath, nil
		}
	}

	srcPath := filepath.Join(dir, "model.c")
	if err := os.WriteFile(srcPath, source, 0o600); err != nil {
		os.RemoveAll(dir)
		return "", scierr.Wrap(err, "write generated source")
	}

	if err := p.toolchain.Compile(ctx, srcPath, modulePath); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	if !p.keepSource {
		os.Remove(srcPath)
	}

	if p.cache != nil {
		module, err := os.ReadFile(modulePath)
		if err == nil {
			// Cache population is best effort; a full or broken cache
			// must not fail an otherwise successful build.
			if err := p.cache.Put(key, module); err != nil {
				p.logger.Warn("module cache store failed", log.ErrAttr(err))
			}
		}
	}

	p.logger.Debug("module compiled",
		slog.String(log.CompilerKey, p.toolchain.Name()),
		slog.Int(log.SourceBytesKey, len(source)),
		slog.String(log.ModulePathKey, modulePath),
		slog.Int64(log.DurationMsKey, time.Since(start).Milliseconds()),
	)
	return modulePath, nil
}
