// Package ccompile drives an external native compiler to turn generated C
// source into a loadable shared module. The compiler is an injected
// capability, so tests can substitute a fake toolchain and the pipeline never
// hard-codes a process-wide binary.
package ccompile

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	scierr "github.com/compiledtrees/compiledtrees/pkg/errors"
)

// Toolchain compiles one C source file into a position-independent shared
// module at outPath. Implementations must be safe for repeated use; a failed
// compile is deterministic and is never retried by the pipeline.
type Toolchain interface {
	// Compile blocks until the compiler finishes or ctx is done.
	Compile(ctx context.Context, srcPath, outPath string) error
	// Name identifies the toolchain in errors and logs.
	Name() string
}

// SystemToolchain invokes the system C compiler as a subprocess.
// The flag set targets numeric branch-heavy code: full optimization plus the
// position-independent output dlopen requires.
type SystemToolchain struct {
	// CC is the compiler command. Defaults to $CC, then "cc".
	CC string
	// ExtraFlags are appended after the default flag set.
	ExtraFlags []string
}

// NewSystemToolchain returns a toolchain using $CC when set, "cc" otherwise.
func NewSystemToolchain() *SystemToolchain {
	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}
	return &SystemToolchain{CC: cc}
}

// Name returns the compiler command.
func (tc *SystemToolchain) Name() string {
	return tc.CC
}

// Available reports whether the compiler command can be found on PATH.
func (tc *SystemToolchain) Available() bool {
	_, err := exec.LookPath(tc.CC)
	return err == nil
}

// Compile runs the compiler synchronously. A missing binary or a non-zero
// exit is surfaced as a CompileError carrying the compiler's diagnostic
// output verbatim. Cancelling ctx kills the subprocess and the attempt is
// treated as failed.
func (tc *SystemToolchain) Compile(ctx context.Context, srcPath, outPath string) error {
	// -ffp-contract=off: keeps the final multiply-add as two rounded
	// operations, so compiled output stays bit compatible with the
	// reference traversal even where the compiler would otherwise fuse.
	args := []string{"-O3", "-ffp-contract=off", "-fPIC", "-shared", "-x", "c", srcPath, "-o", outPath}
	args = append(args, tc.ExtraFlags...)

	cmd := exec.CommandContext(ctx, tc.CC, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return scierr.NewCompileError(tc.CC, stderr.String(), err)
	}
	return nil
}
