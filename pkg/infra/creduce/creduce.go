package creduce

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/ccdrover/ccdrover/pkg/utils/cmdx"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Reducer drives creduce over a source file guarded by an
// interestingness script
type Reducer struct {
	Path    string
	Jobs    int
	Timeout time.Duration

	// Progress receives creduce's own output as it runs; reductions
	// take hours and the pass log is the only sign of life. Output is
	// captured silently when nil.
	Progress io.Writer
}

// New locates creduce in PATH
func New() (*Reducer, error) {
	path, err := exec.LookPath("creduce")
	if err != nil {
		return nil, goerr.Wrap(err, "creduce not found in PATH")
	}
	return &Reducer{
		Path:    path,
		Jobs:    runtime.NumCPU(),
		Timeout: 4 * time.Hour,
	}, nil
}

// Reduce shrinks code while the script keeps exiting zero. The script
// is run by creduce from a scratch directory containing a copy of the
// current candidate as code.c.
func (r *Reducer) Reduce(ctx context.Context, code, script string) (string, error) {
	dir, err := os.MkdirTemp("", "ccdrover-reduce-*")
	if err != nil {
		return "", goerr.Wrap(err, "failed to create reduction dir")
	}
	defer os.RemoveAll(dir)

	codePath := filepath.Join(dir, "code.c")
	if err := os.WriteFile(codePath, []byte(code), 0o644); err != nil {
		return "", goerr.Wrap(err, "failed to write reduction input")
	}
	scriptPath := filepath.Join(dir, "check.sh")
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		return "", goerr.Wrap(err, "failed to write interestingness script")
	}

	ctxlog.From(ctx).Info("starting reduction",
		"jobs", r.Jobs,
		"input_bytes", len(code))

	args := []string{"--n", strconv.Itoa(r.Jobs), scriptPath, codePath}
	opts := []cmdx.Option{cmdx.WithDir(dir)}
	if r.Timeout > 0 {
		opts = append(opts, cmdx.WithTimeout(r.Timeout))
	}
	if r.Progress != nil {
		opts = append(opts, cmdx.WithOutputTo(r.Progress))
	}
	if _, err := cmdx.Run(ctx, r.Path, args, opts...); err != nil {
		return "", goerr.Wrap(err, "creduce failed")
	}

	// creduce rewrites the input file in place
	reduced, err := os.ReadFile(codePath)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read reduced code")
	}

	ctxlog.From(ctx).Info("reduction finished", "output_bytes", len(reduced))
	return string(reduced), nil
}
