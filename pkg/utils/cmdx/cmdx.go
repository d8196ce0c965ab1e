package cmdx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Output holds the captured streams of a finished command
type Output struct {
	Stdout string
	Stderr string
}

// Combined returns stdout and stderr joined by a newline
func (o Output) Combined() string {
	return o.Stdout + "\n" + o.Stderr
}

type config struct {
	dir     string
	env     map[string]string
	timeout time.Duration
	stdout  io.Writer
	stderr  io.Writer
}

// Option configures a command invocation
type Option func(*config)

// WithDir sets the working directory
func WithDir(dir string) Option {
	return func(c *config) { c.dir = dir }
}

// WithEnv adds environment variables on top of the current process env
func WithEnv(env map[string]string) Option {
	return func(c *config) { c.env = env }
}

// WithTimeout aborts the command after d; the resulting error
// satisfies IsTimeout
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithOutputTo streams both stdout and stderr to w instead of
// capturing them; used for long-running tools like creduce
func WithOutputTo(w io.Writer) Option {
	return func(c *config) {
		c.stdout = w
		c.stderr = w
	}
}

var errTimeout = errors.New("command timed out")

// IsTimeout reports whether err was caused by a command timeout or a
// context deadline
func IsTimeout(err error) bool {
	return errors.Is(err, errTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// ExitCode extracts the command's exit code from err, or -1 if err
// was not an exit failure
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Run executes name with args and captures its output. A non-zero
// exit status is returned as an error carrying the captured streams.
func Run(ctx context.Context, name string, args []string, opts ...Option) (*Output, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = cfg.dir
	if len(cfg.env) > 0 {
		env := os.Environ()
		for k, v := range cfg.env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	if cfg.stdout != nil {
		cmd.Stdout = cfg.stdout
		cmd.Stderr = cfg.stderr
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	out := &Output{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return out, goerr.Wrap(errTimeout, "command timed out",
				goerr.V("cmd", name),
				goerr.V("args", args))
		}
		return out, goerr.Wrap(err, "command failed",
			goerr.V("cmd", name),
			goerr.V("args", args),
			goerr.V("stdout", out.Stdout),
			goerr.V("stderr", out.Stderr))
	}
	return out, nil
}
