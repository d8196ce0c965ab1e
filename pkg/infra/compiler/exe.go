package compiler

import (
	"context"
	"os/exec"
	"strings"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/utils/cmdx"
	"github.com/m-mizutani/goerr/v2"
)

// Exe is a concrete compiler executable (gcc or clang) whose project
// and revision have been detected from its -v output
type Exe struct {
	Project  model.CompilerProject
	Path     string
	Revision string
}

// Detect resolves path in PATH if needed and parses the compiler's
// verbose output to identify the project and revision
func Detect(ctx context.Context, path string) (*Exe, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, goerr.Wrap(err, "compiler not found", goerr.V("path", path))
	}

	out, err := cmdx.Run(ctx, resolved, []string{"-v"})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query compiler version", goerr.V("path", resolved))
	}

	project, rev, ok := ParseVersionOutput(out.Combined())
	if !ok {
		return nil, goerr.New("could not identify compiler from -v output",
			goerr.V("path", resolved),
			goerr.V("output", out.Combined()))
	}
	return &Exe{Project: project, Path: resolved, Revision: rev}, nil
}

// VerboseInfo returns the raw `cc -v` output, used in reports
func (e *Exe) VerboseInfo(ctx context.Context) (string, error) {
	out, err := cmdx.Run(ctx, e.Path, []string{"-v"})
	if err != nil {
		return "", goerr.Wrap(err, "failed to get verbose compiler info")
	}
	return out.Combined(), nil
}

// ParseVersionOutput extracts project and revision from compiler -v
// output without running anything; split out for testing
func ParseVersionOutput(output string) (model.CompilerProject, string, bool) {
	for _, line := range strings.Split(output, "\n") {
		if idx := strings.Index(line, "clang version"); idx >= 0 {
			fields := strings.Fields(line[idx+len("clang version"):])
			if len(fields) > 0 {
				return model.ProjectLLVM, fields[0], true
			}
		}
		if idx := strings.Index(line, "gcc version"); idx >= 0 {
			fields := strings.Fields(line[idx+len("gcc version"):])
			if len(fields) > 0 {
				return model.ProjectGCC, fields[0], true
			}
		}
	}
	return 0, "", false
}
