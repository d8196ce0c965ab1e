package compiler

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"time"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/utils/cmdx"
	"github.com/m-mizutani/goerr/v2"
)

// CComp wraps the CompCert reference compiler, used in interpreter
// mode to rule out undefined behavior in generated programs
type CComp struct {
	Path string
}

// inline assembly trips up CompCert's interpreter
var asmStmtPattern = regexp.MustCompile(`__asm__ [^\)]*\)`)

// FindCComp locates ccomp in PATH; a nil result without error means
// CompCert is not installed and the check should be skipped
func FindCComp() (*CComp, error) {
	path, err := exec.LookPath("ccomp")
	if err != nil {
		return nil, nil
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve ccomp path", goerr.V("path", path))
	}
	return &CComp{Path: resolved}, nil
}

// Check interprets the program with `ccomp -interp -fall` and reports
// whether it ran without errors. A timeout is returned as an error
// satisfying cmdx.IsTimeout.
func (c *CComp) Check(ctx context.Context, program *model.SourceProgram, timeout time.Duration) (bool, error) {
	dir, err := os.MkdirTemp("", "ccdrover-ccomp-*")
	if err != nil {
		return false, goerr.Wrap(err, "failed to create ccomp dir")
	}
	defer os.RemoveAll(dir)

	code := asmStmtPattern.ReplaceAllString(program.Code, "")
	srcPath := filepath.Join(dir, "input.c")
	if err := os.WriteFile(srcPath, []byte(code), 0o644); err != nil {
		return false, goerr.Wrap(err, "failed to write ccomp input")
	}

	args := []string{srcPath, "-interp", "-fall"}
	for _, path := range program.IncludePaths {
		args = append(args, "-I"+path)
	}
	for _, path := range program.SystemIncludePaths {
		args = append(args, "-I"+path)
	}
	for _, m := range program.DefinedMacros {
		args = append(args, "-D"+m)
	}

	_, err = cmdx.Run(ctx, c.Path, args,
		cmdx.WithTimeout(timeout),
		cmdx.WithEnv(map[string]string{"TMPDIR": dir}))
	if err != nil {
		if cmdx.IsTimeout(err) {
			return false, err
		}
		return false, nil
	}
	return true, nil
}
