package compiler

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/utils/cmdx"
	"github.com/m-mizutani/goerr/v2"
)

// OutputKind selects what the compiler should produce
type OutputKind int

const (
	OutputObject OutputKind = iota
	OutputExecutable
	OutputAssembly
	OutputLLVMIR
)

func (k OutputKind) flags() []string {
	switch k {
	case OutputObject:
		return []string{"-c"}
	case OutputAssembly:
		return []string{"-S"}
	case OutputLLVMIR:
		return []string{"-S", "-emit-llvm"}
	default:
		return nil
	}
}

func (k OutputKind) suffix() string {
	switch k {
	case OutputObject:
		return ".o"
	case OutputAssembly:
		return ".s"
	case OutputLLVMIR:
		return ".ll"
	default:
		return ".exe"
	}
}

// Result is the outcome of a successful compilation
type Result struct {
	OutputPath string
	Output     string // combined compiler stdout and stderr
	cleanup    func()
}

// Read returns the contents of the output file
func (r *Result) Read() (string, error) {
	data, err := os.ReadFile(r.OutputPath)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read compilation output", goerr.V("path", r.OutputPath))
	}
	return string(data), nil
}

// Close removes the temporary output directory, if one was created
func (r *Result) Close() {
	if r.cleanup != nil {
		r.cleanup()
	}
}

// Run executes a compiled executable with a timeout; used by the
// sanitizer for the instrumented binaries
func (r *Result) Run(ctx context.Context, env map[string]string, timeout time.Duration) error {
	opts := []cmdx.Option{cmdx.WithTimeout(timeout)}
	if len(env) > 0 {
		opts = append(opts, cmdx.WithEnv(env))
	}
	if _, err := cmdx.Run(ctx, r.OutputPath, nil, opts...); err != nil {
		return err
	}
	return nil
}

// Setting binds a compiler executable to an optimization level and
// extra flags; the compile-side counterpart of model.CompilationSetting
type Setting struct {
	Compiler *Exe
	OptLevel model.OptLevel
	Flags    []string
}

// Command assembles the argv for compiling program into the given
// output path; exported so the reducer can embed the exact command in
// interestingness scripts
func (s *Setting) Command(program *model.SourceProgram, kind OutputKind, srcPath, outPath string, extraFlags []string) []string {
	args := []string{s.OptLevel.Flag(), program.Language.Flag()}
	args = append(args, s.Flags...)
	args = append(args, program.CompilationFlags()...)
	args = append(args, extraFlags...)
	args = append(args, srcPath)
	if kind == OutputExecutable {
		if lf := program.Language.LinkerFlag(); lf != "" {
			args = append(args, lf)
		}
	}
	args = append(args, kind.flags()...)
	args = append(args, "-o", outPath)
	return args
}

// Compile writes the program to a temp dir, runs the compiler and
// returns the output. The caller must Close the result.
func (s *Setting) Compile(ctx context.Context, program *model.SourceProgram, kind OutputKind, extraFlags []string, timeout time.Duration) (*Result, error) {
	if err := program.Validate(); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "ccdrover-cc-*")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create compile dir")
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	srcPath := filepath.Join(dir, "input"+program.Language.Suffix())
	if err := os.WriteFile(srcPath, []byte(program.Code), 0o644); err != nil {
		cleanup()
		return nil, goerr.Wrap(err, "failed to write source file")
	}
	outPath := filepath.Join(dir, "output"+kind.suffix())

	args := s.Command(program, kind, srcPath, outPath, extraFlags)
	opts := []cmdx.Option{cmdx.WithEnv(map[string]string{"TMPDIR": dir})}
	if timeout > 0 {
		opts = append(opts, cmdx.WithTimeout(timeout))
	}
	out, err := cmdx.Run(ctx, s.Compiler.Path, args, opts...)
	if err != nil {
		cleanup()
		if cmdx.IsTimeout(err) {
			return nil, err
		}
		return nil, goerr.Wrap(err, "compilation failed",
			goerr.V("compiler", s.Compiler.Path),
			goerr.V("opt_level", s.OptLevel.String()))
	}

	if kind == OutputExecutable {
		if err := os.Chmod(outPath, 0o755); err != nil {
			cleanup()
			return nil, goerr.Wrap(err, "failed to mark output executable")
		}
	}

	return &Result{OutputPath: outPath, Output: out.Combined(), cleanup: cleanup}, nil
}
