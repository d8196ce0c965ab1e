package model

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// CompilerProject identifies the compiler code base (GCC or LLVM)
type CompilerProject int

const (
	ProjectGCC CompilerProject = iota
	ProjectLLVM
)

func (p CompilerProject) String() string {
	if p == ProjectLLVM {
		return "llvm"
	}
	return "gcc"
}

// BinaryName returns the name of the compiler driver binary
func (p CompilerProject) BinaryName() string {
	if p == ProjectLLVM {
		return "clang"
	}
	return "gcc"
}

// MainBranch returns the default development branch of the project
func (p CompilerProject) MainBranch() string {
	if p == ProjectLLVM {
		return "main"
	}
	return "master"
}

// CommitLink returns the web link for a commit of the project
func (p CompilerProject) CommitLink(commit string) string {
	if p == ProjectLLVM {
		return "https://github.com/llvm/llvm-project/commit/" + commit
	}
	return "https://gcc.gnu.org/git/?p=gcc.git;a=commit;h=" + commit
}

// ParseCompilerProject parses "gcc", "llvm" or "clang"
func ParseCompilerProject(s string) (CompilerProject, error) {
	switch strings.ToLower(s) {
	case "gcc":
		return ProjectGCC, nil
	case "llvm", "clang":
		return ProjectLLVM, nil
	}
	return 0, goerr.New("unknown compiler project", goerr.V("name", s))
}

func (p CompilerProject) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *CompilerProject) UnmarshalText(b []byte) error {
	parsed, err := ParseCompilerProject(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// OptLevel is an optimization level supported by both gcc and clang
type OptLevel int

const (
	O0 OptLevel = iota
	O1
	O2
	O3
	Os
	Oz
)

var optLevelNames = [...]string{"O0", "O1", "O2", "O3", "Os", "Oz"}

func (o OptLevel) String() string {
	if int(o) < 0 || int(o) >= len(optLevelNames) {
		return fmt.Sprintf("OptLevel(%d)", int(o))
	}
	return optLevelNames[o]
}

// Flag returns the compiler flag for this level, e.g. "-O3"
func (o OptLevel) Flag() string {
	return "-" + o.String()
}

// ParseOptLevel accepts both the short ("3", "s") and the long ("O3",
// "Os") spellings
func ParseOptLevel(s string) (OptLevel, error) {
	switch strings.TrimPrefix(s, "O") {
	case "0":
		return O0, nil
	case "1":
		return O1, nil
	case "2":
		return O2, nil
	case "3":
		return O3, nil
	case "s":
		return Os, nil
	case "z":
		return Oz, nil
	}
	return 0, goerr.New("invalid optimization level", goerr.V("input", s))
}

func (o OptLevel) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *OptLevel) UnmarshalText(b []byte) error {
	parsed, err := ParseOptLevel(string(b))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// CompilationSetting describes how a case is compiled: which compiler
// project at which revision, at which optimization level and with
// which extra flags. The revision is resolved to an executable by a
// CompilerProvider.
type CompilationSetting struct {
	Project  CompilerProject `json:"project" toml:"project"`
	Revision string          `json:"revision" toml:"revision"`
	OptLevel OptLevel        `json:"opt_level" toml:"opt_level"`
	Flags    []string        `json:"flags,omitempty" toml:"flags,omitempty"`
}

// String renders the setting the way it appears in reports, e.g.
// "gcc-a1b2c3 -O3"
func (s CompilationSetting) String() string {
	parts := []string{fmt.Sprintf("%s-%s %s", s.Project.BinaryName(), s.Revision, s.OptLevel.Flag())}
	parts = append(parts, s.Flags...)
	return strings.Join(parts, " ")
}

// WithRevision returns a copy of the setting pointing at another
// revision
func (s CompilationSetting) WithRevision(rev string) CompilationSetting {
	s.Revision = rev
	return s
}
