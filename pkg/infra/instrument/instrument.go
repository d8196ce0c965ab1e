package instrument

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

// DefaultPrefix is the marker prefix emitted by the instrumenter tool
const DefaultPrefix = "DCEMarker"

// Instrumenter wraps the clang-based tool that inserts dead-code
// marker calls into every branch of a program. The tool rewrites its
// input file in place.
type Instrumenter struct {
	Path    string
	Prefix  string
	Timeout time.Duration
}

// New locates the instrumenter binary in PATH
func New(binary string) (*Instrumenter, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, goerr.Wrap(err, "instrumenter not found in PATH", goerr.V("binary", binary))
	}
	return &Instrumenter{
		Path:    path,
		Prefix:  DefaultPrefix,
		Timeout: 60 * time.Second,
	}, nil
}

// Instrument inserts markers into the program and returns the
// instrumented copy together with the inserted marker names
func (i *Instrumenter) Instrument(ctx context.Context, program *model.SourceProgram) (*model.SourceProgram, []string, error) {
	dir, err := os.MkdirTemp("", "ccdrover-instrument-*")
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create instrument dir")
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, "input"+program.Language.Suffix())
	if err := os.WriteFile(srcPath, []byte(program.Code), 0o644); err != nil {
		return nil, nil, goerr.Wrap(err, "failed to write instrument input")
	}

	args := []string{srcPath, "--"}
	args = append(args, program.CompilationFlags()...)
	if _, err := cmdx.Run(ctx, i.Path, args, cmdx.WithTimeout(i.Timeout)); err != nil {
		return nil, nil, goerr.Wrap(err, "instrumentation failed")
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to read instrumented code")
	}
	code := string(data)

	markers := ScanMarkers(code, i.Prefix)
	if len(markers) == 0 {
		return nil, nil, goerr.New("instrumenter produced no markers")
	}
	return program.WithCode(code), markers, nil
}

// ScanMarkers collects the marker names declared in instrumented code
func ScanMarkers(code, prefix string) []string {
	pattern := regexp.MustCompile(`void (` + regexp.QuoteMeta(prefix) + `[0-9]+_)\(void\);`)
	var markers []string
	seen := map[string]bool{}
	for _, m := range pattern.FindAllStringSubmatch(code, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			markers = append(markers, m[1])
		}
	}
	return markers
}
