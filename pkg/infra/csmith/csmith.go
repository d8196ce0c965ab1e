package csmith

import (
	"context"
	"math/rand"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/utils/cmdx"
	"github.com/m-mizutani/goerr/v2"
)

// fixedOptions are always passed; they keep the generated programs in
// the well defined subset the checks rely on
var fixedOptions = []string{
	"--no-unions",
	"--safe-math",
	"--no-argc",
	"--no-volatiles",
	"--no-volatile-pointers",
}

// optionPool holds features that are toggled at random per program to
// diversify the generated population
var optionPool = []string{
	"arrays",
	"bitfields",
	"checksum",
	"comma-operators",
	"compound-assignment",
	"consts",
	"divs",
	"embedded-assigns",
	"jumps",
	"longlong",
	"force-non-uniform-arrays",
	"math64",
	"muls",
	"packed-struct",
	"paranoid",
	"pointers",
	"structs",
	"inline-function",
	"return-structs",
	"arg-structs",
	"dangling-global-pointers",
}

var includeCandidates = []string{
	"/usr/include/csmith-2.3.0",
	"/usr/local/include/csmith-2.3.0",
	"/usr/include/csmith",
	"/usr/local/include/csmith",
}

// Generator produces random C programs with csmith
type Generator struct {
	Path        string
	IncludePath string
	MinSize     int
	MaxSize     int
	Timeout     time.Duration

	// one Generator is shared by all generation workers, so draws
	// from the rng must be serialized
	mu  sync.Mutex
	rng *rand.Rand
}

// New locates the csmith binary and its runtime headers
func New() (*Generator, error) {
	path, err := exec.LookPath("csmith")
	if err != nil {
		return nil, goerr.Wrap(err, "csmith not found in PATH")
	}
	include, err := findIncludePath()
	if err != nil {
		return nil, err
	}
	return &Generator{
		Path:        path,
		IncludePath: include,
		MinSize:     10_000,
		MaxSize:     50_000,
		Timeout:     30 * time.Second,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func findIncludePath() (string, error) {
	for _, dir := range includeCandidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", goerr.New("csmith include dir not found", goerr.V("candidates", includeCandidates))
}

// options draws a random feature subset from the pool
func (g *Generator) options() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	opts := make([]string, 0, len(fixedOptions)+len(optionPool))
	opts = append(opts, fixedOptions...)
	for _, feature := range optionPool {
		if g.rng.Intn(2) == 0 {
			opts = append(opts, "--"+feature)
		} else {
			opts = append(opts, "--no-"+feature)
		}
	}
	return opts
}

// Generate produces one random program whose size falls within the
// configured bounds, retrying generation until it does
func (g *Generator) Generate(ctx context.Context) (*model.SourceProgram, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, goerr.Wrap(err, "generation canceled")
		}

		out, err := cmdx.Run(ctx, g.Path, g.options(), cmdx.WithTimeout(g.Timeout))
		if err != nil {
			if cmdx.IsTimeout(err) {
				continue // csmith occasionally hangs on unlucky seeds
			}
			return nil, goerr.Wrap(err, "csmith failed")
		}

		code := out.Stdout
		if len(code) < g.MinSize || len(code) > g.MaxSize {
			continue
		}

		return &model.SourceProgram{
			Code:               code,
			Language:           model.LangC,
			SystemIncludePaths: []string{g.IncludePath},
		}, nil
	}
}
