package usecase

import (
	"context"
	"regexp"
	"time"

	"github.com/ccdrover/ccdrover/pkg/domain/interfaces"
	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/infra/compiler"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Checker decides whether a case is interesting: the marker call must
// survive in the assembly of the bad setting and be eliminated by
// every good setting.
type Checker struct {
	provider interfaces.CompilerProvider
	timeout  time.Duration
}

func NewChecker(provider interfaces.CompilerProvider) *Checker {
	return &Checker{provider: provider, timeout: 60 * time.Second}
}

// resolve turns a compilation setting into a runnable compiler setting
// by asking the provider for the revision's executable
func (ch *Checker) resolve(ctx context.Context, s model.CompilationSetting) (*compiler.Setting, error) {
	path, err := ch.provider.Provide(ctx, s.Project, s.Revision)
	if err != nil {
		return nil, err
	}
	return &compiler.Setting{
		Compiler: &compiler.Exe{Project: s.Project, Path: path, Revision: s.Revision},
		OptLevel: s.OptLevel,
		Flags:    s.Flags,
	}, nil
}

// AliveMarkers compiles the program to assembly and returns the set of
// markers with the given prefix that still appear as call targets
func (ch *Checker) AliveMarkers(ctx context.Context, program *model.SourceProgram, setting model.CompilationSetting, prefix string) (map[string]bool, error) {
	cs, err := ch.resolve(ctx, setting)
	if err != nil {
		return nil, err
	}

	res, err := cs.Compile(ctx, program, compiler.OutputAssembly, nil, ch.timeout)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compile for marker scan",
			goerr.V("setting", setting.String()))
	}
	defer res.Close()

	asm, err := res.Read()
	if err != nil {
		return nil, err
	}

	pattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(prefix) + `[0-9]+_\b`)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid marker prefix", goerr.V("prefix", prefix))
	}

	alive := map[string]bool{}
	for _, m := range pattern.FindAllString(asm, -1) {
		alive[m] = true
	}
	return alive, nil
}

// IsInteresting reports whether the case's marker is alive under the
// bad setting and dead under every good setting
func (ch *Checker) IsInteresting(ctx context.Context, c *model.Case) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}

	prefix := model.MarkerPrefix(c.Marker)
	program := c.Program()

	aliveBad, err := ch.AliveMarkers(ctx, program, c.BadSetting, prefix)
	if err != nil {
		return false, err
	}
	if !aliveBad[c.Marker] {
		ctxlog.From(ctx).Debug("marker dead under bad setting",
			"marker", c.Marker,
			"setting", c.BadSetting.String())
		return false, nil
	}

	for _, good := range c.GoodSettings {
		aliveGood, err := ch.AliveMarkers(ctx, program, good, prefix)
		if err != nil {
			return false, err
		}
		if aliveGood[c.Marker] {
			ctxlog.From(ctx).Debug("marker alive under good setting",
				"marker", c.Marker,
				"setting", good.String())
			return false, nil
		}
	}
	return true, nil
}
