package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/infra/csmith"
	"github.com/ccdrover/ccdrover/pkg/infra/instrument"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

// Generator hunts for interesting cases: generate a random program,
// sanitize it, instrument it with markers, and keep it when some
// target setting leaves a marker alive that every attacker setting
// eliminates.
type Generator struct {
	CSmith       *csmith.Generator
	Instrumenter *instrument.Instrumenter
	Sanitizer    *Sanitizer
	Checker      *Checker
	Workers      int
}

// GenerateInteresting runs worker goroutines until one of them finds
// an interesting case. Attempt counts and wall time are reported in
// the returned timings.
func (g *Generator) GenerateInteresting(ctx context.Context, scenario *model.Scenario) (*model.Case, *model.Timings, error) {
	if err := scenario.Validate(); err != nil {
		return nil, nil, err
	}

	workers := g.Workers
	if workers < 1 {
		workers = 1
	}

	start := time.Now()
	var attempts atomic.Int64
	found := make(chan *model.Case, 1)

	eg, egCtx := errgroup.WithContext(ctx)
	genCtx, cancel := context.WithCancel(egCtx)
	defer cancel()

	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			for genCtx.Err() == nil {
				attempts.Add(1)
				c, err := g.attempt(genCtx, scenario)
				if err != nil {
					if genCtx.Err() != nil {
						return nil // canceled mid-attempt by a winner
					}
					return err
				}
				if c != nil {
					select {
					case found <- c:
						cancel()
					default:
					}
					return nil
				}
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	select {
	case c := <-found:
		timings := &model.Timings{
			GenerateSeconds:  time.Since(start).Seconds(),
			GenerateAttempts: attempts.Load(),
		}
		ctxlog.From(ctx).Info("found interesting case",
			"marker", c.Marker,
			"attempts", timings.GenerateAttempts,
			"seconds", timings.GenerateSeconds)
		return c, timings, nil
	default:
		return nil, nil, goerr.Wrap(ctx.Err(), "generation canceled before finding a case")
	}
}

// attempt runs one generate-sanitize-instrument-check cycle; a nil
// case without error means the program was not interesting
func (g *Generator) attempt(ctx context.Context, scenario *model.Scenario) (*model.Case, error) {
	program, err := g.CSmith.Generate(ctx)
	if err != nil {
		return nil, err
	}

	res, err := g.Sanitizer.Check(ctx, program)
	if err != nil {
		return nil, err
	}
	if !res.Ok() {
		ctxlog.From(ctx).Debug("program rejected", "reason", res.Reason())
		return nil, nil
	}

	instrumented, markers, err := g.Instrumenter.Instrument(ctx, program)
	if err != nil {
		return nil, err
	}

	prefix := scenario.MarkerPrefix
	if prefix == "" {
		prefix = g.Instrumenter.Prefix
	}

	// markers no attacker setting eliminates can never be interesting
	attackerAlive := map[string]bool{}
	for _, setting := range scenario.AttackerSettings {
		alive, err := g.Checker.AliveMarkers(ctx, instrumented, setting, prefix)
		if err != nil {
			return nil, err
		}
		for m := range alive {
			attackerAlive[m] = true
		}
	}

	for _, setting := range scenario.TargetSettings {
		alive, err := g.Checker.AliveMarkers(ctx, instrumented, setting, prefix)
		if err != nil {
			return nil, err
		}
		for _, marker := range markers {
			if alive[marker] && !attackerAlive[marker] {
				return &model.Case{
					Marker:             marker,
					Code:               instrumented.Code,
					BadSetting:         setting,
					GoodSettings:       scenario.AttackerSettings,
					SystemIncludePaths: instrumented.SystemIncludePaths,
				}, nil
			}
		}
	}
	return nil, nil
}
