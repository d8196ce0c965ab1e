package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/ccdrover/ccdrover/pkg/cli/config"
	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/infra/creduce"
	"github.com/ccdrover/ccdrover/pkg/infra/csmith"
	"github.com/ccdrover/ccdrover/pkg/infra/instrument"
	"github.com/ccdrover/ccdrover/pkg/infra/store"
	"github.com/ccdrover/ccdrover/pkg/usecase"
	"github.com/ccdrover/ccdrover/pkg/utils/async"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdRun() *cli.Command {
	var (
		toolsCfg    config.Tools
		storeCfg    config.Store
		fuzzCfg     config.Fuzz
		scenarioCfg config.Scenario
		notifyCfg   config.Notify
	)

	flags := toolsCfg.Flags()
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, fuzzCfg.Flags()...)
	flags = append(flags, scenarioCfg.Flags()...)
	flags = append(flags, notifyCfg.Flags()...)

	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run the fuzzing loop: generate, optionally bisect and reduce, record",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			scenario, err := scenarioCfg.Load()
			if err != nil {
				return err
			}

			prov, err := newProvider(ctx, &toolsCfg)
			if err != nil {
				return err
			}
			checker := usecase.NewChecker(prov)

			sanitizer, err := usecase.NewSanitizer(ctx)
			if err != nil {
				return err
			}
			generator, err := csmith.New()
			if err != nil {
				return err
			}
			instrumenter, err := instrument.New(toolsCfg.Instrumenter)
			if err != nil {
				return err
			}

			db, err := store.New(storeCfg.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			hunt := &usecase.Generator{
				CSmith:       generator,
				Instrumenter: instrumenter,
				Sanitizer:    sanitizer,
				Checker:      checker,
				Workers:      int(fuzzCfg.Workers),
			}

			var reducer *usecase.Reducer
			if fuzzCfg.Reduce {
				reducer, err = newReducer(&toolsCfg, checker, sanitizer)
				if err != nil {
					return err
				}
			}

			notifier := notifyCfg.Notifier()

			for found := int64(0); fuzzCfg.Amount == 0 || found < fuzzCfg.Amount; found++ {
				if err := ctx.Err(); err != nil {
					return goerr.Wrap(err, "run loop canceled")
				}

				foundCase, timings, err := hunt.GenerateInteresting(ctx, scenario)
				if err != nil {
					return err
				}

				if fuzzCfg.Bisect {
					bisectCase(ctx, prov, checker, foundCase, timings)
				}

				if reducer != nil {
					reduced, rt, err := reducer.Reduce(ctx, foundCase)
					if err != nil {
						logger.Warn("reduction failed, keeping original code",
							slog.Any("error", err))
					} else {
						foundCase.ReducedCode = reduced
						timings.ReduceSeconds = rt.ReduceSeconds
					}
				}

				id, err := db.PutCase(ctx, foundCase)
				if err != nil {
					return err
				}
				if err := db.RecordTiming(ctx, id, timings); err != nil {
					return err
				}
				logger.Info("case recorded",
					slog.String("case_id", id),
					slog.String("marker", foundCase.Marker))

				rec, err := db.GetCase(ctx, id)
				if err != nil {
					return err
				}
				async.Dispatch(ctx, func(ctx context.Context) error {
					return notifier.NotifyNewCase(ctx, rec)
				})
			}
			return nil
		},
	}
}

// bisectCase bisects in place; a failed bisection only costs the
// bisection field, never the case
func bisectCase(ctx context.Context, prov *provider, checker *usecase.Checker, c *model.Case, timings *model.Timings) {
	logger := ctxlog.From(ctx)

	repo, err := prov.repo(c.BadSetting.Project)
	if err != nil {
		logger.Warn("skipping bisection", slog.Any("error", err))
		return
	}

	bisector := &usecase.Bisector{Repo: repo, Cache: prov.cache, Checker: checker}
	commit, bt, err := bisector.Bisect(ctx, c)
	if err != nil {
		logger.Warn("bisection failed", slog.Any("error", err))
		return
	}
	c.Bisection = commit
	timings.BisectSeconds = bt.BisectSeconds
	timings.BisectSteps = bt.BisectSteps
}

// newReducer wires creduce with the self-exec interestingness check
func newReducer(toolsCfg *config.Tools, checker *usecase.Checker, sanitizer *usecase.Sanitizer) (*usecase.Reducer, error) {
	red, err := creduce.New()
	if err != nil {
		return nil, err
	}
	if toolsCfg.ReduceJobs > 0 {
		red.Jobs = int(toolsCfg.ReduceJobs)
	}

	self, err := os.Executable()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to locate own binary")
	}

	return &usecase.Reducer{
		CReduce:   red,
		Checker:   checker,
		Sanitizer: sanitizer,
		SelfPath:  self,
		SelfArgs:  []string{"--cache-dir", toolsCfg.CacheDir},
	}, nil
}
