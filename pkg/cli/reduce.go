package cli

import (
	"context"
	"os"

	"github.com/ccdrover/ccdrover/pkg/cli/config"
	"github.com/ccdrover/ccdrover/pkg/infra/store"
	"github.com/ccdrover/ccdrover/pkg/usecase"
	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"
)

func cmdReduce() *cli.Command {
	var (
		toolsCfg config.Tools
		storeCfg config.Store
		caseID   string
	)

	flags := append(toolsCfg.Flags(), storeCfg.Flags()...)
	flags = append(flags, &cli.StringFlag{
		Name:        "id",
		Usage:       "Case ID to reduce",
		Destination: &caseID,
		Required:    true,
	})

	return &cli.Command{
		Name:  "reduce",
		Usage: "Shrink a recorded case with creduce",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			db, err := store.New(storeCfg.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			rec, err := db.GetCase(ctx, caseID)
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
			reducer, err := newReducer(&toolsCfg, checker, sanitizer)
			if err != nil {
				return err
			}
			// standalone reduction is interactive, show creduce progress
			reducer.CReduce.Progress = os.Stderr

			reduced, timings, err := reducer.Reduce(ctx, rec.Case)
			if err != nil {
				return err
			}

			rec.Case.ReducedCode = reduced
			if err := db.UpdateCase(ctx, caseID, rec.Case); err != nil {
				return err
			}
			if err := mergeTimings(ctx, db, caseID, timings); err != nil {
				return err
			}

			ctxlog.From(ctx).Info("case reduced",
				"case_id", caseID,
				"bytes", len(reduced))
			return nil
		},
	}
}
