package cli

import (
	"context"
	"os"

	"github.com/ccdrover/ccdrover/pkg/cli/config"
	"github.com/ccdrover/ccdrover/pkg/infra/store"
	"github.com/ccdrover/ccdrover/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdReport() *cli.Command {
	var (
		toolsCfg config.Tools
		storeCfg config.Store
		caseID   string
		noColor  bool
		noPull   bool
	)

	flags := append(toolsCfg.Flags(), storeCfg.Flags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Case ID to report",
			Destination: &caseID,
			Required:    true,
		},
		&cli.BoolFlag{
			Name:        "no-color",
			Usage:       "Disable colored output",
			Destination: &noColor,
		},
		&cli.BoolFlag{
			Name:        "no-pull",
			Usage:       "Skip updating the compiler checkout first",
			Destination: &noPull,
		},
	)

	return &cli.Command{
		Name:  "report",
		Usage: "Print a bug report for a bisected and reduced case",
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
			repo, err := prov.repo(rec.Case.BadSetting.Project)
			if err != nil {
				return err
			}

			reporter := &usecase.Reporter{
				Repo:    repo,
				Checker: usecase.NewChecker(prov),
				Out:     os.Stdout,
				NoColor: noColor,
			}
			return reporter.Report(ctx, rec.Case, !noPull)
		},
	}
}
