package cli

import (
	"context"

	"github.com/ccdrover/ccdrover/pkg/cli/config"
	"github.com/ccdrover/ccdrover/pkg/infra/store"
	"github.com/ccdrover/ccdrover/pkg/usecase"
	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"
)

func cmdAbsorb() *cli.Command {
	var (
		storeCfg config.Store
		dir      string
	)

	flags := append(storeCfg.Flags(), &cli.StringFlag{
		Name:        "dir",
		Usage:       "Directory of exported case files to import",
		Destination: &dir,
		Required:    true,
	})

	return &cli.Command{
		Name:  "absorb",
		Usage: "Import exported case files into the store",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			db, err := store.New(storeCfg.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			transfer := &usecase.Transfer{Store: db}
			n, err := transfer.Absorb(ctx, dir)
			if err != nil {
				return err
			}

			ctxlog.From(ctx).Info("absorbed cases", "count", n, "dir", dir)
			return nil
		},
	}
}

func cmdExport() *cli.Command {
	var (
		storeCfg config.Store
		caseID   string
		out      string
	)

	flags := append(storeCfg.Flags(),
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Case ID to export",
			Destination: &caseID,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "out",
			Usage:       "Output file path",
			Destination: &out,
			Required:    true,
		},
	)

	return &cli.Command{
		Name:  "export",
		Usage: "Write a recorded case to a JSON file",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			db, err := store.New(storeCfg.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			transfer := &usecase.Transfer{Store: db}
			if err := transfer.Export(ctx, caseID, out); err != nil {
				return err
			}

			ctxlog.From(ctx).Info("exported case", "case_id", caseID, "path", out)
			return nil
		},
	}
}
