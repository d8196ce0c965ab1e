package cli

import (
	"context"
	"fmt"

	"github.com/ccdrover/ccdrover/pkg/cli/config"
	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/infra/store"
	"github.com/ccdrover/ccdrover/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdBisect() *cli.Command {
	var (
		toolsCfg config.Tools
		storeCfg config.Store
		caseID   string
	)

	flags := append(toolsCfg.Flags(), storeCfg.Flags()...)
	flags = append(flags, &cli.StringFlag{
		Name:        "id",
		Usage:       "Case ID to bisect",
		Destination: &caseID,
		Required:    true,
	})

	return &cli.Command{
		Name:  "bisect",
		Usage: "Bisect a recorded case to the commit where its behavior flips",
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

			checker := usecase.NewChecker(prov)
			bisector := &usecase.Bisector{Repo: repo, Cache: prov.cache, Checker: checker}

			commit, timings, err := bisector.Bisect(ctx, rec.Case)
			if err != nil {
				return err
			}

			rec.Case.Bisection = commit
			if err := db.UpdateCase(ctx, caseID, rec.Case); err != nil {
				return err
			}
			if err := mergeTimings(ctx, db, caseID, timings); err != nil {
				return err
			}

			fmt.Println(rec.Case.BadSetting.Project.CommitLink(commit))
			return nil
		},
	}
}

// mergeTimings folds new stage timings into whatever was recorded
// for the case before
func mergeTimings(ctx context.Context, db *store.Store, caseID string, add *model.Timings) error {
	existing, err := db.GetTiming(ctx, caseID)
	if err != nil {
		return err
	}
	if existing == nil {
		existing = &model.Timings{}
	}
	if add.GenerateSeconds > 0 {
		existing.GenerateSeconds = add.GenerateSeconds
		existing.GenerateAttempts = add.GenerateAttempts
	}
	if add.BisectSeconds > 0 {
		existing.BisectSeconds = add.BisectSeconds
		existing.BisectSteps = add.BisectSteps
	}
	if add.ReduceSeconds > 0 {
		existing.ReduceSeconds = add.ReduceSeconds
	}
	return db.RecordTiming(ctx, caseID, existing)
}
