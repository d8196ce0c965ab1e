package cli

import (
	"context"
	"os"

	"github.com/ccdrover/ccdrover/pkg/cli/config"
	"github.com/ccdrover/ccdrover/pkg/usecase"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// cmdCheck is both a user-facing command and the interestingness test
// creduce calls back into, so its exit code is the verdict
func cmdCheck() *cli.Command {
	var (
		toolsCfg config.Tools
		casePath string
		codePath string
		marker   string
	)

	flags := append(toolsCfg.Flags(),
		&cli.StringFlag{
			Name:        "case",
			Usage:       "Case file to check",
			Destination: &casePath,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "code",
			Usage:       "Replace the case's code with this file before checking",
			Destination: &codePath,
		},
		&cli.StringFlag{
			Name:        "marker",
			Usage:       "Override the checked marker",
			Destination: &marker,
		},
	)

	return &cli.Command{
		Name:  "check",
		Usage: "Exit 0 when the case is interesting, 1 otherwise",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			testCase, err := usecase.ReadCaseFile(casePath)
			if err != nil {
				return err
			}
			if codePath != "" {
				data, err := os.ReadFile(codePath)
				if err != nil {
					return goerr.Wrap(err, "failed to read code file", goerr.V("path", codePath))
				}
				testCase.ReducedCode = string(data)
			}
			if marker != "" {
				testCase.Marker = marker
			}

			prov, err := newProvider(ctx, &toolsCfg)
			if err != nil {
				return err
			}

			ok, err := usecase.NewChecker(prov).IsInteresting(ctx, testCase)
			if err != nil {
				return err
			}
			if !ok {
				ctxlog.From(ctx).Debug("case is not interesting", "marker", testCase.Marker)
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}
