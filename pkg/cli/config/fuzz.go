package config

import "github.com/urfave/cli/v3"

// Fuzz holds the fuzzing loop configuration
type Fuzz struct {
	Amount  int64
	Workers int64
	Bisect  bool
	Reduce  bool
}

// Flags returns CLI flags for the fuzzing loop
func (c *Fuzz) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "amount",
			Usage:       "How many interesting cases to find (0 = run forever)",
			Destination: &c.Amount,
			Sources:     cli.EnvVars("CCDROVER_AMOUNT"),
		},
		&cli.Int64Flag{
			Name:        "workers",
			Usage:       "Parallel generation workers",
			Value:       1,
			Destination: &c.Workers,
			Sources:     cli.EnvVars("CCDROVER_WORKERS"),
		},
		&cli.BoolFlag{
			Name:        "bisect",
			Usage:       "Bisect each found case",
			Destination: &c.Bisect,
			Sources:     cli.EnvVars("CCDROVER_BISECT"),
		},
		&cli.BoolFlag{
			Name:        "reduce",
			Usage:       "Reduce each found case",
			Destination: &c.Reduce,
			Sources:     cli.EnvVars("CCDROVER_REDUCE"),
		},
	}
}
