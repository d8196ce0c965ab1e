package config

import "github.com/urfave/cli/v3"

// Store holds case store configuration
type Store struct {
	Path string
}

// Flags returns CLI flags for store configuration
func (c *Store) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "db",
			Usage:       "Path of the SQLite case database",
			Value:       "ccdrover.db",
			Destination: &c.Path,
			Sources:     cli.EnvVars("CCDROVER_DB"),
		},
	}
}
