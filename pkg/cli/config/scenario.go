package config

import (
	"os"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Scenario holds the scenario file configuration
type Scenario struct {
	Path string
}

// Flags returns CLI flags for scenario configuration
func (c *Scenario) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "scenario",
			Usage:       "TOML file with target and attacker compiler settings",
			Destination: &c.Path,
			Sources:     cli.EnvVars("CCDROVER_SCENARIO"),
			Required:    true,
		},
	}
}

// Load parses and validates the scenario file
func (c *Scenario) Load() (*model.Scenario, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read scenario file", goerr.V("path", c.Path))
	}

	var scenario model.Scenario
	if err := toml.Unmarshal(data, &scenario); err != nil {
		return nil, goerr.Wrap(err, "failed to parse scenario file", goerr.V("path", c.Path))
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}
