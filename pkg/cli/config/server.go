package config

import "github.com/urfave/cli/v3"

// Server configures the case browsing HTTP endpoint.
type Server struct {
	Addr string
}

func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Address to listen on for the case API",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("CCDROVER_ADDR"),
		},
	}
}
