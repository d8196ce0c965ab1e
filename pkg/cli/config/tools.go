package config

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
)

// Tools holds the paths of the external tools and directories the
// pipeline depends on
type Tools struct {
	CacheDir     string
	GCCRepo      string
	LLVMRepo     string
	Instrumenter string
	ReduceJobs   int64
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "compiler-cache"
	}
	return filepath.Join(home, ".cache", "ccdrover", "compilers")
}

// Flags returns CLI flags for tool configuration
func (c *Tools) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cache-dir",
			Usage:       "Directory holding cached compiler builds",
			Value:       defaultCacheDir(),
			Destination: &c.CacheDir,
			Sources:     cli.EnvVars("CCDROVER_CACHE_DIR"),
		},
		&cli.StringFlag{
			Name:        "gcc-repo",
			Usage:       "Path of the gcc git checkout",
			Destination: &c.GCCRepo,
			Sources:     cli.EnvVars("CCDROVER_GCC_REPO"),
		},
		&cli.StringFlag{
			Name:        "llvm-repo",
			Usage:       "Path of the llvm-project git checkout",
			Destination: &c.LLVMRepo,
			Sources:     cli.EnvVars("CCDROVER_LLVM_REPO"),
		},
		&cli.StringFlag{
			Name:        "instrumenter",
			Usage:       "Marker instrumenter binary",
			Value:       "dead-instrument",
			Destination: &c.Instrumenter,
			Sources:     cli.EnvVars("CCDROVER_INSTRUMENTER"),
		},
		&cli.Int64Flag{
			Name:        "reduce-jobs",
			Usage:       "Parallel creduce jobs (0 = NumCPU)",
			Destination: &c.ReduceJobs,
			Sources:     cli.EnvVars("CCDROVER_REDUCE_JOBS"),
		},
	}
}

// RepoPath returns the configured checkout for a project name
// ("gcc" or "llvm"); empty when unconfigured
func (c *Tools) RepoPath(project string) string {
	if project == "llvm" {
		return c.LLVMRepo
	}
	return c.GCCRepo
}
