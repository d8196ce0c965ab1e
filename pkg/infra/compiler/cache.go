package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// ErrRevisionNotBuilt is returned when the cache holds no build for
// the requested revision; the bisector treats it as a skippable miss
var ErrRevisionNotBuilt = errors.New("compiler revision not built")

// Cache resolves compiler revisions to previously built executables.
// Builds live under <root>/<binary>-<revision>/bin/<binary>, the
// layout produced by the compiler build scripts.
type Cache struct {
	Root string
}

// NewCache validates that root exists and returns a cache over it
func NewCache(root string) (*Cache, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, goerr.Wrap(err, "compiler cache dir not accessible", goerr.V("root", root))
	}
	if !info.IsDir() {
		return nil, goerr.New("compiler cache path is not a directory", goerr.V("root", root))
	}
	return &Cache{Root: root}, nil
}

// Provide returns the path of the compiler binary built at the given
// revision, or ErrRevisionNotBuilt when the cache has no such build
func (c *Cache) Provide(ctx context.Context, project model.CompilerProject, rev string) (string, error) {
	bin := project.BinaryName()
	path := filepath.Join(c.Root, bin+"-"+rev, "bin", bin)
	if _, err := os.Stat(path); err != nil {
		return "", goerr.Wrap(ErrRevisionNotBuilt, "no cached build",
			goerr.V("project", project.String()),
			goerr.V("revision", rev))
	}
	return path, nil
}

// Revisions scans the cache for all built revisions of a project.
// Symlinked entries are skipped; they alias builds listed elsewhere.
func (c *Cache) Revisions(project model.CompilerProject) ([]string, error) {
	entries, err := os.ReadDir(c.Root)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan compiler cache", goerr.V("root", c.Root))
	}

	bin := project.BinaryName()
	var revs []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, bin+"-") {
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		if _, err := os.Stat(filepath.Join(c.Root, name, "bin", bin)); err != nil {
			continue
		}
		revs = append(revs, strings.TrimPrefix(name, bin+"-"))
	}
	return revs, nil
}
