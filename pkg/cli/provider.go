package cli

import (
	"context"

	"github.com/ccdrover/ccdrover/pkg/cli/config"
	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/infra/compiler"
	"github.com/ccdrover/ccdrover/pkg/infra/gitrepo"
	"github.com/m-mizutani/goerr/v2"
)

// provider resolves compilation settings to cached compiler builds.
// When a git checkout is configured for a project, symbolic revisions
// (trunk, tags) are resolved to commit hashes first, since cache
// entries are keyed by commit.
type provider struct {
	cache *compiler.Cache
	repos map[model.CompilerProject]*gitrepo.Repo
}

func newProvider(ctx context.Context, tools *config.Tools) (*provider, error) {
	cache, err := compiler.NewCache(tools.CacheDir)
	if err != nil {
		return nil, err
	}

	p := &provider{cache: cache, repos: map[model.CompilerProject]*gitrepo.Repo{}}
	for _, project := range []model.CompilerProject{model.ProjectGCC, model.ProjectLLVM} {
		dir := tools.RepoPath(project.String())
		if dir == "" {
			continue
		}
		repo, err := gitrepo.Open(ctx, dir, project)
		if err != nil {
			return nil, err
		}
		p.repos[project] = repo
	}
	return p, nil
}

// Provide implements interfaces.CompilerProvider
func (p *provider) Provide(ctx context.Context, project model.CompilerProject, rev string) (string, error) {
	if path, err := p.cache.Provide(ctx, project, rev); err == nil {
		return path, nil
	}

	repo, ok := p.repos[project]
	if !ok {
		return "", goerr.New("no cached build and no checkout to resolve revision",
			goerr.V("project", project.String()),
			goerr.V("revision", rev))
	}
	commit, err := repo.RevToCommit(ctx, rev)
	if err != nil {
		return "", err
	}
	return p.cache.Provide(ctx, project, commit)
}

// repo returns the configured checkout for a project
func (p *provider) repo(project model.CompilerProject) (*gitrepo.Repo, error) {
	repo, ok := p.repos[project]
	if !ok {
		return nil, goerr.New("no git checkout configured for project",
			goerr.V("project", project.String()))
	}
	return repo, nil
}
