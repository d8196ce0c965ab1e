package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/ccdrover/ccdrover/pkg/domain/interfaces"
	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/infra/compiler"
	"github.com/ccdrover/ccdrover/pkg/infra/gitrepo"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Bisector narrows the compiler history down to the commit where the
// case's interestingness flips. Cached compiler builds are used first;
// the remaining range is walked with git's bisection midpoints. A
// revision without a cached build counts as a build failure and is
// skipped by jumping 10% through the range.
type Bisector struct {
	Repo         *gitrepo.Repo
	Cache        *compiler.Cache
	Checker      interfaces.CaseChecker
	MaxBuildFail int

	steps int64
}

// Bisect returns the commit at which interestingness flips: the
// introducing commit for regressions, the fixing commit otherwise
func (b *Bisector) Bisect(ctx context.Context, c *model.Case) (string, *model.Timings, error) {
	if err := c.Validate(); err != nil {
		return "", nil, err
	}
	start := time.Now()
	b.steps = 0

	badCommit, err := b.Repo.RevToCommit(ctx, c.BadSetting.Revision)
	if err != nil {
		return "", nil, err
	}

	goodCommit, ancestor, err := b.pickGoodCommit(ctx, c, badCommit)
	if err != nil {
		return "", nil, err
	}

	logger := ctxlog.From(ctx)
	var result string
	interestingIsBad := true

	if isAnc, err := b.Repo.IsAncestor(ctx, goodCommit, badCommit); err != nil {
		return "", nil, err
	} else if isAnc {
		// plain regression search between good and bad
		result, err = b.bisect(ctx, c, goodCommit, badCommit, true)
		if err != nil {
			return "", nil, err
		}
	} else {
		// good lives on a diverged branch; the merge base decides
		// whether we hunt the introducer or the fixer
		baseInteresting, err := b.isInteresting(ctx, c, ancestor)
		if err != nil {
			return "", nil, err
		}
		if !baseInteresting {
			logger.Info("regression introduced after the merge base")
			result, err = b.bisect(ctx, c, ancestor, badCommit, true)
			if err != nil {
				return "", nil, err
			}
		} else {
			logger.Info("searching for the fixing commit instead")
			interestingIsBad = false
			result, err = b.bisect(ctx, c, ancestor, goodCommit, false)
			if err != nil {
				return "", nil, err
			}
		}
	}

	if err := b.verify(ctx, c, result, interestingIsBad); err != nil {
		return "", nil, err
	}

	timings := &model.Timings{
		BisectSeconds: time.Since(start).Seconds(),
		BisectSteps:   b.steps,
	}
	logger.Info("bisection finished",
		"commit", result,
		"steps", b.steps,
		"seconds", timings.BisectSeconds)
	return result, timings, nil
}

// pickGoodCommit selects the good setting whose branch point with the
// bad commit is the most recent, minimizing the bisection range. Only
// settings on the same project and optimization level qualify.
func (b *Bisector) pickGoodCommit(ctx context.Context, c *model.Case, badCommit string) (string, string, error) {
	var bestGood, bestAncestor string
	for _, gs := range c.GoodSettings {
		if gs.Project != c.BadSetting.Project || gs.OptLevel != c.BadSetting.OptLevel {
			continue
		}
		goodCommit, err := b.Repo.RevToCommit(ctx, gs.Revision)
		if err != nil {
			return "", "", err
		}
		ancestor, err := b.Repo.MergeBase(ctx, badCommit, goodCommit)
		if err != nil {
			return "", "", err
		}
		if bestAncestor == "" {
			bestGood, bestAncestor = goodCommit, ancestor
			continue
		}
		newer, err := b.Repo.IsAncestor(ctx, bestAncestor, ancestor)
		if err != nil {
			return "", "", err
		}
		if newer {
			bestGood, bestAncestor = goodCommit, ancestor
		}
	}
	if bestGood == "" {
		return "", "", goerr.New("no good setting is comparable with the bad setting",
			goerr.V("bad", c.BadSetting.String()))
	}
	return bestGood, bestAncestor, nil
}

// isInteresting tests the case at another revision of the bad compiler
func (b *Bisector) isInteresting(ctx context.Context, c *model.Case, rev string) (bool, error) {
	b.steps++
	probe := c.Clone()
	probe.BadSetting = c.BadSetting.WithRevision(rev)
	return b.Checker.IsInteresting(ctx, probe)
}

func (b *Bisector) bisect(ctx context.Context, c *model.Case, goodRev, badRev string, interestingIsBad bool) (string, error) {
	goodRev, badRev, err := b.bisectInCache(ctx, c, goodRev, badRev, interestingIsBad)
	if err != nil {
		return "", err
	}
	return b.bisectStepping(ctx, c, goodRev, badRev, interestingIsBad)
}

// bisectInCache narrows the range using only revisions that already
// have a cached build, so no midpoint can fail to build
func (b *Bisector) bisectInCache(ctx context.Context, c *model.Case, goodRev, badRev string, interestingIsBad bool) (string, string, error) {
	path, err := b.Repo.FirstParentPath(ctx, goodRev, badRev)
	if err != nil {
		return "", "", err
	}
	position := make(map[string]int, len(path))
	for i, rev := range path {
		position[rev] = i
	}

	allCached, err := b.Cache.Revisions(c.BadSetting.Project)
	if err != nil {
		return "", "", err
	}
	// keep cached revisions on the path, ordered newest first like
	// the rev-list output
	var cached []string
	for _, rev := range allCached {
		if _, ok := position[rev]; ok {
			cached = append(cached, rev)
		}
	}
	sortByPosition(cached, position)

	ctxlog.From(ctx).Info("bisecting among cached builds",
		"range", len(path),
		"cached", len(cached))

	for len(cached) > 0 {
		mid := len(cached) / 2
		midpoint := cached[mid]

		interesting, err := b.isInteresting(ctx, c, midpoint)
		if err != nil {
			return "", "", err
		}
		// the head of the slice is the newest commit; finding the
		// interesting side there cuts the head, otherwise the tail
		if interesting == interestingIsBad {
			badRev = midpoint
			cached = cached[mid+1:]
		} else {
			goodRev = midpoint
			cached = cached[:mid]
		}
	}
	return goodRev, badRev, nil
}

func sortByPosition(revs []string, position map[string]int) {
	for i := 1; i < len(revs); i++ {
		for j := i; j > 0 && position[revs[j]] < position[revs[j-1]]; j-- {
			revs[j], revs[j-1] = revs[j-1], revs[j]
		}
	}
}

// bisectStepping walks the remaining range with git's bisection
// midpoints, skipping over revisions that cannot be provided
func (b *Bisector) bisectStepping(ctx context.Context, c *model.Case, goodRev, badRev string, interestingIsBad bool) (string, error) {
	maxFail := b.MaxBuildFail
	if maxFail < 1 {
		maxFail = 2
	}

	logger := ctxlog.From(ctx)
	var midpoint, oldMidpoint string
	buildFailed := false
	failCount := 0

	for {
		if err := ctx.Err(); err != nil {
			return "", goerr.Wrap(err, "bisection canceled")
		}

		if !buildFailed {
			oldMidpoint = midpoint
			next, err := b.Repo.NextBisection(ctx, goodRev, badRev)
			if err != nil {
				return "", err
			}
			if next == "" || next == oldMidpoint {
				break
			}
			midpoint = next
		} else {
			if failCount >= maxFail {
				return "", goerr.New("too many consecutive unbuildable revisions",
					goerr.V("good", goodRev),
					goerr.V("bad", badRev))
			}
			// jump 10% through the range, alternating the direction
			// so repeated failures do not get stuck in one region
			var err error
			if failCount%2 == 0 {
				span, perr := b.Repo.FirstParentPath(ctx, midpoint, badRev)
				if perr != nil {
					return "", perr
				}
				midpoint, err = b.Repo.Ancestor(ctx, badRev, max(int(0.9*float64(len(span))), 1))
			} else {
				span, perr := b.Repo.FirstParentPath(ctx, goodRev, midpoint)
				if perr != nil {
					return "", perr
				}
				midpoint, err = b.Repo.Ancestor(ctx, midpoint, max(int(0.1*float64(len(span))), 1))
			}
			if err != nil {
				return "", err
			}
			failCount++
			buildFailed = false
		}

		logger.Info("testing midpoint", "commit", midpoint)
		interesting, err := b.isInteresting(ctx, c, midpoint)
		if err != nil {
			if errors.Is(err, compiler.ErrRevisionNotBuilt) {
				logger.Warn("no build for midpoint, skipping", "commit", midpoint)
				buildFailed = true
				continue
			}
			return "", err
		}

		if interesting == interestingIsBad {
			badRev = midpoint
		} else {
			goodRev = midpoint
		}
	}

	return badRev, nil
}

// verify asserts the bisection result: interestingness must flip
// exactly at the found commit
func (b *Bisector) verify(ctx context.Context, c *model.Case, rev string, interestingIsBad bool) error {
	prev, err := b.Repo.Ancestor(ctx, rev, 1)
	if err != nil {
		return err
	}
	atRev, err := b.isInteresting(ctx, c, rev)
	if err != nil {
		return err
	}
	atPrev, err := b.isInteresting(ctx, c, prev)
	if err != nil {
		return err
	}
	if atRev != interestingIsBad || atPrev == interestingIsBad {
		return goerr.New("bisection result failed verification",
			goerr.V("commit", rev),
			goerr.V("at_commit", atRev),
			goerr.V("at_parent", atPrev))
	}
	return nil
}
