package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/infra/creduce"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Reducer shrinks a case's program with creduce while preserving its
// interestingness. The interestingness test re-invokes this very
// binary's check subcommand against a snapshot of the case.
type Reducer struct {
	CReduce   *creduce.Reducer
	Checker   *Checker
	Sanitizer *Sanitizer
	SelfPath  string   // the ccdrover binary creduce calls back into
	SelfArgs  []string // extra flags for the check subcommand
}

// Reduce preprocesses the case's code, runs creduce over it and
// returns the reduced program after re-verifying it is still
// interesting
func (r *Reducer) Reduce(ctx context.Context, c *model.Case) (string, *model.Timings, error) {
	if err := c.Validate(); err != nil {
		return "", nil, err
	}
	start := time.Now()

	setting, err := r.Checker.resolve(ctx, c.BadSetting)
	if err != nil {
		return "", nil, err
	}

	// preprocessing first makes the reduction input self-contained
	// and keeps creduce away from the csmith headers
	preprocessed, err := setting.Preprocess(ctx, c.Program(), true, time.Minute)
	if err != nil {
		return "", nil, err
	}

	snapshot := c.Clone()
	snapshot.Code = preprocessed.Code
	snapshot.ReducedCode = ""
	snapshot.SystemIncludePaths = nil

	caseFile, err := writeCaseSnapshot(snapshot)
	if err != nil {
		return "", nil, err
	}
	defer os.Remove(caseFile)

	script := r.interestingnessScript(caseFile)
	reduced, err := r.CReduce.Reduce(ctx, preprocessed.Code, script)
	if err != nil {
		return "", nil, err
	}

	verify := snapshot.Clone()
	verify.ReducedCode = reduced
	ok, err := r.Checker.IsInteresting(ctx, verify)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, goerr.New("reduced program is no longer interesting",
			goerr.V("marker", c.Marker))
	}

	// reduction can introduce undefined behavior the marker check is
	// blind to; giving the markers empty bodies makes the program
	// linkable so the sanitizers can run it
	if r.Sanitizer != nil {
		program := &model.SourceProgram{
			Code:     emptyMarkerBodies(reduced, model.MarkerPrefix(c.Marker)),
			Language: model.LangC,
		}
		res, err := r.Sanitizer.Check(ctx, program)
		if err != nil {
			return "", nil, err
		}
		if !res.Ok() {
			return "", nil, goerr.New("reduced program fails sanitization",
				goerr.V("marker", c.Marker),
				goerr.V("reason", res.Reason()))
		}
	}

	timings := &model.Timings{ReduceSeconds: time.Since(start).Seconds()}
	ctxlog.From(ctx).Info("reduction verified",
		"before_bytes", len(preprocessed.Code),
		"after_bytes", len(reduced),
		"seconds", timings.ReduceSeconds)
	return reduced, timings, nil
}

// interestingnessScript emits the shell script creduce runs in each
// scratch dir; it feeds the current candidate back into this binary
func (r *Reducer) interestingnessScript(caseFile string) string {
	cmd := fmt.Sprintf("%q check --case %q --code code.c", r.SelfPath, caseFile)
	for _, arg := range r.SelfArgs {
		cmd += fmt.Sprintf(" %q", arg)
	}
	return "#!/bin/sh\nexec " + cmd + "\n"
}

// emptyMarkerBodies turns every marker declaration into an empty
// definition, e.g. `void DCEMarker0_(void);` -> `void DCEMarker0_(void){}`
func emptyMarkerBodies(code, markerPrefix string) string {
	re := regexp.MustCompile(`^void (` + regexp.QuoteMeta(markerPrefix) + `[0-9]+_)\(void\);`)
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if m := re.FindStringSubmatch(line); m != nil {
			lines[i] = "void " + m[1] + "(void){}"
		}
	}
	return strings.Join(lines, "\n")
}

func writeCaseSnapshot(c *model.Case) (string, error) {
	f, err := os.CreateTemp("", "ccdrover-case-*.json")
	if err != nil {
		return "", goerr.Wrap(err, "failed to create case snapshot")
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(c); err != nil {
		_ = os.Remove(f.Name())
		return "", goerr.Wrap(err, "failed to encode case snapshot")
	}
	return filepath.Clean(f.Name()), nil
}
