package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Case is an interesting test case: a program whose dead-code marker
// survives under the bad compilation setting but is eliminated by
// every good one.
type Case struct {
	Marker             string               `json:"marker"`
	Code               string               `json:"code"`
	ReducedCode        string               `json:"reduced_code,omitempty"`
	BadSetting         CompilationSetting   `json:"bad_setting"`
	GoodSettings       []CompilationSetting `json:"good_settings"`
	Bisection          string               `json:"bisection,omitempty"`
	SystemIncludePaths []string             `json:"system_include_paths,omitempty"`
}

// Validate checks the invariants needed by the checker and bisector
func (c *Case) Validate() error {
	if c.Marker == "" {
		return goerr.New("case has no marker")
	}
	if c.Code == "" {
		return goerr.New("case has no code")
	}
	if len(c.GoodSettings) == 0 {
		return goerr.New("case has no good settings")
	}
	return nil
}

// ActiveCode returns the reduced code if reduction has happened,
// otherwise the original code
func (c *Case) ActiveCode() string {
	if c.ReducedCode != "" {
		return c.ReducedCode
	}
	return c.Code
}

// Program wraps the case's active code as a compilable SourceProgram
func (c *Case) Program() *SourceProgram {
	return &SourceProgram{
		Code:               c.ActiveCode(),
		Language:           LangC,
		SystemIncludePaths: c.SystemIncludePaths,
	}
}

// Clone returns a deep copy of the case
func (c *Case) Clone() *Case {
	cpy := *c
	cpy.GoodSettings = append([]CompilationSetting(nil), c.GoodSettings...)
	cpy.SystemIncludePaths = append([]string(nil), c.SystemIncludePaths...)
	return &cpy
}

// MarkerPrefix strips the trailing underscore and counter from a
// marker name: "DCEMarker123_" -> "DCEMarker"
func MarkerPrefix(marker string) string {
	s := strings.TrimSuffix(marker, "_")
	return strings.TrimRight(s, "0123456789")
}

// CaseRecord is a stored case with its database identity
type CaseRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Case      *Case     `json:"case"`
}

// Scenario describes which settings to hunt with: cases must be
// interesting for at least one target setting while every attacker
// setting eliminates the marker.
type Scenario struct {
	MarkerPrefix     string               `toml:"marker_prefix"`
	TargetSettings   []CompilationSetting `toml:"target"`
	AttackerSettings []CompilationSetting `toml:"attacker"`
}

// Validate checks the scenario is usable for generation
func (s *Scenario) Validate() error {
	if len(s.TargetSettings) == 0 {
		return goerr.New("scenario has no target settings")
	}
	if len(s.AttackerSettings) == 0 {
		return goerr.New("scenario has no attacker settings")
	}
	return nil
}

// Timings records how long the pipeline stages took for a case
type Timings struct {
	GenerateSeconds  float64 `json:"generate_seconds"`
	GenerateAttempts int64   `json:"generate_attempts"`
	BisectSeconds    float64 `json:"bisect_seconds"`
	BisectSteps      int64   `json:"bisect_steps"`
	ReduceSeconds    float64 `json:"reduce_seconds"`
}
