// Package driver owns the per-unit convergence loop and the parallel
// multi-unit run around it: analyze, apply accepted fixes, re-analyze,
// and repeat until the diagnostic set stops changing or the iteration
// cap trips.
package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"

	"github.com/flint-py/flint/internal/diag"
	"github.com/flint-py/flint/internal/fix"
	"github.com/flint-py/flint/internal/rule"
	"github.com/flint-py/flint/internal/runner"
	"github.com/flint-py/flint/internal/source"
)

// State enumerates the convergence machine. Terminal states are
// Stable, MaxIterations, and Aborted.
type State int

const (
	StateAnalyzing State = iota
	StateApplying
	StateReanalyzing
	StateStable
	StateMaxIterations
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAnalyzing:
		return "analyzing"
	case StateApplying:
		return "applying"
	case StateReanalyzing:
		return "reanalyzing"
	case StateStable:
		return "stable"
	case StateMaxIterations:
		return "max-iterations"
	default:
		return "aborted"
	}
}

// maxIterations caps the fix loop. The cap bounds iteration count, not
// wall clock: a unit that trips it still completes in bounded time.
const maxIterations = 100

// SyntaxErrorCode reports unparseable input as a diagnostic instead of
// aborting the unit.
const SyntaxErrorCode = "E999"

// Pipeline runs the full per-unit analysis: binding graph, rule
// battery, fix merge, convergence. Within one unit everything is
// strictly sequential, since each iteration depends on the previous
// iteration's output text.
type Pipeline struct {
	registry *rule.Registry
	enabled  map[string]struct{}
	mode     fix.Mode
	logger   *slog.Logger
}

// NewPipeline wires a pipeline over an immutable registry. enabled may
// be nil to run every rule.
func NewPipeline(registry *rule.Registry, enabled map[string]struct{}, mode fix.Mode, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{registry: registry, enabled: enabled, mode: mode, logger: logger}
}

// RunUnit drives one unit to a terminal state and returns its result.
// The returned text always re-parses except when the input never parsed
// in the first place, which is reported as a syntax-error diagnostic on
// the unchanged input.
func (p *Pipeline) RunUnit(path string, text []byte) *diag.Result {
	unit, err := source.NewUnit(path, text)
	if err != nil {
		return &diag.Result{
			Path: path,
			Diagnostics: []diag.Diagnostic{{
				Code:     SyntaxErrorCode,
				Message:  "syntax error: file does not parse",
				Severity: diag.SevError,
			}},
			Text:   text,
			Status: diag.StatusStable,
		}
	}
	defer func() { unit.Close() }()

	collector := runner.NewCollector(p.registry, p.enabled, p.logger)

	seen := map[string]struct{}{}
	fixedTotal := 0
	status := diag.StatusStable

	// State machine: Analyzing → (Applying → Reanalyzing → Analyzing)*
	// until Stable or MaxIterationsReached.
	var diags []diag.Diagnostic
	for iteration := 0; ; iteration++ {
		p.logger.Debug("pass", "path", path, "state", StateAnalyzing.String(), "iteration", iteration)
		diags = collector.Collect(unit)

		if iteration >= maxIterations {
			status = diag.StatusMaxIterations
			markPending(diags, fix.Merge(diags, p.mode, p.registry.Index))
			break
		}
		fp := fingerprint(diags)
		if _, repeat := seen[fp]; repeat {
			// The set cycled: further passes can only loop. The final
			// pass's fixable diagnostics go unapplied, so flag them.
			status = diag.StatusMaxIterations
			markPending(diags, fix.Merge(diags, p.mode, p.registry.Index))
			break
		}
		seen[fp] = struct{}{}

		plan := fix.Merge(diags, p.mode, p.registry.Index)
		if len(plan.Edits) == 0 {
			break // Stable
		}
		p.logger.Debug("pass", "path", path, "state", StateApplying.String(),
			"fixes", len(plan.Fixed), "deferred", len(plan.Deferred))
		newText, err := fix.Apply(unit.Text, plan.Edits)
		if err != nil {
			p.logger.Warn("fix application failed, keeping original text",
				"path", path, "error", err)
			markPending(diags, plan)
			break
		}

		// A fix must never leave the unit syntactically broken. If the
		// rewrite does not re-parse, roll this pass back and report
		// its diagnostics unfixed.
		p.logger.Debug("pass", "path", path, "state", StateReanalyzing.String())
		newUnit, err := source.NewUnit(path, newText)
		if err != nil {
			p.logger.Warn("applied fixes broke the parse, rolling back",
				"path", path, "iteration", iteration)
			markPending(diags, plan)
			break
		}

		fixedTotal += len(plan.Fixed)
		unit.Close()
		unit = newUnit
	}

	final := StateStable
	if status == diag.StatusMaxIterations {
		final = StateMaxIterations
	}
	p.logger.Debug("unit finished", "path", path, "state", final.String(), "fixed", fixedTotal)

	return &diag.Result{
		Path:        path,
		Diagnostics: diags,
		Text:        unit.Text,
		FixedCount:  fixedTotal,
		Status:      status,
	}
}

// markPending flags the diagnostics whose fixes were deferred (or
// rolled back) so reports can show them as fixable-but-not-fixed.
func markPending(diags []diag.Diagnostic, plan fix.Plan) {
	for _, i := range plan.Deferred {
		diags[i].Pending = true
	}
	for _, i := range plan.Fixed {
		diags[i].Pending = true
	}
}

// fingerprint hashes a diagnostic set for the cycle guard.
func fingerprint(diags []diag.Diagnostic) string {
	keys := make([]string, len(diags))
	for i, d := range diags {
		keys[i] = fmt.Sprintf("%s|%d|%d|%s", d.Code, d.Span.Start, d.Span.End, d.Message)
	}
	sort.Strings(keys)
	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
