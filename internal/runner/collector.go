// Package runner invokes the enabled rule set against one unit's shared
// read-only view and collects the diagnostics of a single pass.
package runner

import (
	"fmt"
	"log/slog"

	"github.com/flint-py/flint/internal/binding"
	"github.com/flint-py/flint/internal/diag"
	"github.com/flint-py/flint/internal/rule"
	"github.com/flint-py/flint/internal/source"
)

// CrashCode marks the synthetic diagnostic emitted when a rule panics.
const CrashCode = "RULE-CRASH"

// Collector runs rules and deduplicates, suppresses, and orders their
// diagnostics. It is stateless across units and safe to share.
type Collector struct {
	registry *rule.Registry
	// enabled limits evaluation to these codes; nil enables every rule.
	enabled map[string]struct{}
	logger  *slog.Logger
}

// NewCollector builds a collector over an immutable registry. enabled
// may be nil to run the whole battery.
func NewCollector(registry *rule.Registry, enabled map[string]struct{}, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{registry: registry, enabled: enabled, logger: logger}
}

// Collect runs one pass over the unit: build the binding graph, invoke
// every accepting rule, then dedup and apply inline suppressions. A
// panicking rule is downgraded to a single synthetic diagnostic and the
// batch continues; evaluation order never changes the resulting set.
func (c *Collector) Collect(unit *source.Unit) []diag.Diagnostic {
	rctx := &rule.Context{
		Unit:     unit,
		Bindings: binding.Build(unit),
	}

	var all []diag.Diagnostic
	for _, rl := range c.registry.Rules() {
		if c.enabled != nil {
			if _, ok := c.enabled[rl.Code()]; !ok {
				continue
			}
		}
		if !rl.Accepts(unit.Kind) {
			continue
		}
		all = append(all, c.checkIsolated(rl, rctx)...)
	}

	sup := parseSuppressions(unit)
	seen := make(map[dedupKey]struct{}, len(all))
	out := all[:0]
	for _, d := range all {
		key := dedupKey{code: d.Code, start: d.Span.Start, end: d.Span.End}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		line, _ := unit.Lines.Position(d.Span.Start)
		if sup.suppressed(d.Code, line) {
			continue
		}
		out = append(out, d)
	}
	diag.Sort(out)
	return out
}

type dedupKey struct {
	code       string
	start, end uint
}

// checkIsolated converts a rule panic into one crash diagnostic so a
// broken rule never aborts the batch.
func (c *Collector) checkIsolated(rl rule.Rule, rctx *rule.Context) (ds []diag.Diagnostic) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("rule crashed",
				"rule", rl.Code(),
				"path", rctx.Unit.Path,
				"panic", fmt.Sprint(r))
			ds = []diag.Diagnostic{{
				Code:     CrashCode,
				Message:  fmt.Sprintf("rule %s crashed: %v", rl.Code(), r),
				Severity: diag.SevError,
				Span:     source.Span{},
			}}
		}
	}()
	return rl.Check(rctx)
}
