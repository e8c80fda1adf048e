// Package normalize converts authenticated vendor webhook payloads into
// complete canonical records: declarative field mapping, structure
// completion, validation, and integrity stamping in one synchronous,
// CPU-bound pass.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"voicelens/registry"
	"voicelens/vcp"
)

// Engine applies one vendor's mapping rules and completes the result into a
// validated record. Stateless after construction; safe for concurrent use.
type Engine struct {
	reg     *registry.Registry
	version vcp.Version
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source. Tests use this for deterministic
// stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithVersion sets the schema version records are built at. Default 0.5.
func WithVersion(v vcp.Version) Option {
	return func(e *Engine) { e.version = v }
}

// New builds an engine over a vendor catalog.
func New(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{reg: reg, version: vcp.V05, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Map applies the vendor's mapping rules to a raw payload and returns the
// partial canonical structure. Rules run in declaration order; an absent
// source is skipped (defaults are the builder's job); a degraded transform
// attaches a warning instead of failing. Referentially transparent: the
// same (vendor, payload) input always yields the same output.
func (e *Engine) Map(vendor string, payload map[string]any) (map[string]any, []vcp.Issue, error) {
	desc, err := e.reg.Get(vendor)
	if err != nil {
		return nil, nil, err
	}

	partial := map[string]any{}
	var warnings []vcp.Issue
	for _, rule := range desc.Rules {
		value, ok := vcp.Get(payload, rule.Source)
		if !ok {
			continue
		}
		if rule.Transform != "" {
			out, write, warn := applyTransform(rule.Transform, value)
			if warn != nil {
				warn.FieldPath = rule.Target
				warnings = append(warnings, *warn)
			}
			if !write {
				continue
			}
			value = out
		}
		if err := vcp.Set(partial, rule.Target, value); err != nil {
			// A mapping conflict is a catalog defect, fatal and non-retryable.
			return nil, warnings, fmt.Errorf("vendor %q rule %s -> %s: %w", desc.Name, rule.Source, rule.Target, err)
		}
	}
	return partial, warnings, nil
}

// applyTransform resolves a named transform. The write flag is false when no
// usable canonical value exists (the target stays absent for the builder to
// default); a non-nil issue records degradation. Transforms never fail hard.
func applyTransform(name string, value any) (out any, write bool, warn *vcp.Issue) {
	switch name {
	case "status":
		status := vcp.NormalizeStatus(asString(value))
		if status == vcp.StatusUnknown && asString(value) != "" {
			warn = &vcp.Issue{Code: "transform_degraded", Message: fmt.Sprintf("unmapped terminal state %q, using %q", value, status)}
		}
		return string(status), true, warn
	case "sentiment_score":
		score, known := vcp.SentimentScore(asString(value))
		if !known {
			warn = &vcp.Issue{Code: "transform_degraded", Message: fmt.Sprintf("unrecognized sentiment %q, using neutral", value)}
		}
		return score, true, warn
	case "direction":
		d := strings.ToLower(strings.TrimSpace(asString(value)))
		switch d {
		case vcp.DirectionInbound, vcp.DirectionOutbound:
			return d, true, nil
		}
		return nil, false, &vcp.Issue{Code: "transform_degraded", Message: fmt.Sprintf("unrecognized direction %q, leaving unset", value)}
	case "epoch_time":
		t, ok := vcp.EpochToTime(value)
		if !ok {
			return nil, false, &vcp.Issue{Code: "transform_degraded", Message: fmt.Sprintf("unparseable timestamp %v, leaving unset", value)}
		}
		return t.UTC().Format(time.RFC3339Nano), true, nil
	case "int_seconds":
		n, ok := vcp.ToInt(value)
		if !ok {
			return nil, false, &vcp.Issue{Code: "transform_degraded", Message: fmt.Sprintf("non-numeric duration %v, leaving unset", value)}
		}
		return n, true, nil
	default:
		// Unknown transform names pass the value through untouched so a
		// catalog typo degrades loudly rather than dropping data.
		return value, true, &vcp.Issue{Code: "unknown_transform", Message: fmt.Sprintf("no transform named %q", name)}
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
