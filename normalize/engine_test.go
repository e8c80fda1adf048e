package normalize

import (
	"errors"
	"reflect"
	"testing"

	"voicelens/registry"
	"voicelens/vcp"
)

func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	return New(registry.Default(), opts...)
}

func TestMapAppliesRules(t *testing.T) {
	e := testEngine(t)
	payload := map[string]any{
		"call_id":              "call_abc123",
		"direction":            "Outbound",
		"user_sentiment":       "very_positive",
		"disconnection_reason": "user_hangup",
		"call_time_seconds":    float64(95),
	}
	partial, warnings, err := e.Map("assistable", payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
	if got, _ := vcp.Get(partial, "call.call_id"); got != "call_abc123" {
		t.Fatalf("call_id = %v", got)
	}
	if got, _ := vcp.Get(partial, "call.direction"); got != "outbound" {
		t.Fatalf("direction = %v", got)
	}
	if got, _ := vcp.Get(partial, "outcomes.user_satisfaction_score"); got != 1.0 {
		t.Fatalf("satisfaction = %v", got)
	}
	if got, _ := vcp.Get(partial, "outcomes.objective.status"); got != "success" {
		t.Fatalf("status = %v", got)
	}
	if got, _ := vcp.Get(partial, "outcomes.objective.disconnect_reason"); got != "user_hangup" {
		t.Fatalf("disconnect_reason = %v", got)
	}
	if got, _ := vcp.Get(partial, "call.duration_sec"); got != 95 {
		t.Fatalf("duration_sec = %v", got)
	}
}

func TestMapSkipsAbsentSources(t *testing.T) {
	e := testEngine(t)
	partial, warnings, err := e.Map("retell", map[string]any{
		"call": map[string]any{"call_id": "only_id"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
	if _, ok := vcp.Get(partial, "outcomes.objective.status"); ok {
		t.Fatalf("absent source should leave target unset")
	}
	if _, ok := vcp.Get(partial, "call.call_id"); !ok {
		t.Fatalf("present source should map")
	}
}

func TestMapUnknownVendor(t *testing.T) {
	e := testEngine(t)
	_, _, err := e.Map("acme_voice", map[string]any{})
	if !errors.Is(err, registry.ErrVendorNotFound) {
		t.Fatalf("expected ErrVendorNotFound, got %v", err)
	}
}

func TestMapIsDeterministic(t *testing.T) {
	e := testEngine(t)
	payload := map[string]any{
		"call_id":        "call_1",
		"user_sentiment": "positive",
		"extractions":    map[string]any{"contact_name": "Ada"},
	}
	first, _, err := e.Map("assistable", payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _, err := e.Map("assistable", payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same input mapped differently:\n%v\n%v", first, second)
	}
}

func TestMapDegradedTransformsWarnButWrite(t *testing.T) {
	e := testEngine(t)
	payload := map[string]any{
		"call_id":              "call_1",
		"user_sentiment":       "elated",
		"disconnection_reason": "cosmic_rays",
	}
	partial, warnings, err := e.Map("assistable", payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := vcp.Get(partial, "outcomes.user_satisfaction_score"); got != 0.5 {
		t.Fatalf("unknown sentiment should write neutral, got %v", got)
	}
	if got, _ := vcp.Get(partial, "outcomes.objective.status"); got != "unknown" {
		t.Fatalf("unmapped terminal state should write unknown, got %v", got)
	}
	degraded := 0
	for _, w := range warnings {
		if w.Code == "transform_degraded" {
			degraded++
		}
	}
	if degraded != 2 {
		t.Fatalf("expected 2 degradation warnings, got %+v", warnings)
	}
}

func TestMapUnparseableValuesLeaveTargetUnset(t *testing.T) {
	e := testEngine(t)
	payload := map[string]any{
		"call_id":           "call_1",
		"start_timestamp":   "not a time",
		"call_time_seconds": "ninety",
		"direction":         "sideways",
	}
	partial, warnings, err := e.Map("assistable", payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, path := range []string{"call.start_time", "call.duration_sec", "call.direction"} {
		if _, ok := vcp.Get(partial, path); ok {
			t.Fatalf("unparseable value should leave %s unset", path)
		}
	}
	if len(warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %+v", warnings)
	}
}

func TestMapUnknownTransformPassesValueThrough(t *testing.T) {
	reg, err := registry.New([]registry.Vendor{{
		Name:  "typo_vendor",
		Rules: []registry.MappingRule{{Source: "v", Target: "custom.provider_specific.x", Transform: "sentimnt"}},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := New(reg)
	partial, warnings, err := e.Map("typo_vendor", map[string]any{"v": "keepme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := vcp.Get(partial, "custom.provider_specific.x"); got != "keepme" {
		t.Fatalf("unknown transform should pass value through, got %v", got)
	}
	if len(warnings) != 1 || warnings[0].Code != "unknown_transform" {
		t.Fatalf("expected unknown_transform warning, got %+v", warnings)
	}
}

func TestMapPathConflictIsFatal(t *testing.T) {
	reg, err := registry.New([]registry.Vendor{{
		Name: "broken_vendor",
		Rules: []registry.MappingRule{
			{Source: "a", Target: "call.call_id"},
			{Source: "b", Target: "call.call_id.sub"},
		},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := New(reg)
	_, _, err = e.Map("broken_vendor", map[string]any{"a": "id", "b": "x"})
	if !errors.Is(err, vcp.ErrPathConflict) {
		t.Fatalf("expected ErrPathConflict, got %v", err)
	}
}
