package normalize

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voicelens/vcp"
)

// Namespace for deriving stable call identifiers from payload content when
// the vendor supplies none. Fixed so the derivation is deterministic.
var callIDNamespace = uuid.MustParse("9f2d7a04-6c1e-4b8a-9c35-0d41e7b6a3f1")

// Build completes a partial canonical structure into a full record at the
// engine's schema version: identifier derivation, timestamp and section
// defaults, direction/channel reconciliation, extraction routing, and the
// version-gated consent/provenance sections.
func (e *Engine) Build(vendor string, partial, raw map[string]any, seq *int64) (*vcp.Message, error) {
	if partial == nil {
		partial = map[string]any{}
	}
	now := e.now().UTC()
	steps := []string{
		fmt.Sprintf("received_from_%s_webhook", vendor),
		fmt.Sprintf("mapped_to_vcp_v%s", e.version),
	}

	call := ensureMap(partial, "call")
	callID := asString(call["call_id"])
	if callID == "" {
		callID = DeriveCallID(raw)
		call["call_id"] = callID
		steps = append(steps, "derived_call_id")
	}
	if asString(call["session_id"]) == "" {
		call["session_id"] = fmt.Sprintf("sess_%s_%s", vendor, shortID(callID))
	}
	call["provider"] = vendor
	if _, ok := call["start_time"]; !ok {
		call["start_time"] = now.Format(time.RFC3339Nano)
	}
	if _, ok := call["duration_sec"]; !ok {
		call["duration_sec"] = durationFromBounds(call)
	}
	direction, channel := vcp.ReconcileChannel(asString(call["direction"]), asString(call["channel"]))
	if direction != "" {
		call["direction"] = direction
	}
	if channel != "" {
		call["channel"] = channel
	}
	if _, ok := call["capabilities_invoked"]; !ok {
		call["capabilities_invoked"] = []any{}
	}

	if _, ok := partial["model_selection"]; !ok {
		partial["model_selection"] = map[string]any{
			"policy_id":   vendor + "_default",
			"resolved_at": now.Format(time.RFC3339Nano),
			"roles":       map[string]any{},
		}
	}

	outcomes := ensureMap(partial, "outcomes")
	if _, ok := outcomes["perceived"]; !ok {
		outcomes["perceived"] = []any{}
	}
	objective := ensureMap(outcomes, "objective")
	if asString(objective["status"]) == "" {
		objective["status"] = string(vcp.StatusUnknown)
	}
	if _, ok := objective["scored_criteria"]; !ok {
		objective["scored_criteria"] = []any{}
	}
	ensureMap(objective, "metrics")
	gap := ensureMap(outcomes, "perception_gap")
	if _, ok := gap["gap_score"]; !ok {
		gap["gap_score"] = 0.0
	}
	if asString(gap["gap_class"]) == "" {
		gap["gap_class"] = "aligned"
	}

	humanCtx := ensureMap(partial, "human_context")
	if asString(humanCtx["audience"]) == "" {
		humanCtx["audience"] = "system"
	}
	if asString(humanCtx["headline"]) == "" {
		humanCtx["headline"] = fmt.Sprintf("%s call processed", vendor)
	}
	if asString(humanCtx["outcome_status"]) == "" {
		humanCtx["outcome_status"] = objective["status"]
	}
	if _, ok := humanCtx["key_points"]; !ok {
		humanCtx["key_points"] = []any{}
	}

	ensureMap(partial, "artifacts")
	custom := ensureMap(partial, "custom")
	vendorBag := ensureMap(ensureMap(custom, "provider_specific"), vendor)
	if _, ok := vendorBag["data"]; !ok {
		vendorBag["data"] = raw
	}

	if routeExtractions(custom, raw) {
		steps = append(steps, "routed_extractions")
	}

	// Consent and provenance exist only from 0.4. Leaving them off a 0.3
	// record is correctness, not omission.
	if e.version != vcp.V03 {
		if _, ok := partial["consent"]; !ok {
			partial["consent"] = map[string]any{
				"consent_id": "consent_" + callID,
				"status":     string(vcp.ConsentGranted),
				"scope":      []any{"recording", "analytics"},
				"version":    "1.0",
			}
		}
		partial["provenance"] = map[string]any{
			"source_system":          vendor + "_webhook_api",
			"created_at":             now.Format(time.RFC3339Nano),
			"created_by":             vendor + "_webhook_processor",
			"transformation_history": steps,
		}
	}

	audit := map[string]any{
		"received_at":    now.Format(time.RFC3339Nano),
		"schema_version": string(e.version),
	}
	if seq != nil {
		audit["sequence_number"] = *seq
	}
	doc := map[string]any{
		"schema_version": string(e.version),
		"payload":        partial,
		"audit":          audit,
	}

	return decodeRecord(doc)
}

// decodeRecord converts the completed document into the typed record. A
// shape the canonical model cannot hold is a fatal validation failure.
func decodeRecord(doc map[string]any) (*vcp.Message, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vcp.ErrValidation, err)
	}
	var msg vcp.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: malformed canonical value: %v", vcp.ErrValidation, err)
	}
	return &msg, nil
}

// DeriveCallID produces a stable identifier for payloads carrying none of
// their own.
func DeriveCallID(raw map[string]any) string {
	// Map marshaling sorts keys, so equal payloads digest equally.
	b, err := json.Marshal(raw)
	if err != nil {
		b = nil
	}
	return uuid.NewSHA1(callIDNamespace, b).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func durationFromBounds(call map[string]any) int {
	start, okStart := vcp.EpochToTime(call["start_time"])
	end, okEnd := vcp.EpochToTime(call["end_time"])
	if !okStart || !okEnd || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Seconds())
}

func ensureMap(parent map[string]any, key string) map[string]any {
	if m, ok := parent[key].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	parent[key] = m
	return m
}
