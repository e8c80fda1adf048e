package vcp

import "fmt"

// Issue is one validation finding, addressed by canonical field path.
type Issue struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	FieldPath string `json:"field_path"`
}

// Result partitions validation findings. A record with errors is fatal for
// delivery; warnings leave it usable.
type Result struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// OK reports whether the record passed without errors.
func (r Result) OK() bool { return len(r.Errors) == 0 }

func (r *Result) errorf(code, path, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Code: code, Message: fmt.Sprintf(format, args...), FieldPath: path})
}

func (r *Result) warnf(code, path, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Code: code, Message: fmt.Sprintf(format, args...), FieldPath: path})
}

// Validate checks a record against its declared schema version: a structural
// pass for required, type-conforming fields, then cross-field business rules.
// Pure; the record is not modified.
func Validate(m *Message) Result {
	var res Result
	if m == nil {
		res.errorf("missing_record", "", "no record")
		return res
	}

	version := m.SchemaVersion
	if version.index() < 0 {
		res.errorf("unsupported_version", "schema_version", "unsupported schema version %q", version)
		return res
	}

	validateStructure(m, version, &res)
	validateBusinessRules(m, &res)
	return res
}

func validateStructure(m *Message, version Version, res *Result) {
	call := m.Payload.Call
	if call.CallID == "" {
		res.errorf("missing_required", "payload.call.call_id", "call_id is required")
	}
	if call.SessionID == "" {
		res.errorf("missing_required", "payload.call.session_id", "session_id is required")
	}
	if call.Provider == "" {
		res.errorf("missing_required", "payload.call.provider", "provider is required")
	}
	if call.StartTime.IsZero() {
		res.errorf("missing_required", "payload.call.start_time", "start_time is required")
	}
	if call.DurationSec < 0 {
		res.errorf("malformed_value", "payload.call.duration_sec", "duration_sec must be non-negative")
	}
	validateChannel(call, res)

	obj := m.Payload.Outcomes.Objective
	if obj.Status == "" {
		res.errorf("missing_required", "payload.outcomes.objective.status", "objective status is required")
	} else if !ValidStatus(obj.Status) {
		res.errorf("malformed_value", "payload.outcomes.objective.status", "unrecognized status %q", obj.Status)
	}
	if s := m.Payload.Outcomes.Satisfaction; s != nil && (*s < 0 || *s > 1) {
		res.errorf("malformed_value", "payload.outcomes.user_satisfaction_score", "satisfaction %v outside [0,1]", *s)
	}

	if m.Audit.ReceivedAt.IsZero() {
		res.errorf("missing_required", "audit.received_at", "received_at is required")
	}
	if m.Audit.SchemaVersion != version {
		res.errorf("version_mismatch", "audit.schema_version", "audit declares %q, record declares %q", m.Audit.SchemaVersion, version)
	}

	// Version-gated sections. Absent-on-0.3 is by definition, not an error;
	// present-on-0.3 means the record lies about its version.
	switch version {
	case V03:
		if m.Payload.Consent != nil {
			res.errorf("field_not_supported", "payload.consent", "consent is not part of schema 0.3")
		}
		if m.Payload.Provenance != nil {
			res.errorf("field_not_supported", "payload.provenance", "provenance is not part of schema 0.3")
		}
	case V04:
		if m.Payload.Consent == nil {
			res.errorf("missing_required", "payload.consent", "schema 0.4 requires consent")
		}
		if m.Payload.Provenance == nil {
			res.errorf("missing_required", "payload.provenance", "schema 0.4 requires provenance")
		}
	case V05:
		if m.Payload.Provenance == nil {
			res.errorf("missing_required", "payload.provenance", "schema 0.5 requires provenance")
		}
	}

	// Structured capability invocations exist only from 0.5.
	if version != V05 {
		for i, inv := range call.Capabilities {
			if !inv.Bare {
				res.errorf("field_not_supported",
					fmt.Sprintf("payload.call.capabilities_invoked.%d", i),
					"structured capability invocations require schema 0.5")
			}
		}
	}
}

func validateChannel(call Call, res *Result) {
	switch call.Channel {
	case "", ChannelPhone, ChannelWeb, ChannelMobile, ChannelEmbed, ChannelAPI, ChannelWebsocket:
	case DirectionInbound, DirectionOutbound:
		// Legacy combined form. It must not contradict an explicit direction.
		if call.Direction != "" && call.Direction != call.Channel {
			res.errorf("direction_conflict", "payload.call.channel",
				"legacy channel %q disagrees with direction %q", call.Channel, call.Direction)
		}
	default:
		res.errorf("malformed_value", "payload.call.channel", "unrecognized channel %q", call.Channel)
	}
	switch call.Direction {
	case "", DirectionInbound, DirectionOutbound:
	default:
		res.errorf("malformed_value", "payload.call.direction", "unrecognized direction %q", call.Direction)
	}
}

func validateBusinessRules(m *Message, res *Result) {
	call := m.Payload.Call
	if call.EndTime != nil && !call.StartTime.IsZero() && call.EndTime.Before(call.StartTime) {
		res.errorf("end_before_start", "payload.call.end_time",
			"end_time %s precedes start_time %s", call.EndTime.Format("2006-01-02T15:04:05Z07:00"), call.StartTime.Format("2006-01-02T15:04:05Z07:00"))
	}

	for i, inv := range call.Capabilities {
		if inv.Bare || inv.InvokedAt == nil {
			continue
		}
		path := fmt.Sprintf("payload.call.capabilities_invoked.%d.invoked_at", i)
		if !call.StartTime.IsZero() && inv.InvokedAt.Before(call.StartTime) {
			res.warnf("capability_outside_call", path, "capability %q invoked before call start", inv.ID)
		} else if call.EndTime != nil && inv.InvokedAt.After(*call.EndTime) {
			res.warnf("capability_outside_call", path, "capability %q invoked after call end", inv.ID)
		}
	}

	if consent := m.Payload.Consent; consent != nil {
		switch consent.Status {
		case ConsentExpired:
			res.warnf("consent_expired", "payload.consent.status", "user consent has expired")
		case ConsentRevoked:
			res.errorf("consent_revoked", "payload.consent.status", "cannot process data with revoked consent")
		}
	}
}
