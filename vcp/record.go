// Package vcp defines the canonical interaction record produced by the
// normalization engine, plus the transforms, validator, migrator, and
// integrity checksum that operate on it.
package vcp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version identifies a canonical schema version.
type Version string

const (
	V03 Version = "0.3"
	V04 Version = "0.4"
	V05 Version = "0.5"
)

// versionOrder lists supported versions oldest to newest. Migration walks
// this list one step at a time.
var versionOrder = []Version{V03, V04, V05}

// ParseVersion validates a version tag.
func ParseVersion(s string) (Version, error) {
	for _, v := range versionOrder {
		if s == string(v) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedVersion, s)
}

// index returns the position of v in versionOrder, or -1.
func (v Version) index() int {
	for i, o := range versionOrder {
		if v == o {
			return i
		}
	}
	return -1
}

// Newer reports whether a is a later schema version than b.
func Newer(a, b Version) bool {
	return a.index() > b.index()
}

// Status is the objective outcome status.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusPartial Status = "partial"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
	StatusUnknown Status = "unknown"
)

// ValidStatus reports whether s is a recognized outcome status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusPartial, StatusTimeout, StatusError, StatusUnknown:
		return true
	}
	return false
}

// ConsentStatus tracks user consent for data processing.
type ConsentStatus string

const (
	ConsentGranted ConsentStatus = "granted"
	ConsentDenied  ConsentStatus = "denied"
	ConsentPending ConsentStatus = "pending"
	ConsentExpired ConsentStatus = "expired"
	ConsentRevoked ConsentStatus = "revoked"
)

// Channel and direction values. The legacy combined inbound/outbound channel
// values survive for v0.4 compatibility; new records carry a medium channel
// plus a separate direction.
const (
	ChannelPhone     = "phone"
	ChannelWeb       = "web"
	ChannelMobile    = "mobile"
	ChannelEmbed     = "embed"
	ChannelAPI       = "api"
	ChannelWebsocket = "websocket"

	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message is the root interaction record: a versioned payload plus its audit
// envelope. A message is never mutated after validation; migration and
// checksum stamping produce new instances.
type Message struct {
	SchemaVersion Version `json:"schema_version"`
	Payload       Payload `json:"payload"`
	Audit         Audit   `json:"audit"`
}

// Payload carries the vendor-agnostic interaction data. Consent and
// provenance are version-gated: absent on v0.3 records by definition.
type Payload struct {
	Call           Call            `json:"call"`
	ModelSelection *ModelSelection `json:"model_selection,omitempty"`
	Outcomes       Outcomes        `json:"outcomes"`
	HumanContext   *HumanContext   `json:"human_context,omitempty"`
	Artifacts      Artifacts       `json:"artifacts"`
	Custom         Custom          `json:"custom"`
	Consent        *Consent        `json:"consent,omitempty"`
	Provenance     *Provenance     `json:"provenance,omitempty"`
}

// Call holds core call identity, timing, and routing information.
type Call struct {
	CallID          string       `json:"call_id"`
	SessionID       string       `json:"session_id"`
	ParentSessionID string       `json:"parent_session_id,omitempty"`
	CorrelationID   string       `json:"correlation_id,omitempty"`
	Provider        string       `json:"provider"`
	StartTime       time.Time    `json:"start_time"`
	EndTime         *time.Time   `json:"end_time,omitempty"`
	DurationSec     int          `json:"duration_sec"`
	Channel         string       `json:"channel,omitempty"`
	Direction       string       `json:"direction,omitempty"`
	From            string       `json:"from,omitempty"`
	To              string       `json:"to,omitempty"`
	CallerID        string       `json:"caller_id,omitempty"`
	Capabilities    []Capability `json:"capabilities_invoked"`
}

// Capability is either a bare identifier (legacy, pre-0.5) or a structured
// invocation. Bare capabilities serialize as plain JSON strings.
type Capability struct {
	ID         string         `json:"capability_id"`
	Type       string         `json:"capability_type,omitempty"`
	InvokedAt  *time.Time     `json:"invoked_at,omitempty"`
	DurationMS *int64         `json:"duration_ms,omitempty"`
	Success    *bool          `json:"success,omitempty"`
	Error      string         `json:"error_message,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`

	// Bare marks the legacy string form. Not serialized; implied by shape.
	Bare bool `json:"-"`
}

// BareCapability wraps a legacy capability identifier.
func BareCapability(id string) Capability {
	return Capability{ID: id, Bare: true}
}

// MarshalJSON emits a bare string for legacy capabilities and a full object
// otherwise.
func (c Capability) MarshalJSON() ([]byte, error) {
	if c.Bare {
		return json.Marshal(c.ID)
	}
	type alias Capability
	return json.Marshal(alias(c))
}

// UnmarshalJSON accepts both the legacy string form and the structured form.
func (c *Capability) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*c = Capability{ID: id, Bare: true}
		return nil
	}
	type alias Capability
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = Capability(a)
	return nil
}

// ModelSelection records which models were resolved for the call.
type ModelSelection struct {
	PolicyID   string                 `json:"policy_id"`
	ResolvedAt time.Time              `json:"resolved_at"`
	Roles      map[string]ModelChoice `json:"roles"`
}

// ModelChoice is one role's resolved model.
type ModelChoice struct {
	Chosen       string   `json:"chosen"`
	Alternatives []string `json:"alternatives,omitempty"`
	Reason       []string `json:"reason,omitempty"`
}

// Outcomes bundles perceived and objective outcome assessments.
type Outcomes struct {
	Perceived      []any            `json:"perceived"`
	Objective      ObjectiveOutcome `json:"objective"`
	PerceptionGap  PerceptionGap    `json:"perception_gap"`
	Attribution    *Attribution     `json:"model_outcome_attribution,omitempty"`
	Satisfaction   *float64         `json:"user_satisfaction_score,omitempty"`
	BusinessImpact map[string]any   `json:"business_impact,omitempty"`
}

// ObjectiveOutcome is the machine-assessed call outcome.
type ObjectiveOutcome struct {
	Status           Status            `json:"status"`
	ScoredCriteria   []ScoredCriterion `json:"scored_criteria"`
	Metrics          map[string]any    `json:"metrics"`
	Confidence       *float64          `json:"confidence,omitempty"`
	DisconnectReason string            `json:"disconnect_reason,omitempty"`
}

// ScoredCriterion is one evaluated success criterion.
type ScoredCriterion struct {
	ID          string   `json:"id"`
	Met         bool     `json:"met"`
	EvidenceRef string   `json:"evidence_ref,omitempty"`
	Score       *float64 `json:"score,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
}

// PerceptionGap measures divergence between perceived and objective outcome.
type PerceptionGap struct {
	Score   float64  `json:"gap_score"`
	Class   string   `json:"gap_class"`
	Factors []string `json:"factors,omitempty"`
}

// Attribution assigns outcome share to the models involved.
type Attribution struct {
	Roles map[string]RoleUsage `json:"roles"`
	KPIs  map[string]any       `json:"kpis,omitempty"`
}

// RoleUsage is per-role model usage attribution.
type RoleUsage struct {
	ModelID string   `json:"model_id"`
	Minutes float64  `json:"minutes"`
	Errors  int      `json:"errors"`
	CostUSD *float64 `json:"cost_usd,omitempty"`
}

// HumanContext is the human-readable summary block.
type HumanContext struct {
	Audience      string         `json:"audience"`
	Headline      string         `json:"headline"`
	OutcomeStatus Status         `json:"outcome_status"`
	KeyPoints     []string       `json:"key_points"`
	ImpactMetrics map[string]any `json:"impact_metrics,omitempty"`
	Summary       string         `json:"summary,omitempty"`
}

// Artifacts references call byproducts held elsewhere.
type Artifacts struct {
	Transcript            string `json:"transcript,omitempty"`
	TranscriptObject      any    `json:"transcript_object,omitempty"`
	RecordingURL          string `json:"recording_url,omitempty"`
	ProviderRawPayloadRef string `json:"provider_raw_payload_ref,omitempty"`
}

// Custom holds vendor-specific and integration data that has no fixed schema.
type Custom struct {
	ProviderSpecific map[string]any            `json:"provider_specific"`
	Integrations     map[string]map[string]any `json:"integrations,omitempty"`
	OutcomeHint      string                    `json:"outcome_hint,omitempty"`
}

// Consent records user consent for processing (v0.4+).
type Consent struct {
	ConsentID string        `json:"consent_id"`
	Status    ConsentStatus `json:"status"`
	GrantedAt *time.Time    `json:"granted_at,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
	Scope     []string      `json:"scope"`
	Version   string        `json:"version"`
}

// Provenance records data lineage (v0.4+).
type Provenance struct {
	SourceSystem          string    `json:"source_system"`
	CreatedAt             time.Time `json:"created_at"`
	CreatedBy             string    `json:"created_by,omitempty"`
	TransformationHistory []string  `json:"transformation_history"`
	DataRetentionPolicy   string    `json:"data_retention_policy,omitempty"`
	ComplianceFlags       []string  `json:"compliance_flags,omitempty"`
}

// Audit is the processing envelope around a record. SequenceNumber is
// assigned by the caller for vendors that emit multiple events per call_id.
type Audit struct {
	ReceivedAt     time.Time `json:"received_at"`
	SchemaVersion  Version   `json:"schema_version"`
	SequenceNumber *int64    `json:"sequence_number,omitempty"`
	Checksum       string    `json:"checksum,omitempty"`
}

// Clone deep-copies a message via a JSON round trip. Used by the migrator so
// an input record is never mutated.
func (m *Message) Clone() (*Message, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out Message
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
