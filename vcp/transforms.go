package vcp

import (
	"strconv"
	"strings"
	"time"
)

// Value transforms are total: unrecognized input degrades to an explicit
// unknown/neutral canonical value instead of failing. Vendor vocabularies
// evolve on their own schedule, so none of these functions may reject input.

// statusRule maps a disconnect-reason term to a canonical status. Rules are
// checked in declaration order; the first substring match wins.
type statusRule struct {
	term   string
	status Status
}

// Policy note: a user hangup classifies as success. Across the vendor corpus
// a hangup after the task flow is the normal way callers end a completed
// interaction; abandoned calls are recoverable from completion flags instead.
var statusTable = []statusRule{
	{"completed", StatusSuccess},
	{"success", StatusSuccess},
	{"finished", StatusSuccess},
	{"hangup", StatusSuccess},
	{"voicemail", StatusPartial},
	{"transferred", StatusPartial},
	{"transfer", StatusPartial},
	{"partial", StatusPartial},
	{"incomplete", StatusPartial},
	{"timeout", StatusTimeout},
	{"no_answer", StatusTimeout},
	{"no-answer", StatusTimeout},
	{"busy", StatusTimeout},
	{"error", StatusError},
	{"failed", StatusError},
	{"connection", StatusError},
	{"rejected", StatusFailure},
	{"declined", StatusFailure},
	{"abandoned", StatusFailure},
	{"failure", StatusFailure},
}

// NormalizeStatus collapses a vendor terminal-state vocabulary into the
// canonical outcome status. Unmapped input yields StatusUnknown.
func NormalizeStatus(reason string) Status {
	r := strings.ToLower(strings.TrimSpace(reason))
	if r == "" {
		return StatusUnknown
	}
	for _, rule := range statusTable {
		if strings.Contains(r, rule.term) {
			return rule.status
		}
	}
	return StatusUnknown
}

var sentimentScores = map[string]float64{
	"very_positive":     1.0,
	"positive":          0.8,
	"slightly_positive": 0.6,
	"neutral":           0.5,
	"slightly_negative": 0.4,
	"negative":          0.2,
	"very_negative":     0.0,
}

// SentimentScore converts a seven-level ordinal sentiment into a score in
// [0,1]. Unrecognized input maps to the neutral 0.5.
func SentimentScore(sentiment string) (float64, bool) {
	score, ok := sentimentScores[strings.ToLower(strings.TrimSpace(sentiment))]
	if !ok {
		return 0.5, false
	}
	return score, true
}

// ReconcileChannel resolves the dual direction/channel representation. A
// legacy combined channel value ("inbound"/"outbound") becomes a direction
// plus the default phone medium; a bare direction defaults the medium the
// same way. Direction and channel never disagree after this step.
func ReconcileChannel(direction, channel string) (string, string) {
	d := strings.ToLower(strings.TrimSpace(direction))
	c := strings.ToLower(strings.TrimSpace(channel))
	if c == DirectionInbound || c == DirectionOutbound {
		d = c
		c = ChannelPhone
	}
	if d != "" && c == "" {
		c = ChannelPhone
	}
	return d, c
}

// QualificationScore computes a lead qualification score from a flat map of
// vendor-extracted sales fields. Base 0.5; decision-maker flag +0.2; any
// monetary field +0.15; urgency within 30 days +0.15, within 90 days +0.10.
// Clamped to 1.0.
func QualificationScore(fields map[string]any) float64 {
	score := 0.5

	if dm, ok := fields["decision_maker"].(bool); ok && dm {
		score += 0.2
	}

	if hasMonetaryField(fields) {
		score += 0.15
	}

	switch timelineUrgency(fields) {
	case urgencyImmediate:
		score += 0.15
	case urgencyNearTerm:
		score += 0.10
	}

	return min(score, 1.0)
}

func hasMonetaryField(fields map[string]any) bool {
	for key, val := range fields {
		k := strings.ToLower(key)
		if strings.Contains(k, "budget") || strings.Contains(k, "price") || strings.Contains(k, "amount") || strings.Contains(k, "revenue") {
			return true
		}
		if s, ok := val.(string); ok && strings.Contains(s, "$") {
			return true
		}
	}
	return false
}

type urgency int

const (
	urgencyNone urgency = iota
	urgencyNearTerm
	urgencyImmediate
)

func timelineUrgency(fields map[string]any) urgency {
	for key, val := range fields {
		k := strings.ToLower(key)
		if !strings.Contains(k, "timeline") && !strings.Contains(k, "timeframe") {
			continue
		}
		t := strings.ReplaceAll(strings.ToLower(toString(val)), "_", " ")
		switch {
		case strings.Contains(t, "30 day"), strings.Contains(t, "immediate"), strings.Contains(t, "urgent"), strings.Contains(t, "asap"):
			return urgencyImmediate
		case strings.Contains(t, "90 day"), strings.Contains(t, "quarter"):
			return urgencyNearTerm
		}
	}
	return urgencyNone
}

// EpochToTime normalizes vendor timestamps: unix seconds, unix milliseconds,
// numeric strings, or RFC 3339 strings. The second return is false when the
// value cannot be interpreted as a time.
func EpochToTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		return fromEpoch(int64(t)), true
	case int64:
		return fromEpoch(t), true
	case int:
		return fromEpoch(int64(t)), true
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts, true
		}
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return fromEpoch(n), true
		}
	case time.Time:
		return t, true
	}
	return time.Time{}, false
}

// Values above this threshold are read as milliseconds; below, seconds.
// 1e12 seconds is past the year 33000 and 1e12 milliseconds is September
// 2001, so real call timestamps land on the correct side in either unit.
const epochMillisCutoff = int64(1e12)

func fromEpoch(n int64) time.Time {
	if n > epochMillisCutoff {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// ToInt coerces a JSON number into an int. The second return is false when
// the value is not numeric.
func ToInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return strings.TrimSpace(strconvFormat(v))
}

func strconvFormat(v any) string {
	switch t := v.(type) {
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}
