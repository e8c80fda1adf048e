package vcp

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
}

func legacyMessage() *Message {
	msg := validMessage(V03)
	msg.Payload.Call.Capabilities = []Capability{
		BareCapability("calendar_api"),
		BareCapability("sms_notification"),
	}
	return msg
}

func TestUpgradeStepwiseToV05(t *testing.T) {
	g := NewMigrator(fixedClock)
	up, err := g.Upgrade(legacyMessage(), V05)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up.SchemaVersion != V05 || up.Audit.SchemaVersion != V05 {
		t.Fatalf("expected version 0.5, got %s/%s", up.SchemaVersion, up.Audit.SchemaVersion)
	}
	if up.Payload.Consent == nil || up.Payload.Provenance == nil {
		t.Fatalf("upgrade must add consent and provenance defaults")
	}
	for _, inv := range up.Payload.Call.Capabilities {
		if inv.Bare {
			t.Fatalf("expected structured capabilities, got bare %q", inv.ID)
		}
		if inv.Type != "tool_call" {
			t.Fatalf("expected tool_call type, got %q", inv.Type)
		}
		if inv.InvokedAt == nil || !inv.InvokedAt.Equal(up.Payload.Call.StartTime) {
			t.Fatalf("expected invoked_at defaulted to call start")
		}
		if inv.Success == nil || !*inv.Success {
			t.Fatalf("expected success defaulted to true")
		}
	}
	if res := Validate(up); !res.OK() {
		t.Fatalf("upgraded record must validate cleanly: %+v", res.Errors)
	}
}

func TestUpgradeDoesNotMutateInput(t *testing.T) {
	src := legacyMessage()
	g := NewMigrator(fixedClock)
	if _, err := g.Upgrade(src, V05); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.SchemaVersion != V03 {
		t.Fatalf("input record was mutated to %s", src.SchemaVersion)
	}
	if !src.Payload.Call.Capabilities[0].Bare {
		t.Fatalf("input capabilities were mutated")
	}
}

func TestUpgradeIdempotentAtTarget(t *testing.T) {
	g := NewMigrator(fixedClock)
	msg := validMessage(V05)
	up, err := g.Upgrade(msg, V05)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(msg, up) {
		t.Fatalf("upgrade at target version must be field-for-field equal")
	}
}

func TestDowngradeIdempotentAtTarget(t *testing.T) {
	g := NewMigrator(fixedClock)
	msg := validMessage(V03)
	down, err := g.Downgrade(msg, V03)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(msg, down) {
		t.Fatalf("downgrade at target version must be field-for-field equal")
	}
}

func TestDowngradeIsLossy(t *testing.T) {
	g := NewMigrator(fixedClock)
	up, err := g.Upgrade(legacyMessage(), V05)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	down, err := g.Downgrade(up, V03)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if down.Payload.Consent != nil || down.Payload.Provenance != nil {
		t.Fatalf("downgrade to 0.3 must drop consent and provenance")
	}
	for _, inv := range down.Payload.Call.Capabilities {
		if !inv.Bare {
			t.Fatalf("downgrade must flatten capabilities, got structured %q", inv.ID)
		}
	}

	// Re-upgrading must not resurrect the discarded metadata.
	again, err := g.Upgrade(down, V05)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Payload.Provenance == nil {
		t.Fatalf("re-upgrade must synthesize fresh provenance")
	}
	for _, step := range again.Payload.Provenance.TransformationHistory {
		if step == "routed_extractions" {
			t.Fatalf("discarded history must not survive the round trip")
		}
	}
}

func TestMigrateRejectsUnknownTarget(t *testing.T) {
	g := NewMigrator(fixedClock)
	if _, err := g.Upgrade(validMessage(V03), Version("0.9")); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
	if _, err := g.Downgrade(validMessage(V05), Version("0.1")); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestUpgradeRejectsBackwardTarget(t *testing.T) {
	g := NewMigrator(fixedClock)
	if _, err := g.Upgrade(validMessage(V05), V03); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion for backward upgrade, got %v", err)
	}
}
