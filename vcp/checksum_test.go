package vcp

import (
	"encoding/json"
	"testing"
)

func TestChecksumRoundTripStable(t *testing.T) {
	msg := validMessage(V05)
	sum, err := Checksum(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var back Message
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, err := Checksum(&back)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != again {
		t.Fatalf("checksum changed across round trip: %s vs %s", sum, again)
	}
}

func TestChecksumIgnoresItsOwnSlot(t *testing.T) {
	msg := validMessage(V05)
	bare, err := Checksum(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stamped, err := StampChecksum(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stamped.Audit.Checksum != bare {
		t.Fatalf("stamped checksum %s differs from computed %s", stamped.Audit.Checksum, bare)
	}
	recomputed, err := Checksum(stamped)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recomputed != bare {
		t.Fatalf("checksum must exclude audit.checksum itself")
	}
}

func TestChecksumDetectsChange(t *testing.T) {
	msg := validMessage(V05)
	stamped, err := StampChecksum(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := VerifyChecksum(stamped); err != nil {
		t.Fatalf("expected clean verification: %v", err)
	}
	tampered, err := stamped.Clone()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tampered.Payload.Call.DurationSec++
	if err := VerifyChecksum(tampered); err == nil {
		t.Fatalf("expected verification to fail after mutation")
	}
}

func TestCapabilityWireForms(t *testing.T) {
	bare := BareCapability("calendar_api")
	raw, err := json.Marshal(bare)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `"calendar_api"` {
		t.Fatalf("bare capability must serialize as a string, got %s", raw)
	}

	var decoded Capability
	if err := json.Unmarshal([]byte(`"sms"`), &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decoded.Bare || decoded.ID != "sms" {
		t.Fatalf("expected bare capability, got %+v", decoded)
	}

	if err := json.Unmarshal([]byte(`{"capability_id":"book","capability_type":"tool_call","success":true}`), &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Bare || decoded.ID != "book" || decoded.Type != "tool_call" {
		t.Fatalf("expected structured capability, got %+v", decoded)
	}
}
