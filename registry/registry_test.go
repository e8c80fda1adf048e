package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalogVendors(t *testing.T) {
	r := Default()
	for _, name := range []string{"retell", "bland", "vapi", "elevenlabs", "openai_realtime", "assistable"} {
		v, err := r.Get(name)
		if err != nil {
			t.Fatalf("expected vendor %q: %v", name, err)
		}
		if len(v.Rules) == 0 {
			t.Fatalf("vendor %q declares no mapping rules", name)
		}
	}
}

func TestGetIsCaseInsensitive(t *testing.T) {
	r := Default()
	if _, err := r.Get("Retell"); err != nil {
		t.Fatalf("expected case-insensitive lookup: %v", err)
	}
}

func TestGetUnknownVendor(t *testing.T) {
	r := Default()
	_, err := r.Get("acme_voice")
	if !errors.Is(err, ErrVendorNotFound) {
		t.Fatalf("expected ErrVendorNotFound, got %v", err)
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]Vendor{
		{Name: "retell", Rules: []MappingRule{{Source: "a", Target: "b"}}},
		{Name: "Retell", Rules: []MappingRule{{Source: "a", Target: "b"}}},
	})
	if err == nil {
		t.Fatalf("expected duplicate vendor error")
	}
}

func TestNewRejectsIncompleteRule(t *testing.T) {
	_, err := New([]Vendor{{Name: "x", Rules: []MappingRule{{Source: "a"}}}})
	if err == nil {
		t.Fatalf("expected incomplete rule error")
	}
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vendors.yaml")
	doc := `vendors:
  - name: acme_voice
    auth_method: bearer_token
    events: [call_ended]
    rules:
      - source: id
        target: call.call_id
      - source: reason
        target: outcomes.objective.status
        transform: status
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := r.Get("acme_voice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Rules) != 2 || v.Rules[1].Transform != "status" {
		t.Fatalf("unexpected rules: %+v", v.Rules)
	}
}

func TestLoadFileEmptyCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vendors.yaml")
	if err := os.WriteFile(path, []byte("vendors: []\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected error for empty catalog")
	}
}
