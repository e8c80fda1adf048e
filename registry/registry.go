// Package registry holds the catalog of vendor descriptors: declarative
// metadata plus ordered field-mapping rules for each supported voice AI
// vendor. The catalog is built once at process start and read-only after
// that, so concurrent lookups need no locking.
package registry

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrVendorNotFound is returned for lookups of vendors the catalog does not
// declare. Fatal for the payload being processed; there is nothing to retry.
var ErrVendorNotFound = errors.New("vendor not found")

// Webhook auth methods. Descriptive only: signature verification belongs to
// the fronting transport layer, not this engine.
const (
	AuthHMACSHA256      = "hmac_sha256"
	AuthBearerToken     = "bearer_token"
	AuthSignatureHeader = "signature_header"
	AuthAPIKeyHeader    = "api_key_header"
	AuthIPAllowlist     = "ip_allowlist"
)

// Event kinds vendors emit.
const (
	EventCallStarted           = "call_started"
	EventCallEnded             = "call_ended"
	EventCallAnalyzed          = "call_analyzed"
	EventEndOfCallReport       = "end_of_call_report"
	EventPostCallTranscription = "post_call_transcription"
	EventPostCallAudio         = "post_call_audio"
	EventStatusUpdate          = "status_update"
	EventConversationUpdate    = "conversation_update"
)

// MappingRule declares one source-path -> target-path mapping, optionally
// through a named value transform. Rules apply in declaration order; later
// writes to the same leaf win.
type MappingRule struct {
	Source    string `yaml:"source"`
	Target    string `yaml:"target"`
	Transform string `yaml:"transform,omitempty"`
}

// Vendor describes one external provider.
type Vendor struct {
	Name       string        `yaml:"name"`
	AuthMethod string        `yaml:"auth_method,omitempty"`
	AuthHeader string        `yaml:"auth_header,omitempty"`
	Events     []string      `yaml:"events"`
	Rules      []MappingRule `yaml:"rules"`
}

// Registry is the immutable vendor catalog.
type Registry struct {
	vendors map[string]Vendor
	names   []string
}

// New builds a catalog from descriptors. Duplicate names are rejected so a
// config file cannot silently shadow a vendor.
func New(vendors []Vendor) (*Registry, error) {
	r := &Registry{vendors: make(map[string]Vendor, len(vendors))}
	for _, v := range vendors {
		name := strings.ToLower(strings.TrimSpace(v.Name))
		if name == "" {
			return nil, fmt.Errorf("vendor with empty name")
		}
		if _, exists := r.vendors[name]; exists {
			return nil, fmt.Errorf("duplicate vendor %q", name)
		}
		for _, rule := range v.Rules {
			if rule.Source == "" || rule.Target == "" {
				return nil, fmt.Errorf("vendor %q: mapping rule needs source and target", name)
			}
		}
		v.Name = name
		r.vendors[name] = v
		r.names = append(r.names, name)
	}
	return r, nil
}

// Get looks up a vendor descriptor by name.
func (r *Registry) Get(name string) (Vendor, error) {
	v, ok := r.vendors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Vendor{}, fmt.Errorf("%w: %q", ErrVendorNotFound, name)
	}
	return v, nil
}

// Names returns the declared vendor names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of declared vendors.
func (r *Registry) Len() int { return len(r.vendors) }

type fileCatalog struct {
	Vendors []Vendor `yaml:"vendors"`
}

// LoadFile reads a vendor catalog from a YAML file. Used once at startup;
// there is no hot reload.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vendor catalog: %w", err)
	}
	var cat fileCatalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("parse vendor catalog %s: %w", path, err)
	}
	if len(cat.Vendors) == 0 {
		return nil, fmt.Errorf("vendor catalog %s declares no vendors", path)
	}
	return New(cat.Vendors)
}
