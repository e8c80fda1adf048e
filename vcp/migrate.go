package vcp

import (
	"fmt"
	"time"
)

// Migrator moves records between schema versions one step at a time.
// Upgrades are additive and lossless; downgrades are explicitly lossy and
// discard the metadata the older schema cannot carry. Both directions are
// idempotent on a record already at the target version.
type Migrator struct {
	now func() time.Time
}

// NewMigrator returns a migrator stamping synthesized fields with now.
// A nil clock uses time.Now.
func NewMigrator(now func() time.Time) *Migrator {
	if now == nil {
		now = time.Now
	}
	return &Migrator{now: now}
}

// Upgrade returns a copy of m migrated forward to target. Intermediate
// versions are never skipped: 0.3 reaches 0.5 via 0.4.
func (g *Migrator) Upgrade(m *Message, target Version) (*Message, error) {
	from, to := m.SchemaVersion.index(), target.index()
	if from < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, m.SchemaVersion)
	}
	if to < 0 {
		return nil, fmt.Errorf("%w: upgrade target %q", ErrUnsupportedVersion, target)
	}
	if to < from {
		return nil, fmt.Errorf("%w: cannot upgrade %s to older %s", ErrUnsupportedVersion, m.SchemaVersion, target)
	}
	out, err := m.Clone()
	if err != nil {
		return nil, err
	}
	for i := from; i < to; i++ {
		g.upgradeStep(out, versionOrder[i+1])
	}
	return out, nil
}

// Downgrade returns a copy of m migrated backward to target, dropping
// consent/provenance and flattening structured capability invocations to
// bare identifiers. The discarded metadata does not survive re-upgrading.
func (g *Migrator) Downgrade(m *Message, target Version) (*Message, error) {
	from, to := m.SchemaVersion.index(), target.index()
	if from < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, m.SchemaVersion)
	}
	if to < 0 {
		return nil, fmt.Errorf("%w: downgrade target %q", ErrUnsupportedVersion, target)
	}
	if to > from {
		return nil, fmt.Errorf("%w: cannot downgrade %s to newer %s", ErrUnsupportedVersion, m.SchemaVersion, target)
	}
	out, err := m.Clone()
	if err != nil {
		return nil, err
	}
	for i := from; i > to; i-- {
		g.downgradeStep(out, versionOrder[i-1])
	}
	return out, nil
}

func (g *Migrator) upgradeStep(m *Message, to Version) {
	switch to {
	case V04:
		// 0.3 -> 0.4 introduces the consent and provenance sections.
		if m.Payload.Provenance == nil {
			m.Payload.Provenance = &Provenance{
				SourceSystem:          m.Payload.Call.Provider,
				CreatedAt:             g.now().UTC(),
				CreatedBy:             "vcp_migrator",
				TransformationHistory: []string{"upgraded_from_v0.3"},
			}
		} else {
			m.Payload.Provenance.TransformationHistory = append(m.Payload.Provenance.TransformationHistory, "upgraded_from_v0.3")
		}
		if m.Payload.Consent == nil {
			m.Payload.Consent = &Consent{
				ConsentID: "consent_" + m.Payload.Call.CallID,
				Status:    ConsentGranted,
				Scope:     []string{"recording", "analytics"},
				Version:   "1.0",
			}
		}
	case V05:
		// 0.4 -> 0.5 structures the legacy bare capability identifiers.
		start := m.Payload.Call.StartTime
		for i, inv := range m.Payload.Call.Capabilities {
			if !inv.Bare {
				continue
			}
			invokedAt := start
			success := true
			m.Payload.Call.Capabilities[i] = Capability{
				ID:        inv.ID,
				Type:      "tool_call",
				InvokedAt: &invokedAt,
				Success:   &success,
			}
		}
		if m.Payload.Provenance != nil {
			m.Payload.Provenance.TransformationHistory = append(m.Payload.Provenance.TransformationHistory, "upgraded_from_v0.4")
		}
	}
	m.SchemaVersion = to
	m.Audit.SchemaVersion = to
}

func (g *Migrator) downgradeStep(m *Message, to Version) {
	switch to {
	case V04:
		// 0.4 carries capabilities as bare identifiers only. Timing and
		// success metadata is discarded.
		for i, inv := range m.Payload.Call.Capabilities {
			if inv.Bare {
				continue
			}
			m.Payload.Call.Capabilities[i] = BareCapability(inv.ID)
		}
	case V03:
		m.Payload.Consent = nil
		m.Payload.Provenance = nil
	}
	m.SchemaVersion = to
	m.Audit.SchemaVersion = to
}
