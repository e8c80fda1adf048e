package vcp

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Checksum digests a canonicalized serialization of the record: object keys
// in sorted order, no whitespace, audit.checksum itself excluded. The digest
// is an integrity check, never an identity; recomputing after a
// serialize/deserialize round trip reproduces the same value.
func Checksum(m *Message) (string, error) {
	canon, err := canonicalBytes(m)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// StampChecksum returns a copy of m with audit.checksum set.
func StampChecksum(m *Message) (*Message, error) {
	sum, err := Checksum(m)
	if err != nil {
		return nil, err
	}
	out, err := m.Clone()
	if err != nil {
		return nil, err
	}
	out.Audit.Checksum = sum
	return out, nil
}

// VerifyChecksum recomputes the digest and compares it to audit.checksum.
func VerifyChecksum(m *Message) error {
	if m.Audit.Checksum == "" {
		return fmt.Errorf("record carries no checksum")
	}
	sum, err := Checksum(m)
	if err != nil {
		return err
	}
	if sum != m.Audit.Checksum {
		return fmt.Errorf("checksum mismatch: recorded %s, computed %s", m.Audit.Checksum, sum)
	}
	return nil
}

// canonicalBytes round-trips the record through an untyped document so that
// encoding/json emits object keys in sorted order regardless of struct field
// order, then strips the checksum slot.
func canonicalBytes(m *Message) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if audit, ok := doc["audit"].(map[string]any); ok {
		delete(audit, "checksum")
	}
	return json.Marshal(doc)
}
