package normalize

import (
	"fmt"

	"voicelens/vcp"
)

// Request is one inbound, already-authenticated vendor payload. Sequence is
// the caller-assigned per-call_id ordering for vendors emitting multiple
// events per call; the engine never buffers or reorders.
type Request struct {
	Vendor   string
	Payload  map[string]any
	Sequence *int64
}

// Process runs the full pipeline: map, build, validate, checksum. On
// success the returned record carries its integrity checksum and the
// validation result holds at most warnings. On fatal failure (unknown
// vendor, structural violation, revoked consent) a typed error is returned
// instead of a record; retry, drop, or alert policy belongs to the caller.
func (e *Engine) Process(req Request) (*vcp.Message, vcp.Result, error) {
	partial, warnings, err := e.Map(req.Vendor, req.Payload)
	if err != nil {
		return nil, vcp.Result{}, err
	}

	msg, err := e.Build(req.Vendor, partial, req.Payload, req.Sequence)
	if err != nil {
		return nil, vcp.Result{}, err
	}

	result := vcp.Validate(msg)
	result.Warnings = append(warnings, result.Warnings...)
	if !result.OK() {
		first := result.Errors[0]
		base := vcp.ErrValidation
		for _, iss := range result.Errors {
			if iss.Code == "consent_revoked" {
				base = vcp.ErrRevokedConsent
			}
		}
		return nil, result, fmt.Errorf("%w: %s at %s", base, first.Code, first.FieldPath)
	}

	stamped, err := vcp.StampChecksum(msg)
	if err != nil {
		return nil, result, err
	}
	return stamped, result, nil
}
