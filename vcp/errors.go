package vcp

import (
	"errors"
	"fmt"
)

// Fatal, non-retryable failures. Callers branch with errors.Is; retry and
// quarantine policy belongs to the delivery side.
var (
	// ErrPathConflict means a mapping target collides with an existing
	// non-object value. A configuration defect, not a payload defect.
	ErrPathConflict = errors.New("path conflict")

	// ErrUnsupportedVersion means a schema version outside 0.3..0.5.
	ErrUnsupportedVersion = errors.New("unsupported schema version")

	// ErrValidation means the record failed structural or business
	// validation and must not be delivered downstream.
	ErrValidation = errors.New("record validation failed")

	// ErrRevokedConsent is the validation failure for records whose consent
	// status is revoked. Matches ErrValidation too.
	ErrRevokedConsent = fmt.Errorf("%w: consent revoked", ErrValidation)
)
