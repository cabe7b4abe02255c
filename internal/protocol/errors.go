package protocol

import (
	"errors"
	"fmt"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoTooLarge   = "E_PROTO_TOO_LARGE"

	// Sync call resolution.
	ErrDecode     = "E_DECODE"
	ErrRateLimit  = "E_RATE_LIMIT"
	ErrInternal   = "E_INTERNAL"
	ErrNoDecision = "E_NO_DECISION"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoTooLarge:   {},
	ErrDecode:          {},
	ErrRateLimit:       {},
	ErrInternal:        {},
	ErrNoDecision:      {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// ErrVariantInvariant reports a tagged variant with the wrong number of
// populated alternatives.
var ErrVariantInvariant = errors.New("variant invariant violation")

// VariantError locates a variant invariant violation.
type VariantError struct {
	Type   string   // e.g. "Action"
	Path   string   // e.g. "outputs[0].actions[1]", empty when unknown
	Fields []string // populated alternatives; empty when none was set
}

func (e *VariantError) Error() string {
	where := e.Type
	if e.Path != "" {
		where = e.Path + " (" + e.Type + ")"
	}
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %v: no variant populated", where, ErrVariantInvariant)
	}
	return fmt.Sprintf("%s: %v: multiple variants populated %v", where, ErrVariantInvariant, e.Fields)
}

func (e *VariantError) Unwrap() error { return ErrVariantInvariant }
