package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Request validation and references.
	ErrBadRequest       = "E_BAD_REQUEST"
	ErrInvalidReference = "E_INVALID_REFERENCE"
	ErrOutOfRange       = "E_OUT_OF_RANGE"
	ErrUnknownScenario  = "E_UNKNOWN_SCENARIO"

	// Simulation state.
	ErrInvalidState = "E_INVALID_STATE"
	ErrNotRunning   = "E_NOT_RUNNING"
	ErrOverloaded   = "E_OVERLOADED"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrBadRequest:       {},
	ErrInvalidReference: {},
	ErrOutOfRange:       {},
	ErrUnknownScenario:  {},
	ErrInvalidState:     {},
	ErrNotRunning:       {},
	ErrOverloaded:       {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
