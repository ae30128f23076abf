package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Submission layer.
	ErrOutOfOrder = "E_OUT_OF_ORDER"
	ErrHashDrift  = "E_HASH_DRIFT"
	ErrCheating   = "E_CHEATING"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrOutOfOrder:      {},
	ErrHashDrift:       {},
	ErrCheating:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
