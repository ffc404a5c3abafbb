package incentivejson

// RPCErrorCode represents an error code to be used as a part of an RPCError
// which is in turn used in a JSON-RPC Response object.
type RPCErrorCode int

// RPCError represents an error that is used as a part of a JSON-RPC Response
// object.
type RPCError struct {
	Code    RPCErrorCode `json:"code,omitempty"`
	Message string       `json:"message,omitempty"`
}

// Guarantee RPCError satisfies the builtin error interface.
var _, _ error = RPCError{}, (*RPCError)(nil)

// Error returns a string describing the RPC error. This satisfies the
// builtin error interface.
func (e RPCError) Error() string {
	return e.Message
}

// NewRPCError constructs and returns a new JSON-RPC error that is suitable
// for use in a JSON-RPC Response object.
func NewRPCError(code RPCErrorCode, message string) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
	}
}

// Standard JSON-RPC 2.0 errors.
var (
	ErrRPCInvalidRequest = &RPCError{
		Code:    -32600,
		Message: "Invalid request",
	}
	ErrRPCMethodNotFound = &RPCError{
		Code:    -32601,
		Message: "Method not found",
	}
	ErrRPCInvalidParams = &RPCError{
		Code:    -32602,
		Message: "Invalid parameters",
	}
	ErrRPCInternal = &RPCError{
		Code:    -32603,
		Message: "Internal error",
	}
	ErrRPCParse = &RPCError{
		Code:    -32700,
		Message: "Parse error",
	}
)

// Authentication and transport errors.
var (
	ErrUnauthorized = &RPCError{
		Code:    302,
		Message: "User unauthorized",
	}
	ErrInternal = &RPCError{
		Code:    500,
		Message: "Internal error",
	}
)

// Errors returned by the registry, pool, ledger and mode components. These
// are terminal rejections; the engine never retries them on the caller's
// behalf.
var (
	ErrInvalidAddress = &RPCError{
		Code:    420,
		Message: "Invalid or zero address",
	}
	ErrAlreadyAssigned = &RPCError{
		Code:    421,
		Message: "Address already holds a bug bounty tier",
	}
	ErrAlreadyRegistered = &RPCError{
		Code:    422,
		Message: "Address already registered",
	}
	ErrDuplicateInRound = &RPCError{
		Code:    423,
		Message: "Address already registered for this round",
	}
	ErrEmptyBatch = &RPCError{
		Code:    424,
		Message: "Empty registration batch",
	}
	ErrLengthMismatch = &RPCError{
		Code:    425,
		Message: "Address and flag lists differ in length",
	}
	ErrNotWhitelisted = &RPCError{
		Code:    426,
		Message: "Address not whitelisted for this category",
	}
	ErrAlreadyClaimed = &RPCError{
		Code:    427,
		Message: "Reward already claimed",
	}
	ErrCooldownActive = &RPCError{
		Code:    428,
		Message: "Claim cooldown still active",
	}
	ErrModeNotLive = &RPCError{
		Code:    429,
		Message: "Program has not gone live",
	}
	ErrPaused = &RPCError{
		Code:    430,
		Message: "Claims are paused",
	}
	ErrInsufficientPoolOrBalance = &RPCError{
		Code:    431,
		Message: "Insufficient pool capacity or ledger balance",
	}
	ErrNoClaimSelected = &RPCError{
		Code:    432,
		Message: "No claim category selected",
	}
	ErrUnknownTier = &RPCError{
		Code:    433,
		Message: "Unknown bug bounty tier",
	}
	ErrInvalidParams = &RPCError{
		Code:    401,
		Message: "Invalid request params",
	}
)
