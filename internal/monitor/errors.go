package monitor

import (
	"errors"

	"github.com/muurk/aimon/internal/protocol"
)

// Sentinel errors for monitor operations. Each maps to a wire result code
// carried in event acknowledgements.
var (
	// ErrInvalidParam marks a malformed or out-of-range request value.
	ErrInvalidParam = errors.New("invalid parameter")
	// ErrNotSupported marks a recognized but unimplemented operation.
	ErrNotSupported = errors.New("not supported")
	// ErrNotFound marks an unknown event or target.
	ErrNotFound = errors.New("not found")
	// ErrTransport marks a socket-level send or receive failure.
	ErrTransport = errors.New("transport failure")
	// ErrNotReady marks an operation attempted before the server is serving.
	ErrNotReady = errors.New("not ready")
)

// resultCode maps a handler error to its wire result code.
func resultCode(err error) protocol.ResultCode {
	switch {
	case err == nil:
		return protocol.ResultOK
	case errors.Is(err, ErrInvalidParam):
		return protocol.ResultInvalidParam
	case errors.Is(err, ErrNotSupported):
		return protocol.ResultNotSupported
	case errors.Is(err, ErrNotFound):
		return protocol.ResultNotFound
	case errors.Is(err, ErrNotReady):
		return protocol.ResultNotReady
	default:
		return protocol.ResultTransport
	}
}
