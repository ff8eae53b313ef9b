package server

import (
	"errors"
	"fmt"

	"deedles.dev/oxyde/internal/objstore"
	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/wire"
)

var (
	ErrClientGone  = errors.New("client disconnected")
	ErrNoSurface   = errors.New("no such surface")
	ErrNoClient    = errors.New("no such client")
	ErrNoGlobal    = errors.New("no such global")
	ErrNotToplevel = errors.New("surface is not a toplevel")
	ErrNoWorkers   = errors.New("no worker pool")
	ErrStopped     = errors.New("server stopped")
	ErrNoOutput    = errors.New("no such output")
	ErrNoContent   = errors.New("surface has no buffer")
)

// ProtocolError is a fatal error caused by a client. It is reported to
// the client with a wl_display.error event, after which the client is
// disconnected.
type ProtocolError struct {
	Object  uint32
	Code    uint32
	Message string
}

func protoErr(obj *Object, code uint32, format string, args ...any) error {
	return ProtocolError{
		Object:  obj.ID,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (err ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on object %v (code %v): %v", err.Object, err.Code, err.Message)
}

// BackendError indicates that the back-end has failed and that the
// server can not continue.
type BackendError struct {
	Err error
}

func (err BackendError) Error() string {
	return fmt.Sprintf("back-end lost: %v", err.Err)
}

func (err BackendError) Unwrap() error {
	return err.Err
}

// toProtocolError determines what to tell a client about an error that
// occurred while handling one of its requests. The second return value
// is true if the error was the compositor's fault rather than the
// client's.
func toProtocolError(err error) (ProtocolError, bool) {
	var perr ProtocolError
	if errors.As(err, &perr) {
		return perr, false
	}

	var (
		derr wire.DecodeError
		ferr wire.FrameError
		uerr wire.UnknownSenderIDError
	)
	switch {
	case errors.As(err, &derr):
		return ProtocolError{Object: derr.Sender, Code: protocol.DisplayErrorInvalidMethod, Message: derr.Reason}, false
	case errors.As(err, &ferr):
		return ProtocolError{Object: 1, Code: protocol.DisplayErrorInvalidMethod, Message: ferr.Reason}, false
	case errors.As(err, &uerr):
		return ProtocolError{Object: 1, Code: protocol.DisplayErrorInvalidObject, Message: fmt.Sprintf("invalid object %v", uerr.ID)}, false
	case errors.Is(err, objstore.ErrNotFound), errors.Is(err, objstore.ErrInUse), errors.Is(err, objstore.ErrWrongRange), errors.Is(err, objstore.ErrNullID):
		return ProtocolError{Object: 1, Code: protocol.DisplayErrorInvalidObject, Message: err.Error()}, false
	default:
		return ProtocolError{Object: 1, Code: protocol.DisplayErrorImplementation, Message: "compositor error"}, true
	}
}
