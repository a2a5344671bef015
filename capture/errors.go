package capture

import (
	"errors"
	"fmt"

	"github.com/BaSui01/voiceweb/types"
)

// Error kinds. Providers may return these (wrapped) to classify failures;
// the manager and orchestrator always surface one of them via *Error.
var (
	ErrPermissionDenied     = errors.New("screen capture permission denied")
	ErrUserCancelled        = errors.New("screen capture request was cancelled")
	ErrSourceInactive       = errors.New("capture source is no longer active")
	ErrGrabFailed           = errors.New("frame grab failed")
	ErrEncodeFailed         = errors.New("image encode failed")
	ErrChannelUnavailable   = errors.New("data channel not available")
	ErrChannelClosedMidSend = errors.New("data channel closed during send")
)

var kindCodes = map[error]types.ErrorCode{
	ErrPermissionDenied:     types.ErrPermissionDenied,
	ErrUserCancelled:        types.ErrUserCancelled,
	ErrSourceInactive:       types.ErrSourceInactive,
	ErrGrabFailed:           types.ErrGrabFailed,
	ErrEncodeFailed:         types.ErrEncodeFailed,
	ErrChannelUnavailable:   types.ErrChannelUnavailable,
	ErrChannelClosedMidSend: types.ErrChannelClosedMidSend,
}

// Error is a classified capture pipeline failure.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

// Is matches the error kind so errors.Is(err, ErrPermissionDenied) works.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code maps the kind onto the shared error code set.
func (e *Error) Code() types.ErrorCode {
	if code, ok := kindCodes[e.Kind]; ok {
		return code
	}
	return types.ErrInternalError
}

func newError(op string, kind, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf returns the capture error kind carried by err, or nil.
func KindOf(err error) error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	for kind := range kindCodes {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// CodeOf returns the shared error code for err.
func CodeOf(err error) types.ErrorCode {
	if err == nil {
		return ""
	}
	if kind := KindOf(err); kind != nil {
		return kindCodes[kind]
	}
	return types.ErrInternalError
}

// kindName is the short label used in metrics and status records.
func kindName(err error) string {
	switch KindOf(err) {
	case ErrPermissionDenied:
		return "PermissionDenied"
	case ErrUserCancelled:
		return "UserCancelled"
	case ErrSourceInactive:
		return "SourceInactive"
	case ErrGrabFailed:
		return "GrabFailed"
	case ErrEncodeFailed:
		return "EncodeFailed"
	case ErrChannelUnavailable:
		return "ChannelUnavailable"
	case ErrChannelClosedMidSend:
		return "ChannelClosedMidSend"
	default:
		return "Unknown"
	}
}
