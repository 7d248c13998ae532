package comfy

import (
	"errors"
	"fmt"
)

// ErrServerUnreachable indicates the ComfyUI server refused the connection or
// the host could not be reached. The run controller stops loop mode when a
// cycle fails with this error: retrying against an absent server in a tight
// loop would just spin.
var ErrServerUnreachable = errors.New("server unreachable")

// RequestTimeoutError indicates a per-call connect or read timeout. The
// cycle fails but loop mode is left untouched.
type RequestTimeoutError struct {
	Op  string
	Err error
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *RequestTimeoutError) Unwrap() error { return e.Err }

// MalformedResponseError indicates a response missing a required field, such
// as a submission response without a prompt id. The raw body is carried for
// diagnostics.
type MalformedResponseError struct {
	Message string
	Body    string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Body)
}
