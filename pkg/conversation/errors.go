package conversation

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when a session is asked to do something while it is still
// waiting on a completion.
var ErrBusy = errors.New("conversation: a reply is still pending")

// TurnError reports a turn that was aborted because the completion failed.
// The user's message has already been removed from the log when this is returned.
type TurnError struct {
	Text string
	Err  error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn aborted: %v", e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}
