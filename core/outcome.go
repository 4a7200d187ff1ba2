package core

import (
	"errors"
	"fmt"
)

// ErrExhausted is the terminal cause an action reports when a node has no
// more data to give, e.g. a drained sample queue. It is not a failure.
var ErrExhausted = errors.New("no more data available")

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRetryable
	OutcomeTerminal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeTerminal:
		return "terminal"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome is the result of one round-trip with a node.
type Outcome struct {
	Kind  OutcomeKind
	Cause error
}

func Success() Outcome {
	return Outcome{Kind: OutcomeSuccess}
}

func Retryable(cause error) Outcome {
	return Outcome{Kind: OutcomeRetryable, Cause: cause}
}

func Terminal(cause error) Outcome {
	return Outcome{Kind: OutcomeTerminal, Cause: cause}
}

// Exhausted reports whether o is the normal end of a multi-pass action.
func (o Outcome) Exhausted() bool {
	return o.Kind == OutcomeTerminal && errors.Is(o.Cause, ErrExhausted)
}

func (o Outcome) String() string {
	if o.Cause == nil {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s: %v", o.Kind, o.Cause)
}

// Classify maps the error of a round-trip to an Outcome. Errors the node
// blames on the request and end of data are terminal, anything else may go
// away if we ask again. A closed connection wraps context.Canceled too, so
// cancellation of the run is left to the executor.
func Classify(err error) Outcome {
	if err == nil {
		return Success()
	}
	if errors.Is(err, ErrExhausted) {
		return Terminal(err)
	}
	var respErr *ResponseError
	if errors.As(err, &respErr) && respErr.IsClientError() {
		return Terminal(err)
	}
	return Retryable(err)
}
