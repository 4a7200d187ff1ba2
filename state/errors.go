package state

import (
	"fmt"
)

// InvalidHostError is returned for a token that is neither an address nor a
// hostname.
type InvalidHostError struct {
	Host string
}

func (e *InvalidHostError) Error() string {
	return fmt.Sprintf("invalid IP / hostname %q", e.Host)
}

// UnresolvableHostError is returned when the system resolver has no answer
// for a hostname.
type UnresolvableHostError struct {
	Host string
	Err  error
}

func (e *UnresolvableHostError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unable to resolve %q", e.Host)
	}
	return fmt.Sprintf("unable to resolve %q: %v", e.Host, e.Err)
}

func (e *UnresolvableHostError) Unwrap() error {
	return e.Err
}

// ParseError identifies the line of an override source that could not be
// parsed.
type ParseError struct {
	Source string
	Line   int
	Text   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v: %q", e.Source, e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
