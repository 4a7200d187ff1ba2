package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want OutcomeKind
	}{
		{"nil", nil, OutcomeSuccess},
		{"timeout", context.DeadlineExceeded, OutcomeRetryable},
		{"io", errors.New("connection refused"), OutcomeRetryable},
		{"connection closed", fmt.Errorf("connection was closed: %w", context.Canceled), OutcomeRetryable},
		{"exhausted", errNoMoreSamples, OutcomeTerminal},
		{"bad request", &ResponseError{Method: MethodGet, Path: "/config", Code: codes.BadRequest}, OutcomeTerminal},
		{"not found", &ResponseError{Method: MethodGet, Path: "/sample", Code: codes.NotFound}, OutcomeTerminal},
		{"server error", &ResponseError{Method: MethodGet, Path: "/sample", Code: codes.InternalServerError}, OutcomeRetryable},
		{"unavailable", &ResponseError{Method: MethodGet, Path: "/sample", Code: codes.ServiceUnavailable}, OutcomeRetryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Classify(tt.err)
			assert.Equal(t, tt.want, out.Kind)
			if tt.err != nil {
				assert.ErrorIs(t, out.Cause, tt.err)
			}
		})
	}
}

func TestOutcome_Exhausted(t *testing.T) {
	assert.True(t, Terminal(errNoMoreSamples).Exhausted())
	assert.False(t, Retryable(errNoMoreSamples).Exhausted())
	assert.False(t, Terminal(errors.New("bad request")).Exhausted())
	assert.False(t, Success().Exhausted())
}

func TestResponseError(t *testing.T) {
	err := &ResponseError{Method: MethodDelete, Path: "/sample/3", Code: codes.NotFound, Msg: "failed to delete sample"}
	assert.Equal(t, "4.04", FormatCode(err.Code))
	assert.Equal(t, "2.05", FormatCode(codes.Content))
	assert.True(t, err.IsClientError())
	assert.Contains(t, err.Error(), "4.04")
	assert.Contains(t, err.Error(), "DELETE on /sample/3")
}
