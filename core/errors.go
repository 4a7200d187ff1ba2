package core

import (
	"errors"
	"fmt"

	"github.com/plgd-dev/go-coap/v3/message/codes"
)

var ErrTransportClosed = errors.New("transport is closed")

// ResponseError is returned when a node answers with a non success code.
type ResponseError struct {
	Method Method
	Path   string
	Code   codes.Code
	Msg    string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: got CoAP response %s (%s) using %s on %s", e.Msg, FormatCode(e.Code), e.Code, e.Method, e.Path)
}

// IsClientError reports whether the node rejected the request itself (4.xx).
func (e *ResponseError) IsClientError() bool {
	return codeClass(e.Code) == 4
}

// FormatCode renders a response code in the dotted c.dd form.
func FormatCode(c codes.Code) string {
	return fmt.Sprintf("%d.%02d", codeClass(c), uint16(c)&0x1f)
}

func codeClass(c codes.Code) uint16 {
	return uint16(c) >> 5
}
