package tools

import (
	"errors"
	"fmt"

	"github.com/WessleyAI/overflow-mcp/engine/domain"
)

// Code is a JSON-RPC style error code.
type Code int

const (
	CodeInvalidRequest Code = -32600
	CodeMethodNotFound Code = -32601
	CodeInvalidParams  Code = -32602
	CodeInternal       Code = -32603
)

func (c Code) String() string {
	switch c {
	case CodeInvalidRequest:
		return "invalid_request"
	case CodeMethodNotFound:
		return "method_not_found"
	case CodeInvalidParams:
		return "invalid_params"
	case CodeInternal:
		return "internal"
	default:
		return fmt.Sprintf("code_%d", int(c))
	}
}

// Error is a failed tool call as reported to the caller.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Classify maps any error onto an *Error. Validation failures become
// CodeInvalidParams, upstream failures CodeInvalidRequest, and everything
// else CodeInternal.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var terr *Error
	if errors.As(err, &terr) {
		return terr
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return &Error{Code: CodeInvalidParams, Message: verr.Error(), Err: err}
	}
	var uerr *domain.UpstreamError
	if errors.As(err, &uerr) {
		return &Error{Code: CodeInvalidRequest, Message: "Stack Overflow API error: " + uerr.Message, Err: err}
	}
	return &Error{Code: CodeInternal, Message: err.Error(), Err: err}
}
