package plan

import (
	"fmt"

	"github.com/juju/errors"
)

// ErrCode identifies which failure category produced an error.
type ErrCode int

const (
	// CodePlanError covers structural failures: null input, unknown
	// logical kind, invalid primary path, missing catalog entry, empty
	// projection lists.
	CodePlanError ErrCode = iota
	// CodeCodegenError covers C6 refusing a projection.
	CodeCodegenError
	// CodeOpGenError covers physical-operator construction failures that
	// are not plan-shape problems (e.g. a pass failing inside
	// Pipeline.Run).
	CodeOpGenError
)

func (c ErrCode) String() string {
	switch c {
	case CodePlanError:
		return "PlanError"
	case CodeCodegenError:
		return "CodegenError"
	case CodeOpGenError:
		return "OpGenError"
	default:
		return "UnknownError"
	}
}

// Status is a single-line, human-readable failure: the error.Error()
// string carries "<Code>: <Msg>".
type Status struct {
	Code ErrCode
	Msg  string
}

func (s *Status) Error() string {
	return fmt.Sprintf("%s: %s", s.Code, s.Msg)
}

func newStatus(code ErrCode, format string, args ...interface{}) error {
	return errors.Trace(&Status{Code: code, Msg: fmt.Sprintf(format, args...)})
}

// NewPlanError builds a PlanError-coded Status.
func NewPlanError(format string, args ...interface{}) error {
	return newStatus(CodePlanError, format, args...)
}

// NewCodegenError builds a CodegenError-coded Status.
func NewCodegenError(format string, args ...interface{}) error {
	return newStatus(CodeCodegenError, format, args...)
}

// NewOpGenError builds an OpGenError-coded Status.
func NewOpGenError(format string, args ...interface{}) error {
	return newStatus(CodeOpGenError, format, args...)
}

// StatusCode extracts the ErrCode carried by err, walking through any
// errors.Trace wrapping. Returns CodeOpGenError if err does not carry a
// *Status (e.g. it came from a collaborator outside this package).
func StatusCode(err error) ErrCode {
	if st, ok := errors.Cause(err).(*Status); ok {
		return st.Code
	}
	return CodeOpGenError
}
