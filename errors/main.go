package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

const (
	ERR_OK             = 0
	ERR_FATAL          = 1000
	ERR_MANIFEST_PARSE = 2000
	ERR_IMPOSSIBLE     = 9999
)

type DashError struct {
	Code       int
	Msg        string
	Data       interface{}
	CallStacks string
}

func (e *DashError) Error() string {
	return e.Msg
}

// GenCallStacks records the current goroutine stack on the error.
func (e *DashError) GenCallStacks() *DashError {
	e.CallStacks = string(debug.Stack())
	return e
}

func NewError(code int, msg string) *DashError {
	return &DashError{
		Msg:  msg,
		Code: code,
	}
}

func IsOk(err error) bool {
	if myErr, ok := err.(*DashError); ok {
		return myErr.Code == ERR_OK
	}
	return false
}

func IsManifestParseError(err error) bool {
	if myErr, ok := err.(*DashError); ok {
		return myErr.Code == ERR_MANIFEST_PARSE
	}
	return false
}

func Ok() *DashError {
	return NewError(ERR_OK, "")
}

func InvalidParam(format string, args ...any) *DashError {
	return NewError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

func InvalidConfig(format string, args ...any) *DashError {
	return NewError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

func FatalError(msg string) *DashError {
	return NewError(ERR_FATAL, msg)
}

func ThisIsImpossible() *DashError {
	return NewError(ERR_IMPOSSIBLE, "this is impossible")
}

// ManifestParseError is the only failure surfaced by the manifest parser.
// data carries the snippet or input that triggered it.
func ManifestParseError(msg string, data any) *DashError {
	err := NewError(ERR_MANIFEST_PARSE, msg)
	err.Data = data
	return err
}
