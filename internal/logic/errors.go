package logic

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks a request whose backing store is not configured.
var ErrUnavailable = errors.New("store not configured")

// ParamError rejects a request parameter.
type ParamError struct {
	Field string
	Msg   string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func paramError(field, msg string) error {
	return &ParamError{Field: field, Msg: msg}
}
