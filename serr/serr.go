// Package serr defines the error codes returned by the scheduler core
// and its syscall surface.
package serr

import (
	"errors"
	"fmt"
)

type Terror uint32

const (
	TErrNoError Terror = iota
	TErrInval
	TErrInvalUid
	TErrInvalTickets
	TErrCapacity
	TErrBadTarget
	TErrNotfound
	TErrExists
	TErrError
)

func (err Terror) String() string {
	switch err {
	case TErrNoError:
		return "no error"
	case TErrInval:
		return "invalid argument"
	case TErrInvalUid:
		return "invalid uid"
	case TErrInvalTickets:
		return "invalid ticket count"
	case TErrCapacity:
		return "process table full"
	case TErrBadTarget:
		return "invalid snapshot target"
	case TErrNotfound:
		return "not found"
	case TErrExists:
		return "exists"
	case TErrError:
		return "error"
	default:
		return fmt.Sprintf("unknown error %d", uint32(err))
	}
}

type Err struct {
	ErrCode Terror
	Obj     string
	Err     error
}

func NewErr(code Terror, obj interface{}) *Err {
	return &Err{
		ErrCode: code,
		Obj:     fmt.Sprintf("%v", obj),
		Err:     nil,
	}
}

func NewErrError(error error) *Err {
	err := NewErr(TErrError, "")
	err.Err = error
	return err
}

func (err *Err) Code() Terror {
	return err.ErrCode
}

func (err *Err) Unwrap() error { return err.Err }

func (err *Err) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("{Err: %q Obj: %q (%v)}", err.ErrCode, err.Obj, err.Err)
	}
	return fmt.Sprintf("{Err: %q Obj: %q}", err.ErrCode, err.Obj)
}

func (err *Err) String() string {
	return err.Error()
}

// IsErr reports whether error is (or wraps) an *Err, returning it.
func IsErr(error error) (*Err, bool) {
	var err *Err
	if errors.As(error, &err) {
		return err, true
	}
	return nil, false
}

func IsErrCode(error error, code Terror) bool {
	if err, ok := IsErr(error); ok {
		return err.ErrCode == code
	}
	return false
}
