// Package errorx provides errors that carry a registered business code.
package errorx

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Coder describes a registered error code.
type Coder interface {
	Code() int
	HTTPStatus() int
	String() string
	Reference() string
}

// UnknownCode is returned by ParseCoder for errors without a code.
const UnknownCode = 1

type defaultCoder struct {
	code int
	http int
	msg  string
}

func (c defaultCoder) Code() int         { return c.code }
func (c defaultCoder) HTTPStatus() int   { return c.http }
func (c defaultCoder) String() string    { return c.msg }
func (c defaultCoder) Reference() string { return "" }

var (
	unknownCoder = defaultCoder{code: UnknownCode, http: http.StatusInternalServerError, msg: "Internal server error"}

	codeMux sync.RWMutex
	codes   = map[int]Coder{UnknownCode: unknownCoder}
)

// Register adds a coder, replacing any coder with the same code.
func Register(c Coder) {
	if c.Code() == UnknownCode {
		panic("errorx: code 1 is reserved")
	}
	codeMux.Lock()
	defer codeMux.Unlock()
	codes[c.Code()] = c
}

// MustRegister adds a coder and panics if the code is already taken.
func MustRegister(c Coder) {
	if c.Code() == UnknownCode {
		panic("errorx: code 1 is reserved")
	}
	codeMux.Lock()
	defer codeMux.Unlock()
	if _, ok := codes[c.Code()]; ok {
		panic(fmt.Sprintf("errorx: code %d already registered", c.Code()))
	}
	codes[c.Code()] = c
}

type withCode struct {
	err   error
	cause error
	code  int
}

func (w *withCode) Error() string {
	if w.cause == nil {
		return w.err.Error()
	}
	return w.err.Error() + ": " + w.cause.Error()
}

func (w *withCode) Unwrap() error { return w.cause }

// WithCode creates a coded error.
func WithCode(code int, format string, args ...any) error {
	return &withCode{err: fmt.Errorf(format, args...), code: code}
}

// WrapC attaches a code and message to err. A nil err stays nil.
func WrapC(err error, code int, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &withCode{err: fmt.Errorf(format, args...), cause: err, code: code}
}

// ParseCoder returns the coder of the outermost coded error in err's chain.
func ParseCoder(err error) Coder {
	if err == nil {
		return nil
	}
	var wc *withCode
	if errors.As(err, &wc) {
		codeMux.RLock()
		defer codeMux.RUnlock()
		if c, ok := codes[wc.code]; ok {
			return c
		}
	}
	return unknownCoder
}

// IsCode reports whether any error in err's chain carries code.
func IsCode(err error, code int) bool {
	for err != nil {
		var wc *withCode
		if !errors.As(err, &wc) {
			return false
		}
		if wc.code == code {
			return true
		}
		err = wc.cause
	}
	return false
}
