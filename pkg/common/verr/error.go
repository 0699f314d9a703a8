// Copyright 2024 KestrelDB
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package verr defines the error taxonomy of the aggregation engine.
// Every error produced by the engine carries one of the codes below;
// all of them abort the aggregation request that raised them.
package verr

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

type Code uint16

const (
	ErrInternal Code = iota + 1
	ErrInvalidInput

	// ErrEncoding reports a malformed value met during group key
	// encoding or decoding.
	ErrEncoding
	// ErrUnsupportedFunction reports a function descriptor without a
	// registered specialization. Raised at setup, never per row.
	ErrUnsupportedFunction
	// ErrOverflow reports arithmetic overflow during update, merge or
	// finalize. The engine never wraps silently.
	ErrOverflow
	// ErrOrderingViolation reports out-of-order input detected by the
	// stream aggregation executor.
	ErrOrderingViolation
	// ErrMergeTypeMismatch reports an attempt to merge partial states
	// built by incompatible function specializations.
	ErrMergeTypeMismatch
)

var codeNames = map[Code]string{
	ErrInternal:            "internal error",
	ErrInvalidInput:        "invalid input",
	ErrEncoding:            "encoding error",
	ErrUnsupportedFunction: "unsupported aggregate function",
	ErrOverflow:            "arithmetic overflow",
	ErrOrderingViolation:   "ordering violation",
	ErrMergeTypeMismatch:   "merge type mismatch",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown error code %d", uint16(c))
}

// Error is the coded error type of the engine. Use the New* constructors;
// the zero value is not a valid error.
type Error struct {
	code    Code
	message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Code() Code {
	return e.code
}

func newError(code Code, format string, args ...any) error {
	return errors.WithStack(&Error{
		code:    code,
		message: fmt.Sprintf(format, args...),
	})
}

func NewInternal(format string, args ...any) error {
	return newError(ErrInternal, format, args...)
}

func NewInvalidInput(format string, args ...any) error {
	return newError(ErrInvalidInput, format, args...)
}

func NewEncoding(format string, args ...any) error {
	return newError(ErrEncoding, format, args...)
}

func NewUnsupportedFunction(format string, args ...any) error {
	return newError(ErrUnsupportedFunction, format, args...)
}

func NewOverflow(format string, args ...any) error {
	return newError(ErrOverflow, format, args...)
}

func NewOrderingViolation(format string, args ...any) error {
	return newError(ErrOrderingViolation, format, args...)
}

func NewMergeTypeMismatch(format string, args ...any) error {
	return newError(ErrMergeTypeMismatch, format, args...)
}

// CodeOf returns the engine code carried by err, or ErrInternal when err
// did not originate here.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ErrInternal
}

func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.code == code
}
