// Copyright 2025 The Weft Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package visit

import (
	"errors"
	"fmt"

	"weft.dev/go/internal/core/value"
)

// ErrorCode indicates the category of error a run terminated with.
//
// Handler errors raised by delegates are stored and re-raised as-is; the
// codes below cover the conditions the engine itself produces.
type ErrorCode int8

const (
	// HandlerError wraps a panic recovered from a delegate handler.
	HandlerError ErrorCode = iota // handler

	// DeadlockError reports a cycle the dedup policy declined to break.
	DeadlockError // deadlock

	// IncompleteError reports a synchronous extraction from a run that
	// had pending handlers at the moment of the call.
	IncompleteError // incomplete

	// UsageError reports API misuse, such as querying results before
	// the run finished.
	UsageError // usage
)

func (c ErrorCode) String() string {
	switch c {
	case HandlerError:
		return "handler"
	case DeadlockError:
		return "deadlock"
	case IncompleteError:
		return "incomplete"
	case UsageError:
		return "usage"
	}
	return "unknown"
}

// An Error is a coded failure produced by the engine itself.
type Error struct {
	Code ErrorCode
	Msg  string
	Err  error // underlying cause, if any
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Msg
	case e.Msg == "":
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func errDeadlock(v value.Value) *Error {
	return &Error{
		Code: DeadlockError,
		Msg:  fmt.Sprintf("deadlock: %s value depends on its own unfinished result", value.KindOf(v)),
	}
}

func errIncomplete() *Error {
	return &Error{
		Code: IncompleteError,
		Msg:  "visit did not finish synchronously",
	}
}

func errUsage(format string, args ...interface{}) *Error {
	return &Error{
		Code: UsageError,
		Msg:  fmt.Sprintf(format, args...),
	}
}

func errHandlerPanic(v value.Value, recovered interface{}) *Error {
	return &Error{
		Code: HandlerError,
		Msg:  fmt.Sprintf("handler for %s value panicked: %v", value.KindOf(v), recovered),
	}
}

// CodeOf reports the engine error code carried by err, unwrapping as
// needed. The second result is false for plain handler-supplied errors.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// IsDeadlock reports whether err is a cycle the dedup policy declined to
// break.
func IsDeadlock(err error) bool {
	c, ok := CodeOf(err)
	return ok && c == DeadlockError
}

// IsIncomplete reports whether err is a premature synchronous extraction.
func IsIncomplete(err error) bool {
	c, ok := CodeOf(err)
	return ok && c == IncompleteError
}

// IsUsage reports whether err is an API misuse error.
func IsUsage(err error) bool {
	c, ok := CodeOf(err)
	return ok && c == UsageError
}
