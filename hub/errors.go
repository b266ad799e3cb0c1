// Copyright 2026 Edge Climate Systems
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

package hub

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Common errors.
var (
	// ErrNotConnected indicates no transport connection is established.
	ErrNotConnected = errors.New("hub: not connected")

	// ErrTimeout indicates a bus operation timed out. A timeout also marks
	// the connection as lost, so the next operation re-attempts a connect.
	ErrTimeout = errors.New("hub: timeout")

	// ErrNoTransport indicates the hub was built without a transport factory.
	ErrNoTransport = errors.New("hub: transport factory required")
)

// ConnectError indicates connect() or its mandatory probe read failed.
type ConnectError struct {
	Addr string
	Err  error
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("hub: connect %s: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectError) Unwrap() error { return e.Err }

// ReadError indicates a register read failed with a protocol error response
// or an unexpected transport error.
type ReadError struct {
	Register uint16
	Err      error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("hub: read register %d: %v", e.Register, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error { return e.Err }

// WriteError indicates a register write failed with a protocol error response
// or an unexpected transport error.
type WriteError struct {
	Register uint16
	Value    uint16
	Err      error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("hub: write register %d = %d: %v", e.Register, e.Value, e.Err)
}

// Unwrap returns the underlying error.
func (e *WriteError) Unwrap() error { return e.Err }

// VerifyError indicates a write succeeded but the readback disagreed with the
// expected value. It is never folded into WriteError: the write itself did
// not fail.
type VerifyError struct {
	Register uint16
	Wrote    uint16
	Expected uint16
	Got      uint16
}

// Error implements the error interface.
func (e *VerifyError) Error() string {
	return fmt.Sprintf("hub: verify mismatch at register %d: wrote %d, expected %d, got %d",
		e.Register, e.Wrote, e.Expected, e.Got)
}

// IsTimeout reports whether err is a timeout of any flavor: the hub's own
// ErrTimeout, a context deadline, or a transport-level net.Error timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
