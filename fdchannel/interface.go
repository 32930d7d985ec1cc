/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package fdchannel transports accepted client file descriptors from the
// master process to one worker process over a local socketpair via
// SCM_RIGHTS. Each Channel is a single bidirectional socketpair created
// before the worker is spawned; the master keeps one end, the worker's
// dispatch loop inherits the other.
package fdchannel

import "errors"

// ErrTransient marks a short read, a truncated control message, or a
// control message of the wrong type: the caller should discard the event
// and keep looping.
var ErrTransient = errors.New("fdchannel: transient receive error")

// ErrClosed marks a persistent failure (EOF, broken pipe): the master end
// is gone and the worker should begin shutting down.
var ErrClosed = errors.New("fdchannel: channel closed")

// Channel is one endpoint of a master<->worker descriptor-passing socket.
type Channel interface {
	// SendFD transmits fd plus a one-byte filler payload. The caller
	// retains ownership of fd and must close its own copy afterward;
	// SendFD does not close fd.
	SendFD(fd int) error

	// RecvFD blocks for the next descriptor. On success it returns a new
	// fd referring to the same kernel file description as the sender's.
	RecvFD() (int, error)

	// Close releases the local socket end. Calls after the first do
	// nothing and return nil.
	Close() error

	// Fd exposes the underlying socket descriptor, needed to hand it to
	// exec.Cmd.ExtraFiles when spawning the worker that owns the other
	// end.
	Fd() int
}

// New creates a connected pair of channel endpoints: index 0 is meant to
// stay with the master, index 1 is meant to be inherited by the worker
// across its re-exec.
func New() (master Channel, worker Channel, err error) {
	return newSocketpair()
}

// FromFd wraps an already-open, already-connected socket fd (e.g. one
// inherited via exec.Cmd.ExtraFiles) as a Channel endpoint.
func FromFd(fd int) Channel {
	return &channel{fd: fd}
}
