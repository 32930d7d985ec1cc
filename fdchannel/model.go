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

package fdchannel

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

type channel struct {
	mu sync.Mutex
	fd int
}

func newSocketpair() (Channel, Channel, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("fdchannel: socketpair: %w", err)
	}

	return &channel{fd: fds[0]}, &channel{fd: fds[1]}, nil
}

// filler is the one-byte dummy payload the protocol requires alongside the
// ancillary SCM_RIGHTS control message; its value carries no meaning.
const filler = 'F'

func (c *channel) SendFD(fd int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rights := unix.UnixRights(fd)

	if err := unix.Sendmsg(c.fd, []byte{filler}, rights, nil, 0); err != nil {
		return fmt.Errorf("fdchannel: sendmsg: %w", err)
	}

	return nil
}

func (c *channel) RecvFD() (int, error) {
	buf := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(4))

	c.mu.Lock()
	n, oobn, _, _, err := unix.Recvmsg(c.fd, buf, oob, 0)
	c.mu.Unlock()

	if err != nil {
		return -1, fmt.Errorf("%w: %v", ErrClosed, err)
	}

	if n == 0 && oobn == 0 {
		return -1, ErrClosed
	}

	if n != 1 || oobn == 0 {
		return -1, ErrTransient
	}

	cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil || len(cmsgs) != 1 {
		return -1, ErrTransient
	}

	if cmsgs[0].Header.Level != unix.SOL_SOCKET || cmsgs[0].Header.Type != unix.SCM_RIGHTS {
		return -1, ErrTransient
	}

	fds, err := unix.ParseUnixRights(&cmsgs[0])
	if err != nil || len(fds) != 1 {
		return -1, ErrTransient
	}

	return fds[0], nil
}

func (c *channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fd < 0 {
		return nil
	}

	fd := c.fd
	c.fd = -1

	return unix.Close(fd)
}

func (c *channel) Fd() int {
	return c.fd
}
