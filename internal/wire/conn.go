/*
 * Copyright (c) 2026, AngelWhisper Authors
 * All rights reserved.
 *
 * Redistribution and use in source and binary forms, with or without
 * modification, are permitted provided that the following conditions are met:
 *
 *  * Redistributions of source code must retain the above copyright notice,
 *    this list of conditions and the following disclaimer.
 *
 *  * Redistributions in binary form must reproduce the above copyright notice,
 *    this list of conditions and the following disclaimer in the documentation
 *    and/or other materials provided with the distribution.
 *
 * THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
 * AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
 * IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
 * ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
 * LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
 * CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
 * SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
 * INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
 * CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
 * ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
 * POSSIBILITY OF SUCH DAMAGE.
 */

// Package wire adapts a raw net.Conn into a FrameConn that reads and
// writes whole frame.Frame values, accumulating partial reads the same
// way Obfs4Conn buffered a partially received link-layer frame.
package wire

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"gitlab.com/yawning/angelwhisper.git/frame"
)

// readChunkSize is how much is requested from the underlying net.Conn per
// Read call while accumulating a frame.
const readChunkSize = 4096

// FrameConn wraps a net.Conn, presenting ReadFrame/WriteFrame instead of
// raw bytes. It is safe for one concurrent reader and one concurrent
// writer, matching net.Conn's own concurrency contract.
type FrameConn struct {
	conn    net.Conn
	decoder *frame.Decoder

	mu     sync.Mutex
	closed bool
}

// NewFrameConn wraps conn. maxFrameLen of 0 selects
// frame.DefaultMaxFrameLength.
func NewFrameConn(conn net.Conn, maxFrameLen uint32) *FrameConn {
	return &FrameConn{
		conn:    conn,
		decoder: frame.NewDecoder(maxFrameLen),
	}
}

// ReadFrame blocks until one complete frame has been decoded off the
// underlying connection.
func (c *FrameConn) ReadFrame() (*frame.Frame, error) {
	buf := make([]byte, readChunkSize)
	for {
		f, err := c.decoder.Decode()
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, frame.ErrIncomplete) {
			return nil, err
		}

		n, rerr := c.conn.Read(buf)
		if n > 0 {
			c.decoder.Feed(buf[:n])
		}
		if rerr != nil {
			return nil, rerr
		}
	}
}

// WriteFrame encodes and writes f in a single underlying Write call.
func (c *FrameConn) WriteFrame(f *frame.Frame) error {
	_, err := c.conn.Write(frame.Encode(f))
	return err
}

// SetDeadline forwards to the underlying net.Conn.
func (c *FrameConn) SetDeadline(t time.Time) error { return c.conn.SetDeadline(t) }

// SetReadDeadline forwards to the underlying net.Conn.
func (c *FrameConn) SetReadDeadline(t time.Time) error { return c.conn.SetReadDeadline(t) }

// RemoteAddr forwards to the underlying net.Conn.
func (c *FrameConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close closes the underlying net.Conn. Safe to call more than once.
func (c *FrameConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// DrainAndClose discards up to maxDiscard bytes for up to delay before
// closing, the same "don't slam the connection shut right after a
// handshake failure" courtesy Obfs4Conn.closeAfterDelay extended to
// callers, minus the randomized jitter obfs4 used to blend in with cover
// traffic (AngelWhisper's wire format has no traffic-shaping goal).
func (c *FrameConn) DrainAndClose(delay time.Duration, maxDiscard int) {
	defer c.Close()
	if err := c.conn.SetReadDeadline(time.Now().Add(delay)); err != nil {
		return
	}
	var buf bytes.Buffer
	lr := io.LimitReader(c.conn, int64(maxDiscard))
	_, _ = io.Copy(&buf, lr)
}
