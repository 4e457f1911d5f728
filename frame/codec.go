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

package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrIncomplete is returned by Decode when the buffer does not yet hold a
// complete frame. It is not a protocol error: callers should simply wait
// for more bytes and try again.
var ErrIncomplete = errors.New("frame: incomplete, need more data")

// BadFrameError is returned by Decode when the buffered bytes can never
// form a valid frame: a malformed header, an invalid kind, or a length
// prefix outside policy bounds.
type BadFrameError struct {
	Reason string
}

func (e *BadFrameError) Error() string {
	return fmt.Sprintf("frame: bad frame: %s", e.Reason)
}

// DefaultMaxFrameLength bounds the accepted length-prefix value to guard
// against an attacker using an oversized announced length to force large
// allocations or amplify decryption cost. 1 MiB comfortably covers any
// realistic Message payload.
const DefaultMaxFrameLength = 1 << 20

// Decoder incrementally parses frames out of a growing byte buffer fed by
// a streaming byte source. It tolerates being handed the input one byte
// at a time or in arbitrary chunks.
type Decoder struct {
	buf         bytes.Buffer
	maxFrameLen uint32
}

// NewDecoder returns a Decoder that rejects frames whose announced length
// exceeds maxFrameLen. A maxFrameLen of 0 selects DefaultMaxFrameLength.
func NewDecoder(maxFrameLen uint32) *Decoder {
	if maxFrameLen == 0 {
		maxFrameLen = DefaultMaxFrameLength
	}
	return &Decoder{maxFrameLen: maxFrameLen}
}

// Feed appends newly received bytes to the decoder's internal buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf.Write(p)
}

// Decode attempts to pull one complete Frame out of the buffered bytes.
//
//   - Fewer than 4 bytes buffered: returns (nil, ErrIncomplete), buffer
//     untouched.
//   - Length prefix read but fewer than 4+L bytes buffered: returns
//     (nil, ErrIncomplete), buffer untouched (the length prefix is peeked,
//     not consumed, so a retry after more Feed calls re-reads it).
//   - Enough bytes buffered: consumes exactly 4+L bytes. A malformed
//     header (truncated id/nonce/kind) or invalid kind is a *BadFrameError;
//     a well-formed frame is returned with a nil error.
func (d *Decoder) Decode() (*Frame, error) {
	avail := d.buf.Bytes()
	if len(avail) < lengthPrefixSize {
		return nil, ErrIncomplete
	}

	length := binary.BigEndian.Uint32(avail[:lengthPrefixSize])
	if length < HeaderSize {
		return nil, &BadFrameError{Reason: fmt.Sprintf("announced length %d shorter than header", length)}
	}
	if length > d.maxFrameLen {
		return nil, &BadFrameError{Reason: fmt.Sprintf("announced length %d exceeds policy maximum %d", length, d.maxFrameLen)}
	}

	total := lengthPrefixSize + int(length)
	if len(avail) < total {
		return nil, ErrIncomplete
	}

	// Now that the full frame is known to be buffered, consume it.
	raw := make([]byte, total)
	if _, err := d.buf.Read(raw); err != nil {
		return nil, fmt.Errorf("frame: read buffered frame: %w", err)
	}
	body := raw[lengthPrefixSize:]

	f := &Frame{}
	copy(f.ID[:], body[0:idSize])
	copy(f.Nonce[:], body[idSize:idSize+nonceSize])
	kind := Kind(body[idSize+nonceSize])
	if !kind.Valid() {
		return nil, &BadFrameError{Reason: fmt.Sprintf("invalid kind byte %d", uint8(kind))}
	}
	f.Kind = kind
	if payloadLen := len(body) - HeaderSize; payloadLen > 0 {
		f.Payload = make([]byte, payloadLen)
		copy(f.Payload, body[HeaderSize:])
	}

	return f, nil
}

// Encode writes the 4-byte big-endian length prefix followed by the
// packed frame body.
func Encode(f *Frame) []byte {
	body := f.Pack()
	out := make([]byte, lengthPrefixSize+len(body))
	binary.BigEndian.PutUint32(out[:lengthPrefixSize], uint32(len(body)))
	copy(out[lengthPrefixSize:], body)
	return out
}
