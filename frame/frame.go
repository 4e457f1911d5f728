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

// Package frame implements the AngelWhisper wire frame: an in-memory
// representation plus a length-prefixed stream codec tolerant of partial
// reads.
//
// Frame layout (57-byte header + opaque payload):
//
//	uint8_t[32] id       client short-term public key
//	uint8_t[24] nonce    fresh random nonce for this frame's payload
//	uint8_t     kind      Hello|Welcome|Initiate|Ready|Message|Termination
//	uint8_t[]   payload
//
// On the wire each frame is preceded by a 4-byte big-endian length of the
// header+payload that follows.
package frame

import "fmt"

// Kind identifies the role of a Frame in the handshake/message protocol.
type Kind uint8

const (
	// KindHello is the client's opening frame.
	KindHello Kind = 1
	// KindWelcome is the server's reply to Hello.
	KindWelcome Kind = 2
	// KindInitiate is the client's identity-proving reply to Welcome.
	KindInitiate Kind = 3
	// KindReady is the server's confirmation that the session is usable.
	KindReady Kind = 4
	// KindMessage carries an application payload once the session is Ready.
	KindMessage Kind = 5
	// KindTermination signals an orderly session teardown.
	KindTermination Kind = 6
)

func (k Kind) String() string {
	switch k {
	case KindHello:
		return "Hello"
	case KindWelcome:
		return "Welcome"
	case KindInitiate:
		return "Initiate"
	case KindReady:
		return "Ready"
	case KindMessage:
		return "Message"
	case KindTermination:
		return "Termination"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the six defined frame kinds.
func (k Kind) Valid() bool {
	return k >= KindHello && k <= KindTermination
}

const (
	idSize     = 32
	nonceSize  = 24
	kindSize   = 1
	// HeaderSize is the fixed 57-byte header every frame carries ahead of
	// its payload.
	HeaderSize = idSize + nonceSize + kindSize

	// lengthPrefixSize is the width of the stream-framing length prefix.
	lengthPrefixSize = 4
)

// Frame is the wire unit: a session id, a fresh nonce, a kind discriminant,
// and an opaque payload (typically a sealed box).
type Frame struct {
	ID      [idSize]byte
	Nonce   [nonceSize]byte
	Kind    Kind
	Payload []byte
}

// Len returns the total encoded size of f, including the 57-byte header
// but excluding the 4-byte stream length prefix.
func (f *Frame) Len() int {
	return HeaderSize + len(f.Payload)
}

// Pack serializes f into wire order: id ‖ nonce ‖ kind ‖ payload.
func (f *Frame) Pack() []byte {
	out := make([]byte, HeaderSize+len(f.Payload))
	copy(out[0:idSize], f.ID[:])
	copy(out[idSize:idSize+nonceSize], f.Nonce[:])
	out[idSize+nonceSize] = byte(f.Kind)
	copy(out[HeaderSize:], f.Payload)
	return out
}
