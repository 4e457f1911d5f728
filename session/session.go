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

// Package session implements the client and server halves of the
// AngelWhisper handshake state machine: the four-frame key-agreement
// (Hello -> Welcome -> Initiate -> Ready) and the symmetric Message
// sealing/opening that follows it.
package session

import (
	"time"

	"gitlab.com/yawning/angelwhisper.git/crypto"
)

// State is a session's position in the handshake state machine. Both
// roles start in Fresh when constructed: the client stays Fresh through
// Hello and Initiate until it reads Ready; the server stays Fresh from
// Hello receipt through Welcome until it emits Ready.
type State int

const (
	// StateFresh is the initial state, before the handshake completes.
	StateFresh State = iota
	// StateReady means the session is established; Messages can flow.
	StateReady
	// StateError is terminal: the session is dead and awaits reaping. It
	// never recovers.
	StateError
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "Fresh"
	case StateReady:
		return "Ready"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// defaultLifetime is how long a session is usable after creation, absent
// an override.
const defaultLifetime = 34 * time.Minute

// handshakeSoftTimeout bounds how long a server-side session may sit in
// StateFresh between Hello and a valid Initiate.
const handshakeSoftTimeout = 3 * time.Minute

// nullBytes is the Hello padding: it must be strictly larger than the
// Welcome frame to prevent the handshake being used as an amplification
// vector.
var nullBytes = make([]byte, 256)

// readyLiteral is the fixed Ready plaintext both sides agree on.
var readyLiteral = []byte("My body is ready")

// KeyPair is re-exported for convenience so callers of this package don't
// need to import crypto directly just to hold a long-term identity.
type KeyPair = crypto.KeyPair
