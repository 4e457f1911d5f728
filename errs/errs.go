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

// Package errs implements the AngelWhisper error taxonomy shared by every
// other package in this module: a typed Kind discriminant plus an
// Error wrapping an optional cause. Kept separate from the root package so
// any internal package (session, registry, dispatch, ...) can depend on it
// without creating an import cycle through the root AngelSystem type.
package errs

import "fmt"

// Kind discriminates the AngelWhisper error taxonomy. Kind and the text
// Error.Error returns are for local logging, metrics and tests; neither is
// placed on the wire.
type Kind int

const (
	// KindBadFrame: header malformed or kind byte invalid.
	KindBadFrame Kind = iota + 1
	// KindDecryptionFailed: MAC failure opening a sealed box.
	KindDecryptionFailed
	// KindInvalidHelloFrame: Hello opened but padding length was wrong.
	KindInvalidHelloFrame
	// KindInvalidWelcomeFrame: Welcome opened but plaintext length was wrong.
	KindInvalidWelcomeFrame
	// KindInvalidInitiateFrame: Initiate inner structure or vouch failed.
	KindInvalidInitiateFrame
	// KindInvalidReadyFrame: Ready plaintext did not match the literal.
	KindInvalidReadyFrame
	// KindInvalidSessionState: frame arrived for the wrong state or an
	// absent session.
	KindInvalidSessionState
	// KindExpiredSession: session lifetime or handshake soft-timeout exceeded.
	KindExpiredSession
	// KindHandshakeFailed: composite fallback for handshake failures.
	KindHandshakeFailed
	// KindSessionNotFound: missing session, or an authenticator rejection
	// deliberately reported the same way to avoid an oracle.
	KindSessionNotFound
	// KindNotImplemented: handler/route surface not wired up.
	KindNotImplemented
	// KindInvalidRoute: route-prefixed payload shorter than 8 bytes, or
	// no handler registered for the route key.
	KindInvalidRoute
	// KindServerFault: internal fault (e.g. lock poisoning, registry
	// conflict); the affected session should be abandoned.
	KindServerFault
)

func (k Kind) String() string {
	switch k {
	case KindBadFrame:
		return "BadFrame"
	case KindDecryptionFailed:
		return "DecryptionFailed"
	case KindInvalidHelloFrame:
		return "InvalidHelloFrame"
	case KindInvalidWelcomeFrame:
		return "InvalidWelcomeFrame"
	case KindInvalidInitiateFrame:
		return "InvalidInitiateFrame"
	case KindInvalidReadyFrame:
		return "InvalidReadyFrame"
	case KindInvalidSessionState:
		return "InvalidSessionState"
	case KindExpiredSession:
		return "ExpiredSession"
	case KindHandshakeFailed:
		return "HandshakeFailed"
	case KindSessionNotFound:
		return "SessionNotFound"
	case KindNotImplemented:
		return "NotImplemented"
	case KindInvalidRoute:
		return "InvalidRoute"
	case KindServerFault:
		return "ServerFault"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the error type every AngelWhisper package returns for
// protocol-level failures. It carries a Kind for categorization plus an
// optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("angelwhisper: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("angelwhisper: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, errs.NewError(errs.KindExpiredSession, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError constructs an *Error of the given kind.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WrapError constructs an *Error of the given kind wrapping cause.
func WrapError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}
