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

package session

import (
	"time"

	"gitlab.com/yawning/angelwhisper.git/crypto"
	"gitlab.com/yawning/angelwhisper.git/errs"
	"gitlab.com/yawning/angelwhisper.git/frame"
)

// innerMinLen is the minimum length of the Initiate inner plaintext:
// 32 (client long-term pk) + 24 (vouch nonce) + 48 (vouch ciphertext).
// The source this protocol was distilled from is ambiguous between exact
// and minimum length here; this module follows its most recent revision
// and accepts >=innerMinLen, parsing fixed offsets off the front.
const innerMinLen = crypto.KeySize + crypto.NonceSize + crypto.KeySize + crypto.Overhead

// Server is the server-side half of the handshake state machine, keyed
// in the registry by ClientShortTermPK.
type Server struct {
	shortTerm       crypto.KeyPair
	clientShortTerm crypto.PublicKey
	clientLongTerm  crypto.PublicKey
	state           State
	createdAt       time.Time
	expireAt        time.Time
}

// NewServer generates a fresh server-side short-term key pair for the
// session identified by clientShortTermPK (taken from the Hello frame's
// id field).
func NewServer(clientShortTermPK crypto.PublicKey) (*Server, error) {
	st, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Server{
		shortTerm:       st,
		clientShortTerm: clientShortTermPK,
		state:           StateFresh,
		createdAt:       now,
		expireAt:        now.Add(defaultLifetime),
	}, nil
}

// ID returns the client short-term public key this session is keyed by.
func (s *Server) ID() crypto.PublicKey {
	return s.clientShortTerm
}

// State returns the server's current handshake state.
func (s *Server) State() State {
	return s.state
}

// CreatedAt returns when this session was constructed (on Hello receipt).
func (s *Server) CreatedAt() time.Time {
	return s.createdAt
}

// ExpireAt returns the absolute time this session stops being usable.
func (s *Server) ExpireAt() time.Time {
	return s.expireAt
}

// ClientLongTermPK returns the client's long-term public key, valid only
// after MakeReady has succeeded (ValidateInitiate returns the key but does
// not record it).
func (s *Server) ClientLongTermPK() crypto.PublicKey {
	return s.clientLongTerm
}

// MakeWelcome decrypts helloFrame's padding, checks its length, and
// replies with the server's short-term public key sealed for the
// client's short-term key.
func (s *Server) MakeWelcome(helloFrame *frame.Frame, serverLongTermSK crypto.SecretKey) (*frame.Frame, error) {
	if s.state != StateFresh {
		return nil, errs.NewError(errs.KindInvalidSessionState, "MakeWelcome called outside StateFresh")
	}
	if helloFrame.Kind != frame.KindHello {
		return nil, errs.NewError(errs.KindInvalidHelloFrame, "expected Hello frame")
	}

	opened, ok := crypto.Open(helloFrame.Payload, helloFrame.Nonce, s.clientShortTerm, serverLongTermSK)
	if !ok {
		s.state = StateError
		return nil, errs.NewError(errs.KindDecryptionFailed, "could not open Hello box")
	}
	if len(opened) != 256 {
		s.state = StateError
		return nil, errs.NewError(errs.KindInvalidHelloFrame, "Hello padding was not 256 bytes")
	}

	nonce, err := crypto.GenerateNonce()
	if err != nil {
		return nil, err
	}
	payload := crypto.Seal(s.shortTerm.Public[:], nonce, s.clientShortTerm, serverLongTermSK)

	return &frame.Frame{
		ID:      helloFrame.ID,
		Nonce:   nonce,
		Kind:    frame.KindWelcome,
		Payload: payload,
	}, nil
}

// ValidateInitiate opens initiateFrame's outer box, parses the inner
// client-long-term-pk/vouch structure, and opens the vouch box to confirm
// the client controls both the asserted long-term identity and the
// short-term key it is using. It returns the client's long-term public
// key on success.
func (s *Server) ValidateInitiate(initiateFrame *frame.Frame) (crypto.PublicKey, error) {
	var zero crypto.PublicKey
	if initiateFrame.Kind != frame.KindInitiate {
		return zero, errs.NewError(errs.KindInvalidInitiateFrame, "expected Initiate frame")
	}

	inner, ok := crypto.Open(initiateFrame.Payload, initiateFrame.Nonce, s.clientShortTerm, s.shortTerm.Secret)
	if !ok {
		return zero, errs.NewError(errs.KindDecryptionFailed, "could not open Initiate outer box")
	}
	if len(inner) < innerMinLen {
		return zero, errs.NewError(errs.KindInvalidInitiateFrame, "Initiate inner plaintext too short")
	}

	var clientLongTermPK crypto.PublicKey
	copy(clientLongTermPK[:], inner[0:crypto.KeySize])

	var vouchNonce crypto.Nonce
	copy(vouchNonce[:], inner[crypto.KeySize:crypto.KeySize+crypto.NonceSize])

	vouchBox := inner[crypto.KeySize+crypto.NonceSize:]

	vouchPlain, ok := crypto.Open(vouchBox, vouchNonce, clientLongTermPK, s.shortTerm.Secret)
	if !ok {
		return zero, errs.NewError(errs.KindInvalidInitiateFrame, "could not open vouch box")
	}
	if len(vouchPlain) != crypto.KeySize {
		return zero, errs.NewError(errs.KindInvalidInitiateFrame, "vouch plaintext was not a 32-byte public key")
	}
	var vouchedShortTerm crypto.PublicKey
	copy(vouchedShortTerm[:], vouchPlain)
	if vouchedShortTerm != s.clientShortTerm {
		return zero, errs.NewError(errs.KindInvalidInitiateFrame, "vouch did not match client short-term key")
	}

	return clientLongTermPK, nil
}

// MakeReady records clientLongTermPK, transitions to StateReady, and
// emits the Ready frame. It enforces the handshake soft timeout: an
// Initiate arriving more than handshakeSoftTimeout after session creation
// is rejected as expired.
func (s *Server) MakeReady(initiateFrame *frame.Frame, clientLongTermPK crypto.PublicKey) (*frame.Frame, error) {
	if s.state != StateFresh {
		return nil, errs.NewError(errs.KindInvalidSessionState, "MakeReady called outside StateFresh")
	}
	if initiateFrame.Kind != frame.KindInitiate {
		return nil, errs.NewError(errs.KindInvalidInitiateFrame, "expected Initiate frame")
	}
	if time.Since(s.createdAt) > handshakeSoftTimeout {
		s.state = StateError
		return nil, errs.NewError(errs.KindExpiredSession, "Initiate arrived after handshake soft timeout")
	}

	s.clientLongTerm = clientLongTermPK
	s.state = StateReady

	nonce, err := crypto.GenerateNonce()
	if err != nil {
		return nil, err
	}
	payload := crypto.Seal(readyLiteral, nonce, s.clientShortTerm, s.shortTerm.Secret)

	return &frame.Frame{
		ID:      initiateFrame.ID,
		Nonce:   nonce,
		Kind:    frame.KindReady,
		Payload: payload,
	}, nil
}

// CanSend reports whether the session is established and unexpired.
func (s *Server) CanSend() bool {
	return s.state == StateReady && time.Now().Before(s.expireAt)
}

// MakeMessage seals data for the client under a fresh nonce.
func (s *Server) MakeMessage(data []byte) (*frame.Frame, error) {
	if !s.CanSend() {
		return nil, errs.NewError(errs.KindInvalidSessionState, "MakeMessage called when session cannot send")
	}
	nonce, err := crypto.GenerateNonce()
	if err != nil {
		return nil, err
	}
	payload := crypto.Seal(data, nonce, s.clientShortTerm, s.shortTerm.Secret)
	return &frame.Frame{
		ID:      s.clientShortTerm,
		Nonce:   nonce,
		Kind:    frame.KindMessage,
		Payload: payload,
	}, nil
}

// ReadMsg opens a Message frame sent by the client.
func (s *Server) ReadMsg(f *frame.Frame) ([]byte, error) {
	opened, ok := crypto.Open(f.Payload, f.Nonce, s.clientShortTerm, s.shortTerm.Secret)
	if !ok {
		return nil, errs.NewError(errs.KindDecryptionFailed, "could not open Message box")
	}
	return opened, nil
}
