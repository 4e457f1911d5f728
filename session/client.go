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
	"bytes"
	"time"

	"gitlab.com/yawning/angelwhisper.git/crypto"
	"gitlab.com/yawning/angelwhisper.git/errs"
	"gitlab.com/yawning/angelwhisper.git/frame"
)

// Client is the client-side half of the handshake state machine. It is
// created per session and discarded (along with its short-term key pair)
// when the session ends.
type Client struct {
	shortTerm    crypto.KeyPair
	ourLongTerm  crypto.KeyPair
	serverLong   crypto.PublicKey
	serverShort  crypto.PublicKey
	state        State
	createdAt    time.Time
	expireAt     time.Time
}

// NewClient generates a fresh short-term key pair and returns a Client in
// StateFresh, addressed to serverLongTermPK and identifying as
// ourLongTerm.
func NewClient(serverLongTermPK crypto.PublicKey, ourLongTerm crypto.KeyPair) (*Client, error) {
	st, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Client{
		shortTerm:   st,
		ourLongTerm: ourLongTerm,
		serverLong:  serverLongTermPK,
		state:       StateFresh,
		createdAt:   now,
		expireAt:    now.Add(defaultLifetime),
	}, nil
}

// ID returns the client short-term public key; it is the Frame.ID used
// throughout the session's lifetime.
func (c *Client) ID() crypto.PublicKey {
	return c.shortTerm.Public
}

// State returns the client's current handshake state.
func (c *Client) State() State {
	return c.state
}

// MakeHello builds the Hello frame. It does not change state; Hello may
// be sent (and, per the replayed-Hello scenario, rejected by the server)
// any number of times while StateFresh holds.
func (c *Client) MakeHello() (*frame.Frame, error) {
	nonce, err := crypto.GenerateNonce()
	if err != nil {
		return nil, err
	}
	payload := crypto.Seal(nullBytes, nonce, c.serverLong, c.shortTerm.Secret)
	return &frame.Frame{
		ID:      c.shortTerm.Public,
		Nonce:   nonce,
		Kind:    frame.KindHello,
		Payload: payload,
	}, nil
}

// MakeInitiate validates welcomeFrame, records the server's short-term
// public key, and builds the Initiate frame proving our long-term
// identity controls our short-term key. Any decryption or length failure
// transitions the client to StateError.
func (c *Client) MakeInitiate(welcomeFrame *frame.Frame) (*frame.Frame, error) {
	if c.state != StateFresh {
		return nil, errs.NewError(errs.KindInvalidSessionState, "MakeInitiate called outside StateFresh")
	}
	if welcomeFrame.Kind != frame.KindWelcome {
		return nil, errs.NewError(errs.KindInvalidWelcomeFrame, "expected Welcome frame")
	}

	opened, ok := crypto.Open(welcomeFrame.Payload, welcomeFrame.Nonce, c.serverLong, c.shortTerm.Secret)
	if !ok {
		c.state = StateError
		return nil, errs.NewError(errs.KindDecryptionFailed, "could not open Welcome box")
	}
	if len(opened) != crypto.KeySize {
		c.state = StateError
		return nil, errs.NewError(errs.KindInvalidWelcomeFrame, "Welcome plaintext was not a 32-byte public key")
	}
	copy(c.serverShort[:], opened)

	// Vouch: prove to the server's short-term key that our long-term key
	// controls our short-term key.
	vouchNonce, err := crypto.GenerateNonce()
	if err != nil {
		c.state = StateError
		return nil, err
	}
	vouchBox := crypto.Seal(c.shortTerm.Public[:], vouchNonce, c.serverShort, c.ourLongTerm.Secret)

	inner := make([]byte, 0, crypto.KeySize+len(vouchNonce)+len(vouchBox))
	inner = append(inner, c.ourLongTerm.Public[:]...)
	inner = append(inner, vouchNonce[:]...)
	inner = append(inner, vouchBox...)

	initiateNonce, err := crypto.GenerateNonce()
	if err != nil {
		c.state = StateError
		return nil, err
	}
	payload := crypto.Seal(inner, initiateNonce, c.serverShort, c.shortTerm.Secret)

	return &frame.Frame{
		ID:      welcomeFrame.ID,
		Nonce:   initiateNonce,
		Kind:    frame.KindInitiate,
		Payload: payload,
	}, nil
}

// ReadReady opens readyFrame and, on a matching literal, transitions the
// client to StateReady.
func (c *Client) ReadReady(readyFrame *frame.Frame) error {
	if c.state != StateFresh {
		return errs.NewError(errs.KindInvalidSessionState, "ReadReady called outside StateFresh")
	}
	if readyFrame.Kind != frame.KindReady {
		return errs.NewError(errs.KindInvalidReadyFrame, "expected Ready frame")
	}

	opened, ok := crypto.Open(readyFrame.Payload, readyFrame.Nonce, c.serverShort, c.shortTerm.Secret)
	if !ok {
		c.state = StateError
		return errs.NewError(errs.KindDecryptionFailed, "could not open Ready box")
	}
	if !bytes.Equal(opened, readyLiteral) {
		c.state = StateError
		return errs.NewError(errs.KindInvalidReadyFrame, "Ready plaintext mismatch")
	}

	c.state = StateReady
	return nil
}

// CanSend reports whether the session is established and unexpired.
func (c *Client) CanSend() bool {
	return c.state == StateReady && time.Now().Before(c.expireAt)
}

// MakeMessage seals data for the server under a fresh nonce. It requires
// CanSend.
func (c *Client) MakeMessage(data []byte) (*frame.Frame, error) {
	if !c.CanSend() {
		return nil, errs.NewError(errs.KindInvalidSessionState, "MakeMessage called when session cannot send")
	}
	nonce, err := crypto.GenerateNonce()
	if err != nil {
		return nil, err
	}
	payload := crypto.Seal(data, nonce, c.serverShort, c.shortTerm.Secret)
	return &frame.Frame{
		ID:      c.shortTerm.Public,
		Nonce:   nonce,
		Kind:    frame.KindMessage,
		Payload: payload,
	}, nil
}

// ReadMsg opens a Message frame sent by the server.
func (c *Client) ReadMsg(f *frame.Frame) ([]byte, error) {
	opened, ok := crypto.Open(f.Payload, f.Nonce, c.serverShort, c.shortTerm.Secret)
	if !ok {
		return nil, errs.NewError(errs.KindDecryptionFailed, "could not open Message box")
	}
	return opened, nil
}

// ExpireAt returns the absolute time after which the session stops
// accepting sends, regardless of state.
func (c *Client) ExpireAt() time.Time {
	return c.expireAt
}
