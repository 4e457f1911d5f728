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

// Package clientengine drives the client half of the handshake and message
// exchange over an arbitrary byte stream (net.Conn or anything else
// satisfying io.ReadWriter). Callers call Authenticate once and Request
// repeatedly; the engine does not reconnect or rehandshake on its own, so
// an expired or rejected session is replaced by calling Reauthenticate.
package clientengine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"gitlab.com/yawning/angelwhisper.git/crypto"
	"gitlab.com/yawning/angelwhisper.git/errs"
	"gitlab.com/yawning/angelwhisper.git/frame"
	"gitlab.com/yawning/angelwhisper.git/session"
)

// readChunkSize is how much we ask the underlying stream for per Read()
// call while accumulating a frame.
const readChunkSize = 4096

// Engine is the client side of an AngelWhisper session over a single
// underlying stream. Concurrent Request calls are serialised by an
// internal mutex: the protocol is one in-flight request at a time per
// session, matching the four-frame handshake's own one-shot nature.
type Engine struct {
	conn             io.ReadWriter
	serverLongTermPK crypto.PublicKey
	ourLongTerm      crypto.KeyPair

	mu      sync.Mutex
	client  *session.Client
	decoder *frame.Decoder
	log     *slog.Logger
}

// Config bundles the values New needs to build an Engine.
type Config struct {
	Conn             io.ReadWriter
	ServerLongTermPK crypto.PublicKey
	OurLongTerm      crypto.KeyPair
	Logger           *slog.Logger
	MaxFrameLength   uint32
}

// New returns an Engine in its unauthenticated state. Call Authenticate
// before Request.
func New(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	maxLen := cfg.MaxFrameLength
	if maxLen == 0 {
		maxLen = frame.DefaultMaxFrameLength
	}
	return &Engine{
		conn:             cfg.Conn,
		serverLongTermPK: cfg.ServerLongTermPK,
		ourLongTerm:      cfg.OurLongTerm,
		decoder:          frame.NewDecoder(maxLen),
		log:              log,
	}
}

// Authenticate runs the four-frame Hello/Welcome/Initiate/Ready handshake
// against the configured server, generating a fresh short-term key pair
// for this attempt. It replaces any previous session state, so it is also
// how a caller recovers from StateError.
func (e *Engine) Authenticate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.authenticateLocked(ctx)
}

// Reauthenticate discards the current session (if any) and performs a
// fresh handshake, the way a caller should respond to KindExpiredSession
// or KindInvalidSessionState surfacing from Request.
func (e *Engine) Reauthenticate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.client = nil
	return e.authenticateLocked(ctx)
}

func (e *Engine) authenticateLocked(ctx context.Context) error {
	e.client = nil
	client, err := session.NewClient(e.serverLongTermPK, e.ourLongTerm)
	if err != nil {
		return err
	}

	hello, err := client.MakeHello()
	if err != nil {
		return err
	}
	if err := e.writeFrame(hello); err != nil {
		return err
	}
	welcome, err := e.readFrame(ctx)
	if err != nil {
		return err
	}

	initiate, err := client.MakeInitiate(welcome)
	if err != nil {
		return err
	}
	if err := e.writeFrame(initiate); err != nil {
		return err
	}
	ready, err := e.readFrame(ctx)
	if err != nil {
		return err
	}
	if err := client.ReadReady(ready); err != nil {
		return err
	}

	e.client = client
	return nil
}

// Request seals payload as a Message frame, sends it, and returns the
// decrypted reply. It requires a prior successful Authenticate.
func (e *Engine) Request(ctx context.Context, payload []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		return nil, errs.NewError(errs.KindInvalidSessionState, "Request called before Authenticate")
	}
	msg, err := e.client.MakeMessage(payload)
	if err != nil {
		return nil, err
	}
	if err := e.writeFrame(msg); err != nil {
		return nil, err
	}
	reply, err := e.readFrame(ctx)
	if err != nil {
		return nil, err
	}
	return e.client.ReadMsg(reply)
}

func (e *Engine) writeFrame(f *frame.Frame) error {
	_, err := e.conn.Write(frame.Encode(f))
	return err
}

// readFrame blocks on the underlying stream until a complete frame has
// been decoded, feeding the decoder a chunk at a time the way
// Obfs4Conn.consumeFramedPackets accumulates a partial frame across reads.
func (e *Engine) readFrame(ctx context.Context) (*frame.Frame, error) {
	for {
		f, err := e.decoder.Decode()
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, frame.ErrIncomplete) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		buf := make([]byte, readChunkSize)
		n, rerr := e.conn.Read(buf)
		if n > 0 {
			e.decoder.Feed(buf[:n])
		}
		if rerr != nil {
			return nil, rerr
		}
	}
}
