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

// Package dispatch implements the server's top-level per-frame request
// handler: it routes an inbound Frame to the right session state
// transition, hands decrypted Message bodies to a pluggable Handler, and
// re-seals the reply. See Handler and Router for the handler contract and
// optional route demultiplexer.
package dispatch

import (
	"context"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"gitlab.com/yawning/angelwhisper.git/auth"
	"gitlab.com/yawning/angelwhisper.git/crypto"
	"gitlab.com/yawning/angelwhisper.git/errs"
	"gitlab.com/yawning/angelwhisper.git/frame"
	"gitlab.com/yawning/angelwhisper.git/internal/angellog"
	"gitlab.com/yawning/angelwhisper.git/internal/angelmetrics"
	"gitlab.com/yawning/angelwhisper.git/registry"
	"gitlab.com/yawning/angelwhisper.git/session"
)

// Dispatcher is the server's top-level request handler, invoked once per
// decoded inbound frame. It enforces single-writer discipline per session
// (via registry.Entry's lock) while keeping cross-session requests
// parallel.
type Dispatcher struct {
	store          *registry.Store
	authenticator  auth.Authenticator
	handler        Handler
	services       Services
	serverLongTerm crypto.KeyPair
	log            *slog.Logger
	helloLimiter   *rate.Limiter
	metrics        *angelmetrics.Metrics
}

// Config bundles the values a Dispatcher needs; HelloRatePerSecond and
// HelloBurst bound how fast new Hello frames are admitted, the Go-native
// analogue of CurveCP's amplification defenses. A zero HelloRatePerSecond
// disables the limiter.
type Config struct {
	Store              *registry.Store
	Authenticator      auth.Authenticator
	Handler            Handler
	Services           Services
	ServerLongTerm     crypto.KeyPair
	Logger             *slog.Logger
	HelloRatePerSecond float64
	HelloBurst         int
	Metrics            *angelmetrics.Metrics
}

// New constructs a Dispatcher from cfg.
func New(cfg Config) *Dispatcher {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Dispatcher{
		store:          cfg.Store,
		authenticator:  cfg.Authenticator,
		handler:        cfg.Handler,
		services:       cfg.Services,
		serverLongTerm: cfg.ServerLongTerm,
		log:            log,
		metrics:        cfg.Metrics,
	}
	if cfg.HelloRatePerSecond > 0 {
		burst := cfg.HelloBurst
		if burst <= 0 {
			burst = 1
		}
		d.helloLimiter = rate.NewLimiter(rate.Limit(cfg.HelloRatePerSecond), burst)
	}
	return d
}

// Dispatch processes one inbound Frame and returns the Frame to send
// back, or an error. It never retains a session's lock across the
// handler invocation for a Message frame.
func (d *Dispatcher) Dispatch(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	if d.metrics != nil {
		d.metrics.FramesTotal.WithLabelValues(f.Kind.String()).Inc()
	}

	var reply *frame.Frame
	var err error
	switch f.Kind {
	case frame.KindHello:
		reply, err = d.dispatchHello(f)
	case frame.KindInitiate:
		reply, err = d.dispatchInitiate(f)
	case frame.KindMessage:
		reply, err = d.dispatchMessage(ctx, f)
	default:
		d.log.Warn("dispatch: frame kind not valid at server", angellog.KeyFrameKind, f.Kind)
		err = errs.NewError(errs.KindBadFrame, "frame kind not valid at server")
	}

	if err != nil && d.metrics != nil && f.Kind != frame.KindMessage {
		d.metrics.HandshakeErrors.WithLabelValues(errKindLabel(err)).Inc()
	}
	if err == nil && d.metrics != nil {
		d.metrics.ActiveSessions.Set(float64(d.store.Len()))
	}
	return reply, err
}

// errKindLabel extracts a stable metric label from err, falling back to
// "unknown" for errors that didn't originate from this module's taxonomy.
func errKindLabel(err error) string {
	if ae, ok := err.(*errs.Error); ok {
		return ae.Kind.String()
	}
	return "unknown"
}

func (d *Dispatcher) dispatchHello(f *frame.Frame) (*frame.Frame, error) {
	if d.helloLimiter != nil && !d.helloLimiter.Allow() {
		return nil, errs.NewError(errs.KindServerFault, "hello admission rate exceeded")
	}

	if d.store.Find(f.ID) != nil {
		return nil, errs.NewError(errs.KindInvalidSessionState, "session already exists for this id")
	}

	sess, err := session.NewServer(f.ID)
	if err != nil {
		return nil, errs.WrapError(errs.KindServerFault, "could not create session", err)
	}
	if !d.store.Insert(sess) {
		return nil, errs.NewError(errs.KindServerFault, "could not insert session")
	}

	entry := d.store.Find(f.ID)
	if entry == nil {
		return nil, errs.NewError(errs.KindServerFault, "session vanished immediately after insert")
	}

	entry.Lock()
	defer entry.Unlock()
	welcome, err := entry.Session.MakeWelcome(f, d.serverLongTerm.Secret)
	if err != nil {
		d.log.Warn("dispatch: MakeWelcome failed", "err", err, angellog.KeySessionID, f.ID, angellog.KeyErrorKind, errKindLabel(err))
		return nil, err
	}
	return welcome, nil
}

func (d *Dispatcher) dispatchInitiate(f *frame.Frame) (*frame.Frame, error) {
	entry := d.store.Find(f.ID)
	if entry == nil {
		return nil, errs.NewError(errs.KindInvalidSessionState, "no session for this id")
	}

	entry.Lock()
	defer entry.Unlock()

	clientLongTermPK, err := entry.Session.ValidateInitiate(f)
	if err != nil {
		d.log.Warn("dispatch: ValidateInitiate failed", "err", err, angellog.KeySessionID, f.ID, angellog.KeyErrorKind, errKindLabel(err))
		return nil, err
	}

	if !d.authenticator.Authenticate(clientLongTermPK) {
		// Deliberately conflated with "session not found" so rejection is
		// not a usable oracle distinguishing "wrong proof" from "right
		// proof, denied identity".
		d.log.Info("dispatch: authenticator rejected client", "client_long_term_pk", clientLongTermPK, angellog.KeySessionID, f.ID)
		return nil, errs.NewError(errs.KindSessionNotFound, "session not found")
	}

	ready, err := entry.Session.MakeReady(f, clientLongTermPK)
	if err != nil {
		d.log.Warn("dispatch: MakeReady failed", "err", err, angellog.KeySessionID, f.ID, angellog.KeyErrorKind, errKindLabel(err))
		return nil, err
	}
	return ready, nil
}

func (d *Dispatcher) dispatchMessage(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	entry := d.store.Find(f.ID)
	if entry == nil {
		return nil, errs.NewError(errs.KindInvalidSessionState, "no session for this id")
	}

	entry.RLock()
	plaintext, err := entry.Session.ReadMsg(f)
	entry.RUnlock()
	if err != nil {
		return nil, err
	}

	// The handler runs without holding the session lock: it receives the
	// shareable entry and may reacquire explicitly.
	start := time.Now()
	response, err := d.handler.Handle(d.services, entry, plaintext)
	if d.metrics != nil {
		d.metrics.MessageLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}

	entry.RLock()
	reply, err := entry.Session.MakeMessage(response)
	entry.RUnlock()
	if err != nil {
		return nil, err
	}
	return reply, nil
}
