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

package angelwhisper

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/netutil"

	"gitlab.com/yawning/angelwhisper.git/auth"
	"gitlab.com/yawning/angelwhisper.git/crypto"
	"gitlab.com/yawning/angelwhisper.git/dispatch"
	"gitlab.com/yawning/angelwhisper.git/errs"
	"gitlab.com/yawning/angelwhisper.git/internal/angellog"
	"gitlab.com/yawning/angelwhisper.git/internal/angelmetrics"
	"gitlab.com/yawning/angelwhisper.git/internal/wire"
	"gitlab.com/yawning/angelwhisper.git/registry"
)

// defaultReapInterval is how often System's background reaper sweeps the
// registry for expired or errored sessions.
const defaultReapInterval = time.Minute

// defaultMaxConns bounds how many simultaneously accepted connections
// Serve will service, the Go-native analogue of the teacher's
// handlerChan-based connection accounting.
const defaultMaxConns = 1024

// handshakeFailureDrainDelay and handshakeFailureMaxDiscard bound the
// courtesy drain serveConn gives a connection after a rejected frame,
// the same treatment Obfs4Conn.closeAfterDelay gave a failed handshake
// before slamming the socket shut.
const (
	handshakeFailureDrainDelay = 3 * time.Second
	handshakeFailureMaxDiscard = 4096
)

// System is the top-level server-side object: it owns the long-term key
// pair, the session store (with replay protection), the authenticator,
// and the application Handler, and drives a Dispatcher over accepted
// connections.
type System struct {
	longTerm      crypto.KeyPair
	store         *registry.Store
	authenticator auth.Authenticator
	dispatcher    *dispatch.Dispatcher
	log           *slog.Logger
	maxFrameLen   uint32
	maxConns      int
}

// Config bundles the values NewSystem needs.
type Config struct {
	LongTerm           crypto.KeyPair
	Authenticator      auth.Authenticator
	Handler            dispatch.Handler
	Services           dispatch.Services
	Logger             *slog.Logger
	Metrics            prometheus.Registerer
	HelloRatePerSecond float64
	HelloBurst         int
	MaxFrameLength     uint32
	MaxConns           int
}

// NewSystem wires a session store (with replay protection), dispatcher,
// and optional Prometheus registration into a ready-to-serve System.
func NewSystem(cfg Config) (*System, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	filter, err := registry.NewReplayFilter()
	if err != nil {
		return nil, err
	}
	store := registry.NewWithReplayFilter(filter)

	var metrics *angelmetrics.Metrics
	if cfg.Metrics != nil {
		metrics = angelmetrics.New(cfg.Metrics)
	}

	d := dispatch.New(dispatch.Config{
		Store:              store,
		Authenticator:      cfg.Authenticator,
		Handler:            cfg.Handler,
		Services:           cfg.Services,
		ServerLongTerm:     cfg.LongTerm,
		Logger:             log,
		HelloRatePerSecond: cfg.HelloRatePerSecond,
		HelloBurst:         cfg.HelloBurst,
		Metrics:            metrics,
	})

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}

	return &System{
		longTerm:      cfg.LongTerm,
		store:         store,
		authenticator: cfg.Authenticator,
		dispatcher:    d,
		log:           log,
		maxFrameLen:   cfg.MaxFrameLength,
		maxConns:      maxConns,
	}, nil
}

// RunReaper starts the registry's background reaper in the calling
// goroutine; callers typically `go system.RunReaper(ctx)`.
func (s *System) RunReaper(ctx context.Context) {
	s.store.RunReaper(ctx, defaultReapInterval)
}

// Serve accepts connections from ln, wrapping the listener with
// netutil.LimitListener to bound concurrent connections, and services
// each one until ctx is cancelled or ln.Accept fails.
func (s *System) Serve(ctx context.Context, ln net.Listener) error {
	limited := netutil.LimitListener(ln, s.maxConns)
	defer limited.Close()

	go func() {
		<-ctx.Done()
		_ = limited.Close()
	}()

	for {
		conn, err := limited.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *System) serveConn(ctx context.Context, conn net.Conn) {
	fc := wire.NewFrameConn(conn, s.maxFrameLen)
	defer fc.Close()

	for {
		f, err := fc.ReadFrame()
		if err != nil {
			s.log.Debug("system: connection read ended", "err", err, angellog.KeyRemoteAddr, conn.RemoteAddr())
			return
		}
		reply, err := s.dispatcher.Dispatch(ctx, f)
		if err != nil {
			// A malformed or rejected frame ends the connection outright:
			// there is no recovery within a single handshake attempt, and
			// keeping the connection open after, say, an authenticator
			// rejection would just mean a second free guess. Drain and
			// delay the close rather than slamming the socket shut, the
			// same courtesy obfs4 gave a failed handshake.
			s.log.Warn("system: dispatch failed, closing connection", "err", err,
				angellog.KeyRemoteAddr, conn.RemoteAddr(), angellog.KeyErrorKind, errKindLabel(err))
			fc.DrainAndClose(handshakeFailureDrainDelay, handshakeFailureMaxDiscard)
			return
		}
		if err := fc.WriteFrame(reply); err != nil {
			s.log.Debug("system: connection write failed", "err", err, angellog.KeyRemoteAddr, conn.RemoteAddr())
			return
		}
	}
}

// errKindLabel extracts a stable taxonomy label from err for logging,
// falling back to "unknown" for errors outside errs.Error.
func errKindLabel(err error) string {
	if ae, ok := err.(*errs.Error); ok {
		return ae.Kind.String()
	}
	return "unknown"
}

// LongTermPublicKey returns the server's long-term public key, the value
// clients must be configured with out-of-band before dialing.
func (s *System) LongTermPublicKey() crypto.PublicKey {
	return s.longTerm.Public
}
