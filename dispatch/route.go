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

package dispatch

import (
	"encoding/binary"
	"sync"

	"github.com/dchest/siphash"

	"gitlab.com/yawning/angelwhisper.git/errs"
)

// routeSalt is the wire-contract constant every client and server must
// agree on when deriving route keys from string tags.
const routeSalt uint64 = 69

// routeKeyLen is the width of the route prefix on a decrypted Message
// payload: a big-endian uint64 route key.
const routeKeyLen = 8

// RouteKey hashes tag into the 64-bit route key used to prefix a Message
// payload, via SipHash-2-4 keyed with routeSalt in both halves of the
// 128-bit key. Both client and server must call this with the same tag to
// agree on a route.
func RouteKey(tag string) uint64 {
	return siphash.Hash(routeSalt, routeSalt, []byte(tag))
}

// ParseRoute splits a decrypted Message payload into its route key and
// remaining body. It fails with KindInvalidRoute if payload is shorter
// than the 8-byte prefix.
func ParseRoute(payload []byte) (uint64, []byte, error) {
	if len(payload) < routeKeyLen {
		return 0, nil, errs.NewError(errs.KindInvalidRoute, "payload shorter than the 8-byte route prefix")
	}
	key := binary.BigEndian.Uint64(payload[:routeKeyLen])
	return key, payload[routeKeyLen:], nil
}

// Router is a Handler that demultiplexes decrypted Message bodies by
// their route-key prefix to sub-handlers registered by tag. It is itself
// a Handler — composition, not subclassing.
type Router struct {
	mu       sync.RWMutex
	handlers map[uint64]Handler
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{handlers: make(map[uint64]Handler)}
}

// Register binds tag's route key to h. Panics if tag is already
// registered, since that would silently shadow a handler at runtime.
func (r *Router) Register(tag string, h Handler) {
	key := RouteKey(tag)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[key]; exists {
		panic("dispatch: route tag " + tag + " already registered")
	}
	r.handlers[key] = h
}

// Handle implements Handler: it parses the route prefix off message,
// looks up the sub-handler, and delegates.
func (r *Router) Handle(services Services, sess SessionHandle, message []byte) ([]byte, error) {
	key, body, err := ParseRoute(message)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	h, ok := r.handlers[key]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.NewError(errs.KindInvalidRoute, "no handler registered for route key")
	}
	return h.Handle(services, sess, body)
}
