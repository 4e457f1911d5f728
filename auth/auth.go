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

// Package auth provides the policy oracle the dispatcher consults before
// letting a client long-term identity reach a Ready session.
package auth

import (
	"sync"

	"gitlab.com/yawning/angelwhisper.git/crypto"
)

// Authenticator decides whether a client long-term public key is allowed
// to establish a session. Implementations must be safe for concurrent
// use; the dispatcher calls Authenticate once per Initiate, while holding
// that session's exclusive lock.
type Authenticator interface {
	Authenticate(clientLongTermPK crypto.PublicKey) bool
}

// AuthenticatorFunc adapts a plain function to the Authenticator
// interface.
type AuthenticatorFunc func(crypto.PublicKey) bool

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(pk crypto.PublicKey) bool {
	return f(pk)
}

// AllowAll is an Authenticator that accepts every client. Useful for
// local testing; never appropriate in a deployment that faces untrusted
// clients.
var AllowAll Authenticator = AuthenticatorFunc(func(crypto.PublicKey) bool { return true })

// Whitelist is an Authenticator backed by an explicit set of acceptable
// client long-term public keys, safe for concurrent reads and updates.
type Whitelist struct {
	mu      sync.RWMutex
	allowed map[crypto.PublicKey]bool
}

// NewWhitelist returns a Whitelist seeded with the given keys.
func NewWhitelist(keys ...crypto.PublicKey) *Whitelist {
	w := &Whitelist{allowed: make(map[crypto.PublicKey]bool, len(keys))}
	for _, k := range keys {
		w.allowed[k] = true
	}
	return w
}

// Authenticate reports whether pk is on the whitelist.
func (w *Whitelist) Authenticate(pk crypto.PublicKey) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.allowed[pk]
}

// Add allows pk.
func (w *Whitelist) Add(pk crypto.PublicKey) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.allowed[pk] = true
}

// Remove revokes pk.
func (w *Whitelist) Remove(pk crypto.PublicKey) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.allowed, pk)
}
