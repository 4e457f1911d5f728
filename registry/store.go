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

// Package registry implements the server-side session store: a shared
// mapping from client short-term public key to a per-session exclusively
// lockable ServerSession, plus a background reaper.
package registry

import (
	"context"
	"sync"
	"time"

	"gitlab.com/yawning/angelwhisper.git/crypto"
	"gitlab.com/yawning/angelwhisper.git/session"
)

// Entry is a shared, lockable handle to one server-side session. The
// dispatcher acquires Lock for handshake transitions (MakeWelcome,
// MakeReady) and at most RLock for steady-state encrypt/decrypt, and
// must never hold either across a handler call.
type Entry struct {
	mu      sync.RWMutex
	Session *session.Server
}

// Lock acquires exclusive access, required for handshake transitions.
func (e *Entry) Lock() { e.mu.Lock() }

// Unlock releases exclusive access.
func (e *Entry) Unlock() { e.mu.Unlock() }

// RLock acquires shared access, sufficient for message seal/open.
func (e *Entry) RLock() { e.mu.RLock() }

// RUnlock releases shared access.
func (e *Entry) RUnlock() { e.mu.RUnlock() }

// Store is the session registry: readers never block each other, and a
// writer on one session (via Entry's own lock) never blocks readers on a
// different session, since only Insert, Destroy and Reap take the Store's
// write lock, and Reap skips any entry whose lock it cannot take at once.
type Store struct {
	mu       sync.RWMutex
	sessions map[crypto.PublicKey]*Entry
	replay   *ReplayFilter
}

// New returns an empty Store with no replay protection beyond the
// in-memory map itself.
func New() *Store {
	return &Store{sessions: make(map[crypto.PublicKey]*Entry)}
}

// NewWithReplayFilter returns an empty Store that also rejects Insert for
// any short-term key seen in a prior Destroy or Reap within the filter's
// retention window, guarding against a Hello replaying a retired session
// identifier once the original entry has aged out of the live map.
func NewWithReplayFilter(filter *ReplayFilter) *Store {
	return &Store{sessions: make(map[crypto.PublicKey]*Entry), replay: filter}
}

// Find returns the shared, lockable entry for clientShortTermPK, or nil
// if no session is registered under that key.
func (s *Store) Find(clientShortTermPK crypto.PublicKey) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[clientShortTermPK]
}

// Insert registers sess under its own ID, failing if a session already
// exists for that key or if sess is already expired. To avoid taking the
// map write lock any more than necessary, the existence check happens
// under a read lock first.
func (s *Store) Insert(sess *session.Server) bool {
	if !time.Now().Before(sess.ExpireAt()) {
		return false
	}

	id := sess.ID()

	if s.replay != nil && s.replay.Seen(id) {
		return false
	}

	s.mu.RLock()
	_, exists := s.sessions[id]
	s.mu.RUnlock()
	if exists {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[id]; exists {
		return false
	}
	s.sessions[id] = &Entry{Session: sess}
	return true
}

// Destroy removes the session registered under clientShortTermPK, if any,
// and marks that key retired in the replay filter, if one is configured.
func (s *Store) Destroy(clientShortTermPK crypto.PublicKey) {
	s.mu.Lock()
	delete(s.sessions, clientShortTermPK)
	s.mu.Unlock()

	if s.replay != nil {
		s.replay.Mark(clientShortTermPK, time.Now())
	}
}

// Len returns the number of sessions currently registered.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reap removes every session with now >= ExpireAt() or in StateError,
// returning the number of sessions removed. Safe to call concurrently
// with Find/Insert/Destroy. An entry whose lock is held or awaited at the
// time is skipped and examined again on the next call.
func (s *Store) Reap(now time.Time) int {
	s.mu.Lock()
	var retired []crypto.PublicKey
	removed := 0
	for id, entry := range s.sessions {
		if !entry.mu.TryRLock() {
			continue
		}
		dead := !now.Before(entry.Session.ExpireAt()) || entry.Session.State() == session.StateError
		entry.RUnlock()
		if dead {
			delete(s.sessions, id)
			retired = append(retired, id)
			removed++
		}
	}
	s.mu.Unlock()

	if s.replay != nil {
		for _, id := range retired {
			s.replay.Mark(id, now)
		}
	}
	return removed
}

// RunReaper calls Reap on interval until ctx is cancelled. It is intended
// to be started once per Store in its own goroutine.
func (s *Store) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Reap(now)
		}
	}
}
