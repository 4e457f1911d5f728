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

package registry

import (
	"container/list"
	crand "crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/dchest/siphash"

	"gitlab.com/yawning/angelwhisper.git/crypto"
)

// maxReplayFilterSize bounds how many retired short-term keys the filter
// remembers. Once full, the oldest entry is force-evicted regardless of
// age, the same capacity/age tradeoff the ntor handshake replay filter
// this is descended from made for obfs4 bridges.
const maxReplayFilterSize = 100 * 1024

// replayWindow is how long a destroyed or reaped session's short-term key
// is remembered as "seen" before it ages out of the filter.
const replayWindow = 2 * time.Hour

// ReplayFilter remembers short-term public keys that have already
// completed (or been torn down after) a Hello, so a Hello reusing one
// after Store.Destroy or Store.Reap can be rejected outright instead of
// quietly starting a new session under a stale identifier. Entries are
// keyed by their SipHash-2-4 digest rather than the raw key, matching the
// constant-size/collision-tolerant filter this is adapted from.
type ReplayFilter struct {
	mu     sync.Mutex
	key0   uint64
	key1   uint64
	filter map[uint64]*replayEntry
	fifo   *list.List
}

type replayEntry struct {
	firstSeen time.Time
	hash      uint64
	element   *list.Element
}

// NewReplayFilter returns an empty filter keyed with a fresh random
// SipHash key.
func NewReplayFilter() (*ReplayFilter, error) {
	var key [16]byte
	if _, err := crand.Read(key[:]); err != nil {
		return nil, err
	}
	return &ReplayFilter{
		key0:   binary.BigEndian.Uint64(key[0:8]),
		key1:   binary.BigEndian.Uint64(key[8:16]),
		filter: make(map[uint64]*replayEntry),
		fifo:   list.New(),
	}, nil
}

// Seen reports whether pk was already marked via Mark, and does not
// itself mark it: callers test-then-mark explicitly at the point a
// session is retired (see Store.Destroy and Store.Reap).
func (f *ReplayFilter) Seen(pk crypto.PublicKey) bool {
	hash := siphash.Hash(f.key0, f.key1, pk[:])
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.filter[hash]
	return ok
}

// Mark records pk as retired as of now, compacting expired entries first.
func (f *ReplayFilter) Mark(pk crypto.PublicKey, now time.Time) {
	hash := siphash.Hash(f.key0, f.key1, pk[:])
	f.mu.Lock()
	defer f.mu.Unlock()

	f.compact(now)
	if _, ok := f.filter[hash]; ok {
		return
	}
	entry := &replayEntry{hash: hash, firstSeen: now}
	entry.element = f.fifo.PushBack(entry)
	f.filter[hash] = entry
}

// compact purges entries older than replayWindow, or force-evicts the
// oldest entry once the filter is at capacity. Not threadsafe; callers
// hold f.mu.
func (f *ReplayFilter) compact(now time.Time) {
	e := f.fifo.Front()
	for e != nil {
		entry, _ := e.Value.(*replayEntry)
		if f.fifo.Len() < maxReplayFilterSize {
			age := now.Sub(entry.firstSeen)
			if age < 0 {
				// System clock jumped backwards; jettison the filter rather
				// than remember entries with an unknowable real age.
				f.reset()
				return
			}
			if age < replayWindow {
				break
			}
		}
		next := e.Next()
		delete(f.filter, entry.hash)
		f.fifo.Remove(entry.element)
		entry.element = nil
		e = next
	}
}

func (f *ReplayFilter) reset() {
	f.filter = make(map[uint64]*replayEntry)
	f.fifo = list.New()
}
