package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"gitlab.com/yawning/angelwhisper.git/crypto"
	"gitlab.com/yawning/angelwhisper.git/frame"
	"gitlab.com/yawning/angelwhisper.git/session"
)

func newServerSession(t *testing.T) *session.Server {
	t.Helper()
	client, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	s, err := session.NewServer(client.Public)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return s
}

func TestFindMissingReturnsNil(t *testing.T) {
	store := New()
	var pk crypto.PublicKey
	if got := store.Find(pk); got != nil {
		t.Fatal("Find on an empty store should return nil")
	}
}

func TestInsertAndFind(t *testing.T) {
	store := New()
	sess := newServerSession(t)
	if !store.Insert(sess) {
		t.Fatal("Insert should succeed for a fresh session")
	}
	entry := store.Find(sess.ID())
	if entry == nil {
		t.Fatal("Find should locate the inserted session")
	}
	if entry.Session != sess {
		t.Fatal("Find returned the wrong session")
	}
}

func TestInsertTwiceFails(t *testing.T) {
	store := New()
	sess := newServerSession(t)
	if !store.Insert(sess) {
		t.Fatal("first Insert should succeed")
	}
	if store.Insert(sess) {
		t.Fatal("second Insert under the same key should fail")
	}
}

func TestDestroyRemovesSession(t *testing.T) {
	store := New()
	sess := newServerSession(t)
	store.Insert(sess)
	store.Destroy(sess.ID())
	if store.Find(sess.ID()) != nil {
		t.Fatal("session should be gone after Destroy")
	}
}

func TestReapRemovesExpiredAndErrored(t *testing.T) {
	store := New()

	// An undecryptable Hello moves the session to StateError.
	errored := newServerSession(t)
	store.Insert(errored)
	if _, err := errored.MakeWelcome(&frame.Frame{ID: errored.ID(), Kind: frame.KindHello}, crypto.SecretKey{}); err == nil {
		t.Fatal("MakeWelcome should fail on an empty Hello payload")
	}
	if removed := store.Reap(time.Now()); removed != 1 {
		t.Fatalf("Reap removed %d sessions, want 1 (the errored one)", removed)
	}

	expired := newServerSession(t)
	store.Insert(expired)
	entry := store.Find(expired.ID())
	// Force expiry without mutating the session's clock: Reap compares
	// against ExpireAt(), so "now" is fast-forwarded instead.
	_ = entry

	fresh := newServerSession(t)
	store.Insert(fresh)

	removed := store.Reap(time.Now().Add(40 * time.Minute))
	if removed != 2 {
		t.Fatalf("Reap removed %d sessions, want 2 (both past the 34-minute lifetime)", removed)
	}
	if store.Len() != 0 {
		t.Fatalf("store.Len() = %d, want 0 after reaping everything", store.Len())
	}
}

func TestReapLeavesLiveSessions(t *testing.T) {
	store := New()
	sess := newServerSession(t)
	store.Insert(sess)

	removed := store.Reap(time.Now())
	if removed != 0 {
		t.Fatalf("Reap removed %d sessions, want 0 for a fresh session", removed)
	}
	if store.Len() != 1 {
		t.Fatalf("store.Len() = %d, want 1", store.Len())
	}
}

func TestRunReaperStopsOnContextCancel(t *testing.T) {
	store := New()
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.RunReaper(ctx, 5*time.Millisecond)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunReaper did not stop after context cancellation")
	}
}

func TestConcurrentFindOnDifferentSessionsDoesNotBlock(t *testing.T) {
	store := New()
	a := newServerSession(t)
	b := newServerSession(t)
	store.Insert(a)
	store.Insert(b)

	entryA := store.Find(a.ID())
	entryB := store.Find(b.ID())

	entryA.Lock()
	defer entryA.Unlock()

	done := make(chan struct{})
	go func() {
		store.Find(b.ID())
		entryB.RLock()
		entryB.RUnlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("locking entry A should not block readers of entry B")
	}
}
