package registry

import (
	"testing"
	"time"

	"gitlab.com/yawning/angelwhisper.git/crypto"
	"gitlab.com/yawning/angelwhisper.git/session"
)

func TestReplayFilterMarkThenSeen(t *testing.T) {
	f, err := NewReplayFilter()
	if err != nil {
		t.Fatalf("NewReplayFilter failed: %v", err)
	}
	kp, _ := crypto.GenerateKeyPair()
	if f.Seen(kp.Public) {
		t.Fatal("fresh filter should not report a key as seen")
	}
	f.Mark(kp.Public, time.Now())
	if !f.Seen(kp.Public) {
		t.Fatal("key should be reported seen after Mark")
	}
}

func TestReplayFilterExpiresOldEntries(t *testing.T) {
	f, err := NewReplayFilter()
	if err != nil {
		t.Fatalf("NewReplayFilter failed: %v", err)
	}
	kp, _ := crypto.GenerateKeyPair()
	old := time.Now().Add(-3 * time.Hour)
	f.Mark(kp.Public, old)

	// compact() only runs from Mark, so trigger it with an unrelated mark
	// far enough in the future that the old entry falls outside the window.
	other, _ := crypto.GenerateKeyPair()
	f.Mark(other.Public, time.Now())

	if f.Seen(kp.Public) {
		t.Fatal("entry older than the replay window should have expired")
	}
}

func TestStoreWithReplayFilterRejectsRetiredKey(t *testing.T) {
	filter, err := NewReplayFilter()
	if err != nil {
		t.Fatalf("NewReplayFilter failed: %v", err)
	}
	store := NewWithReplayFilter(filter)

	clientShortTerm, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	sess, err := session.NewServer(clientShortTerm.Public)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if !store.Insert(sess) {
		t.Fatal("first Insert should succeed")
	}
	store.Destroy(sess.ID())

	// A second Hello reusing the same short-term key should be rejected
	// even though the original entry is gone from the live map.
	replay, err := session.NewServer(clientShortTerm.Public)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if store.Insert(replay) {
		t.Fatal("Insert should reject a session whose ID was just retired")
	}
}
