package auth

import (
	"testing"

	"gitlab.com/yawning/angelwhisper.git/crypto"
)

func TestWhitelistAuthenticate(t *testing.T) {
	allowed, _ := crypto.GenerateKeyPair()
	denied, _ := crypto.GenerateKeyPair()

	w := NewWhitelist(allowed.Public)
	if !w.Authenticate(allowed.Public) {
		t.Fatal("whitelisted key should authenticate")
	}
	if w.Authenticate(denied.Public) {
		t.Fatal("non-whitelisted key should not authenticate")
	}
}

func TestWhitelistAddRemove(t *testing.T) {
	pk, _ := crypto.GenerateKeyPair()
	w := NewWhitelist()
	if w.Authenticate(pk.Public) {
		t.Fatal("empty whitelist should reject everyone")
	}
	w.Add(pk.Public)
	if !w.Authenticate(pk.Public) {
		t.Fatal("key should authenticate after Add")
	}
	w.Remove(pk.Public)
	if w.Authenticate(pk.Public) {
		t.Fatal("key should not authenticate after Remove")
	}
}

func TestAllowAll(t *testing.T) {
	pk, _ := crypto.GenerateKeyPair()
	if !AllowAll.Authenticate(pk.Public) {
		t.Fatal("AllowAll should authenticate any key")
	}
}
