package crypto

import "testing"

func TestSealOpenRoundTrip(t *testing.T) {
	alice, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair(alice) failed: %v", err)
	}
	bob, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair(bob) failed: %v", err)
	}

	nonce, err := GenerateNonce()
	if err != nil {
		t.Fatalf("GenerateNonce failed: %v", err)
	}

	plaintext := []byte("Shout it loud and proud")
	sealed := Seal(plaintext, nonce, bob.Public, alice.Secret)
	if len(sealed) != len(plaintext)+Overhead {
		t.Fatalf("sealed length = %d, want %d", len(sealed), len(plaintext)+Overhead)
	}

	opened, ok := Open(sealed, nonce, alice.Public, bob.Secret)
	if !ok {
		t.Fatal("Open failed to authenticate a correctly sealed box")
	}
	if string(opened) != string(plaintext) {
		t.Fatalf("opened = %q, want %q", opened, plaintext)
	}
}

func TestOpenRejectsTamperedBox(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()
	nonce, _ := GenerateNonce()

	sealed := Seal([]byte("ping"), nonce, bob.Public, alice.Secret)
	sealed[0] ^= 0xff

	if _, ok := Open(sealed, nonce, alice.Public, bob.Secret); ok {
		t.Fatal("Open authenticated a tampered box")
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()
	mallory, _ := GenerateKeyPair()
	nonce, _ := GenerateNonce()

	sealed := Seal([]byte("ping"), nonce, bob.Public, alice.Secret)
	if _, ok := Open(sealed, nonce, mallory.Public, bob.Secret); ok {
		t.Fatal("Open authenticated a box sealed under a different key")
	}
}

func TestKeyPairFromSecretMatchesGeneratedPublic(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	derived, err := KeyPairFromSecret(kp.Secret)
	if err != nil {
		t.Fatalf("KeyPairFromSecret failed: %v", err)
	}
	if derived.Public != kp.Public {
		t.Fatalf("derived public key %x does not match generated %x", derived.Public, kp.Public)
	}
}

func TestNoncesAreDistinct(t *testing.T) {
	seen := make(map[Nonce]bool)
	for i := 0; i < 64; i++ {
		n, err := GenerateNonce()
		if err != nil {
			t.Fatalf("GenerateNonce failed: %v", err)
		}
		if seen[n] {
			t.Fatalf("duplicate nonce generated: %x", n)
		}
		seen[n] = true
	}
}
