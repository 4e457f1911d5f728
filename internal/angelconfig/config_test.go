package angelconfig

import (
	"crypto/rand"
	"encoding/hex"
	"testing"
)

func randomKeyHex(t *testing.T) string {
	t.Helper()
	var k [32]byte
	if _, err := rand.Read(k[:]); err != nil {
		t.Fatalf("rand.Read failed: %v", err)
	}
	return hex.EncodeToString(k[:])
}

func TestDefaultValidatesWithIdentity(t *testing.T) {
	cfg := Default()
	cfg.Identity.LongTermSecretKeyHex = randomKeyHex(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateRequiresLongTermKey(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate should fail without a long-term secret key")
	}
}

func TestParseAppliesDefaultsOnTopOfYAML(t *testing.T) {
	keyHex := randomKeyHex(t)
	yamlDoc := `
identity:
  long_term_secret_key_hex: "` + keyHex + `"
listen:
  address: "127.0.0.1:9999"
`
	cfg, err := Parse([]byte(yamlDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Listen.Address != "127.0.0.1:9999" {
		t.Fatalf("got listen address %q, want 127.0.0.1:9999", cfg.Listen.Address)
	}
	if cfg.Limits.MaxConns != 1024 {
		t.Fatalf("got MaxConns %d, want default 1024", cfg.Limits.MaxConns)
	}
}

func TestDecodeKeyHexRejectsWrongLength(t *testing.T) {
	if _, err := DecodeKeyHex("abcd"); err == nil {
		t.Fatal("DecodeKeyHex should reject a short hex string")
	}
}
