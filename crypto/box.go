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

// Package crypto wraps the NaCl public-key authenticated box (Curve25519 +
// XSalsa20 + Poly1305) and the keypair/nonce generation AngelWhisper's
// handshake and message sealing are built on. Nothing here is protocol
// aware; it is the thin layer every session operation calls through.
package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

const (
	// KeySize is the length in bytes of a Curve25519 public or secret key.
	KeySize = 32

	// NonceSize is the length in bytes of a crypto_box nonce.
	NonceSize = 24

	// Overhead is the Poly1305 MAC length added to every sealed box.
	Overhead = box.Overhead
)

// PublicKey is a Curve25519 public key.
type PublicKey [KeySize]byte

// SecretKey is a Curve25519 secret key.
type SecretKey [KeySize]byte

// Nonce is a crypto_box nonce. Callers must never reuse one for a given
// key pair.
type Nonce [NonceSize]byte

// KeyPair is a Curve25519 key pair. A peer holds two of these: one
// long-term (identity, authenticated out of band) and one short-term
// (ephemeral, discarded at session end).
type KeyPair struct {
	Public PublicKey
	Secret SecretKey
}

// GenerateKeyPair creates a fresh Curve25519 key pair using crypto/rand.
func GenerateKeyPair() (KeyPair, error) {
	pub, sec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("crypto: generate keypair: %w", err)
	}
	return KeyPair{Public: PublicKey(*pub), Secret: SecretKey(*sec)}, nil
}

// KeyPairFromSecret derives the matching public key for a raw secret key
// via curve25519.ScalarBaseMult, the way a long-term key pair loaded from
// config (rather than freshly generated) is reconstituted from just its
// secret half.
func KeyPairFromSecret(secret SecretKey) (KeyPair, error) {
	var pub [KeySize]byte
	curve25519.ScalarBaseMult(&pub, (*[KeySize]byte)(&secret))
	return KeyPair{Public: PublicKey(pub), Secret: secret}, nil
}

// GenerateNonce returns a fresh random nonce. Every sealed box must use one
// of these; nonces are never derived from counters shared with the peer.
func GenerateNonce() (Nonce, error) {
	var n Nonce
	if _, err := io.ReadFull(rand.Reader, n[:]); err != nil {
		return Nonce{}, fmt.Errorf("crypto: generate nonce: %w", err)
	}
	return n, nil
}

// Seal authenticates and encrypts message for the holder of peerPublic,
// under the given nonce, using ourSecret. The returned slice is
// len(message)+Overhead bytes.
func Seal(message []byte, nonce Nonce, peerPublic PublicKey, ourSecret SecretKey) []byte {
	n := [NonceSize]byte(nonce)
	pk := [KeySize]byte(peerPublic)
	sk := [KeySize]byte(ourSecret)
	return box.Seal(nil, message, &n, &pk, &sk)
}

// Open authenticates and decrypts a box sealed by the holder of
// peerPublic's corresponding secret key, for us, under nonce. Returns
// false if the MAC does not verify; callers must not distinguish the
// reason a box failed to open from any other error to the peer.
func Open(sealed []byte, nonce Nonce, peerPublic PublicKey, ourSecret SecretKey) ([]byte, bool) {
	n := [NonceSize]byte(nonce)
	pk := [KeySize]byte(peerPublic)
	sk := [KeySize]byte(ourSecret)
	return box.Open(nil, sealed, &n, &pk, &sk)
}
