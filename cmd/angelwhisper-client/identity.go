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

package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gitlab.com/yawning/angelwhisper.git/crypto"
)

func identityCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Generate a client long-term key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := crypto.GenerateKeyPair()
			if err != nil {
				return fmt.Errorf("generate key pair: %w", err)
			}
			secretHex := hex.EncodeToString(kp.Secret[:])
			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(secretHex+"\n"), 0o600); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
				fmt.Printf("secret key written to %s\n", outPath)
			} else {
				fmt.Printf("secret key: %s\n", secretHex)
			}
			fmt.Printf("public key (give this to the server operator): %s\n", hex.EncodeToString(kp.Public[:]))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "path to write the secret key (default: print to stdout)")
	return cmd
}

func loadOrGenerateIdentity(path string) (crypto.KeyPair, error) {
	if path == "" {
		return crypto.GenerateKeyPair()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return crypto.KeyPair{}, fmt.Errorf("read identity %s: %w", path, err)
	}
	return decodeIdentity(raw)
}

func decodeIdentity(raw []byte) (crypto.KeyPair, error) {
	var secret [32]byte
	n, err := hex.Decode(secret[:], trimLine(raw))
	if err != nil || n != 32 {
		return crypto.KeyPair{}, fmt.Errorf("decode identity secret key: expected 32 raw bytes, got %d (err=%v)", n, err)
	}
	return crypto.KeyPairFromSecret(crypto.SecretKey(secret))
}

func trimLine(raw []byte) []byte {
	end := len(raw)
	for end > 0 && (raw[end-1] == '\n' || raw[end-1] == '\r' || raw[end-1] == ' ') {
		end--
	}
	return raw[:end]
}
