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

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"gitlab.com/yawning/angelwhisper.git/crypto"
)

var (
	keygenPublicStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	keygenPathStyle   = lipgloss.NewStyle().Faint(true)
)

func keygenCmd() *cobra.Command {
	var outPath string
	var noninteractive bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a long-term identity key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(outPath, noninteractive)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "angelwhisper.key", "path to write the long-term secret key")
	cmd.Flags().BoolVar(&noninteractive, "yes", false, "overwrite an existing key file without prompting")
	return cmd
}

func runKeygen(outPath string, noninteractive bool) error {
	if _, err := os.Stat(outPath); err == nil && !noninteractive {
		overwrite := false
		confirm := huh.NewConfirm().
			Title(fmt.Sprintf("%s already exists. Overwrite it?", outPath)).
			Affirmative("Overwrite").
			Negative("Cancel").
			Value(&overwrite)
		if err := confirm.Run(); err != nil {
			return fmt.Errorf("keygen prompt: %w", err)
		}
		if !overwrite {
			return fmt.Errorf("keygen: %s exists, not overwriting", outPath)
		}
	}

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}

	secretHex := hex.EncodeToString(kp.Secret[:])
	if err := os.WriteFile(outPath, []byte(secretHex+"\n"), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("secret key written to %s\n", keygenPathStyle.Render(outPath))
	fmt.Printf("public key (share with clients): %s\n", keygenPublicStyle.Render(hex.EncodeToString(kp.Public[:])))
	return nil
}
