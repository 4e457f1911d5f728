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
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/yawning/angelwhisper.git/clientengine"
	"gitlab.com/yawning/angelwhisper.git/crypto"
)

func requestCmd() *cobra.Command {
	var (
		serverAddr     string
		serverKeyHex   string
		identityPath   string
		message        string
		dialTimeout    time.Duration
		requestTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Connect to an AngelWhisper server, handshake, and send one message",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(requestOpts{
				serverAddr:     serverAddr,
				serverKeyHex:   serverKeyHex,
				identityPath:   identityPath,
				message:        message,
				dialTimeout:    dialTimeout,
				requestTimeout: requestTimeout,
			})
		},
	}

	cmd.Flags().StringVar(&serverAddr, "server", "127.0.0.1:4433", "server address to dial")
	cmd.Flags().StringVar(&serverKeyHex, "server-key", "", "server long-term public key, hex-encoded (required)")
	cmd.Flags().StringVar(&identityPath, "identity", "", "path to a hex-encoded client secret key (default: generate an ephemeral one)")
	cmd.Flags().StringVar(&message, "message", "hello", "payload to send")
	cmd.Flags().DurationVar(&dialTimeout, "dial-timeout", 5*time.Second, "TCP dial timeout")
	cmd.Flags().DurationVar(&requestTimeout, "timeout", 10*time.Second, "handshake and request timeout")
	cmd.MarkFlagRequired("server-key")
	return cmd
}

type requestOpts struct {
	serverAddr     string
	serverKeyHex   string
	identityPath   string
	message        string
	dialTimeout    time.Duration
	requestTimeout time.Duration
}

func runRequest(opts requestOpts) error {
	var serverPK crypto.PublicKey
	raw, err := hex.DecodeString(opts.serverKeyHex)
	if err != nil || len(raw) != crypto.KeySize {
		return fmt.Errorf("decode server key: expected %d hex-encoded bytes, got %d (err=%v)", crypto.KeySize, len(raw), err)
	}
	copy(serverPK[:], raw)

	identity, err := loadOrGenerateIdentity(opts.identityPath)
	if err != nil {
		return err
	}

	conn, err := net.DialTimeout("tcp", opts.serverAddr, opts.dialTimeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", opts.serverAddr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opts.requestTimeout)
	defer cancel()

	engine := clientengine.New(clientengine.Config{
		Conn:             conn,
		ServerLongTermPK: serverPK,
		OurLongTerm:      identity,
	})

	if err := engine.Authenticate(ctx); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	reply, err := engine.Request(ctx, []byte(opts.message))
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}

	fmt.Printf("reply: %s\n", reply)
	return nil
}
