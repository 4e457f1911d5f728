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
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	angelwhisper "gitlab.com/yawning/angelwhisper.git"
	"gitlab.com/yawning/angelwhisper.git/auth"
	"gitlab.com/yawning/angelwhisper.git/crypto"
	"gitlab.com/yawning/angelwhisper.git/dispatch"
	"gitlab.com/yawning/angelwhisper.git/internal/angelconfig"
	"gitlab.com/yawning/angelwhisper.git/internal/angellog"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the AngelWhisper server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "angelwhisper.yaml", "path to the YAML configuration file")
	return cmd
}

func runServe(configPath string) error {
	cfg, err := angelconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := angellog.New(cfg.Agent.LogLevel, cfg.Agent.LogFormat)

	secretRaw, err := angelconfig.DecodeKeyHex(cfg.Identity.LongTermSecretKeyHex)
	if err != nil {
		return fmt.Errorf("decode long-term key: %w", err)
	}
	longTerm, err := crypto.KeyPairFromSecret(crypto.SecretKey(secretRaw))
	if err != nil {
		return fmt.Errorf("derive long-term key pair: %w", err)
	}

	whitelist := auth.NewWhitelist()
	for _, hexKey := range cfg.Identity.AllowedClientKeysHex {
		pk, err := angelconfig.DecodeKeyHex(hexKey)
		if err != nil {
			return fmt.Errorf("decode allowed client key: %w", err)
		}
		whitelist.Add(crypto.PublicKey(pk))
	}

	var registerer prometheus.Registerer
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registerer = registry
		go serveMetrics(cfg.Metrics.Address, registry, log)
	}

	sys, err := angelwhisper.NewSystem(angelwhisper.Config{
		LongTerm:           longTerm,
		Authenticator:      whitelist,
		Handler:            echoHandler(),
		Logger:             log,
		Metrics:            registerer,
		HelloRatePerSecond: cfg.Limits.HelloRatePerSecond,
		HelloBurst:         cfg.Limits.HelloBurst,
		MaxFrameLength:     cfg.Limits.MaxFrameLength,
		MaxConns:           cfg.Limits.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("build system: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.Listen.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Listen.Address, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go sys.RunReaper(ctx)

	log.Info("angelwhisper-server: listening",
		"address", cfg.Listen.Address,
		"long_term_public_key", fmt.Sprintf("%x", sys.LongTermPublicKey()),
		"max_conns", humanize.Comma(int64(cfg.Limits.MaxConns)),
	)

	return sys.Serve(ctx, ln)
}

// echoHandler is the stand-in application Handler for the demo binary: it
// reflects the decrypted Message payload back to the caller.
func echoHandler() dispatch.Handler {
	return dispatch.HandlerFunc(func(_ dispatch.Services, _ dispatch.SessionHandle, message []byte) ([]byte, error) {
		return message, nil
	})
}

func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn("angelwhisper-server: metrics server stopped", "err", err)
	}
}
