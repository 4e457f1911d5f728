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

// Package angelconfig parses and validates the YAML configuration file
// consumed by cmd/angelwhisper-server.
package angelconfig

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Agent    AgentConfig    `yaml:"agent"`
	Listen   ListenConfig   `yaml:"listen"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Identity IdentityConfig `yaml:"identity"`
	Limits   LimitsConfig   `yaml:"limits"`
}

// AgentConfig controls logging.
type AgentConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ListenConfig controls the TCP listener.
type ListenConfig struct {
	Address string `yaml:"address"`
}

// MetricsConfig controls the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// IdentityConfig points at the server's long-term key pair and the
// whitelist of client long-term public keys allowed to authenticate.
type IdentityConfig struct {
	LongTermSecretKeyHex string   `yaml:"long_term_secret_key_hex"`
	AllowedClientKeysHex []string `yaml:"allowed_client_keys_hex"`
}

// LimitsConfig bounds resource usage.
type LimitsConfig struct {
	MaxConns           int           `yaml:"max_conns"`
	MaxFrameLength     uint32        `yaml:"max_frame_length"`
	HelloRatePerSecond float64       `yaml:"hello_rate_per_second"`
	HelloBurst         int           `yaml:"hello_burst"`
	ReapInterval       time.Duration `yaml:"reap_interval"`
}

// Default returns a Config with sane out-of-the-box values; every field a
// user omits from their YAML file keeps its Default value, since Parse
// unmarshals on top of this rather than a zero Config.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Listen: ListenConfig{
			Address: "0.0.0.0:4433",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "127.0.0.1:9090",
		},
		Limits: LimitsConfig{
			MaxConns:           1024,
			HelloRatePerSecond: 50,
			HelloBurst:         100,
			ReapInterval:       time.Minute,
		},
	}
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes, starting from Default and
// validating the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks the parts of Config that can't be caught by YAML
// unmarshalling alone.
func (c *Config) Validate() error {
	if c.Identity.LongTermSecretKeyHex == "" {
		return fmt.Errorf("identity.long_term_secret_key_hex is required")
	}
	if _, err := DecodeKeyHex(c.Identity.LongTermSecretKeyHex); err != nil {
		return fmt.Errorf("identity.long_term_secret_key_hex: %w", err)
	}
	for _, k := range c.Identity.AllowedClientKeysHex {
		if _, err := DecodeKeyHex(k); err != nil {
			return fmt.Errorf("identity.allowed_client_keys_hex: %w", err)
		}
	}
	if c.Limits.MaxConns <= 0 {
		return fmt.Errorf("limits.max_conns must be positive")
	}
	return nil
}

// DecodeKeyHex decodes a hex-encoded 32-byte Curve25519 key, the format
// keygen writes and the config file reads back.
func DecodeKeyHex(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("invalid hex: %w", err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("want 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
