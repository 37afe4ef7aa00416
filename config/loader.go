// Copyright (C) 2025 fabstir
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoaderOptions controls how Load locates and layers configuration sources.
type LoaderOptions struct {
	// ConfigDir is the directory searched for "<environment>.yaml" and
	// "default.yaml".
	ConfigDir string
	// ConfigPath, if set, is loaded directly and ConfigDir/Environment are
	// ignored for file discovery.
	ConfigPath string
	// Environment selects the environment-specific overlay file. Defaults
	// to GetEnvironment() when empty.
	Environment string
	// ApplyEnvOverrides substitutes ${VAR:default} placeholders and applies
	// LLM_SDK_* environment variable overrides after the file loads.
	ApplyEnvOverrides bool
}

// DefaultLoaderOptions returns the options used by MustLoad.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{
		ConfigDir:         "config",
		Environment:       GetEnvironment(),
		ApplyEnvOverrides: true,
	}
}

// Load resolves and loads a Config per opts, applying defaults and, unless
// disabled, environment variable substitution and overrides.
func Load(opts LoaderOptions) (*Config, error) {
	path := opts.ConfigPath
	if path == "" {
		if opts.Environment == "" {
			opts.Environment = GetEnvironment()
		}
		dir := opts.ConfigDir
		if dir == "" {
			dir = "config"
		}
		candidate := filepath.Join(dir, opts.Environment+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		} else {
			path = filepath.Join(dir, "default.yaml")
		}
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	if opts.ApplyEnvOverrides {
		SubstituteEnvVarsInConfig(cfg)
		applyEnvironmentOverrides(cfg)
	}

	if errs := ValidateConfiguration(cfg); len(errs) > 0 {
		for _, e := range errs {
			if e.Level == "error" {
				return nil, fmt.Errorf("invalid configuration: %s", e.Error())
			}
		}
	}

	return cfg, nil
}

// LoadForEnvironment loads the named environment's configuration from dir.
func LoadForEnvironment(dir, environment string) (*Config, error) {
	return Load(LoaderOptions{
		ConfigDir:         dir,
		Environment:       environment,
		ApplyEnvOverrides: true,
	})
}

// MustLoad loads configuration with DefaultLoaderOptions, panicking on error.
// Intended for cmd/llmctl's startup path, not library callers.
func MustLoad() *Config {
	cfg, err := Load(DefaultLoaderOptions())
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

// applyEnvironmentOverrides applies LLM_SDK_* environment variables that take
// precedence over whatever the config file set, for values operators
// typically inject via the deployment environment rather than checked-in
// files (chain ID, host endpoint, payment token, log level).
func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("LLM_SDK_CHAIN_ID"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.ChainID = id
		}
	}
	if v := os.Getenv("LLM_SDK_HOST_ENDPOINT"); v != "" {
		if cfg.Host == nil {
			cfg.Host = &HostConfig{}
		}
		cfg.Host.Endpoint = v
	}
	if v := os.Getenv("LLM_SDK_HOST_ADDRESS"); v != "" {
		if cfg.Host == nil {
			cfg.Host = &HostConfig{}
		}
		cfg.Host.Address = v
	}
	if v := os.Getenv("LLM_SDK_DIRECTORY_ENDPOINT"); v != "" {
		cfg.DirectoryEndpoint = v
	}
	if v := os.Getenv("LLM_SDK_PAYMENT_ENDPOINT"); v != "" {
		cfg.PaymentEndpoint = v
	}
	if v := os.Getenv("LLM_SDK_LOG_LEVEL"); v != "" {
		if cfg.Logging == nil {
			cfg.Logging = &LoggingConfig{}
		}
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LLM_SDK_ENCRYPTION_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			if cfg.Encryption == nil {
				cfg.Encryption = &EncryptionConfig{}
			}
			cfg.Encryption.Enabled = enabled
		}
	}
	if v := os.Getenv("LLM_SDK_METRICS_ADDR"); v != "" {
		if cfg.Metrics == nil {
			cfg.Metrics = &MetricsConfig{}
		}
		cfg.Metrics.Addr = v
	}
}

// ValidationError describes a single configuration problem. Level is either
// "error" (Load fails) or "warning" (Load succeeds but the caller should
// surface it, e.g. via llmctl config inspect).
type ValidationError struct {
	Field   string
	Level   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfiguration checks cfg against the constraints the rest of the
// SDK assumes hold by the time a session starts.
func ValidateConfiguration(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.ChainID == 0 {
		errs = append(errs, ValidationError{
			Field: "chain_id", Level: "error",
			Message: "chain_id must be set to a nonzero network identifier",
		})
	}

	if cfg.Host != nil && cfg.Host.Endpoint != "" && cfg.Host.Address == "" {
		errs = append(errs, ValidationError{
			Field: "host.address", Level: "warning",
			Message: "host.endpoint set without host.address; directory lookup will be skipped but the address cannot be verified against the host-key handshake",
		})
	}

	if cfg.Payment != nil {
		if cfg.Payment.PricePerToken == 0 {
			errs = append(errs, ValidationError{
				Field: "payment.price_per_token", Level: "warning",
				Message: "price_per_token is zero; cost accounting will always compute zero",
			})
		}
		if cfg.Payment.DepositAmount == 0 {
			errs = append(errs, ValidationError{
				Field: "payment.deposit_amount", Level: "error",
				Message: "deposit_amount must be nonzero",
			})
		}
	} else {
		errs = append(errs, ValidationError{
			Field: "payment", Level: "error",
			Message: "payment configuration is required",
		})
	}

	if cfg.RAG != nil && cfg.RAG.Enabled {
		if cfg.RAG.TopK < 1 || cfg.RAG.TopK > 20 {
			errs = append(errs, ValidationError{
				Field: "rag_config.top_k", Level: "error",
				Message: "top_k must be in [1, 20]",
			})
		}
		if cfg.RAG.Threshold < 0 || cfg.RAG.Threshold > 1 {
			errs = append(errs, ValidationError{
				Field: "rag_config.threshold", Level: "error",
				Message: "threshold must be in [0, 1]",
			})
		}
	}

	if cfg.Logging != nil {
		switch strings.ToLower(cfg.Logging.Level) {
		case "debug", "info", "warn", "warning", "error":
		default:
			errs = append(errs, ValidationError{
				Field: "logging.level", Level: "warning",
				Message: fmt.Sprintf("unrecognized log level %q, falling back to info", cfg.Logging.Level),
			})
		}
	}

	return errs
}
