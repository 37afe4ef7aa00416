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

// Command llmctl is the operator CLI for the LLM marketplace SDK: key
// generation, address derivation, config inspection, and a session
// smoke-test against a running host, sharing the crypto/keys/hostkey/config
// packages used by library callers.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "llmctl",
	Short: "llmctl - key management and session tooling for the LLM marketplace SDK",
	Long: `llmctl provides operator tools for the LLM marketplace SDK:

- secp256k1 identity key generation
- Ethereum address derivation and EIP-55 checksum validation
- a session smoke-test that resolves a host's static key and reports its
  advertised capabilities, without opening a session or sending any prompt`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile == "" {
			// A missing default .env is not an error; explicit --env-file is.
			_ = godotenv.Load()
			return nil
		}
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("llmctl: load env file %s: %w", envFile, err)
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file (default: .env if present)")

	// Subcommands register themselves in their own files:
	// - keygen.go: keygenCmd
	// - address.go: addressCmd (+ addressDeriveCmd, addressChecksumCmd)
	// - session.go: sessionCmd (+ sessionSmokeTestCmd)
}
