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

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	sagecrypto "github.com/fabstir/llm-marketplace-sdk/crypto"
	"github.com/fabstir/llm-marketplace-sdk/hostkey"
)

var (
	smokeTestHostAddress  string
	smokeTestHostEndpoint string
	smokeTestTimeout      time.Duration
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Session diagnostics",
}

var sessionSmokeTestCmd = &cobra.Command{
	Use:   "smoke-test",
	Short: "Resolve a host's static key and capabilities without opening a session",
	Long: `Runs the host-key resolution handshake and capability
detection (GET /v1/version) against a host, reporting the host's public
key/address and advertised features. The key resolution is the same one an
encrypted session performs before its first prompt; start_session itself
does neither step. No job deposit is spent and no WebSocket transport is
opened.`,
	Example: `  llmctl session smoke-test --host-address 0xabc... --host-endpoint https://host.example.com`,
	RunE: runSessionSmokeTest,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionSmokeTestCmd)

	sessionSmokeTestCmd.Flags().StringVar(&smokeTestHostAddress, "host-address", "", "expected EIP-55 address of the host (required)")
	sessionSmokeTestCmd.Flags().StringVar(&smokeTestHostEndpoint, "host-endpoint", "", "host's HTTP(S) base endpoint (required)")
	sessionSmokeTestCmd.Flags().DurationVar(&smokeTestTimeout, "timeout", 15*time.Second, "overall timeout for the smoke test")
}

func runSessionSmokeTest(cmd *cobra.Command, args []string) error {
	if smokeTestHostAddress == "" || smokeTestHostEndpoint == "" {
		return fmt.Errorf("llmctl: --host-address and --host-endpoint are required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), smokeTestTimeout)
	defer cancel()

	resolver := hostkey.New(nil)

	fmt.Printf("Resolving host key for %s at %s ...\n", smokeTestHostAddress, smokeTestHostEndpoint)
	start := time.Now()
	pubKey, err := resolver.Resolve(ctx, smokeTestHostAddress, smokeTestHostEndpoint)
	if err != nil {
		return fmt.Errorf("llmctl: host key resolution failed: %w", err)
	}
	fmt.Printf("  OK (%s)\n", time.Since(start))
	fmt.Printf("  public key: %s\n", sagecrypto.HexEncode(pubKey))

	fmt.Println("Fetching host capabilities ...")
	caps, err := resolver.FetchCapabilities(ctx, smokeTestHostEndpoint)
	if err != nil {
		fmt.Printf("  capability detection failed (non-fatal): %v\n", err)
		return nil
	}
	fmt.Printf("  host version: %s\n", caps.Version)
	for _, token := range []string{
		hostkey.FeatureHostSideWebSearch,
		hostkey.FeatureInferenceWebSearch,
		hostkey.FeatureStreamingWebSearch,
		hostkey.FeatureWebsocketWebSearch,
		hostkey.ProviderBraveSearchAPI,
		hostkey.ProviderDuckDuckGoFallback,
		hostkey.ProviderBingSearchAPI,
	} {
		fmt.Printf("  %-24s %v\n", token, caps.Has(token))
	}
	return nil
}
