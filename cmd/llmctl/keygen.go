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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	sagecrypto "github.com/fabstir/llm-marketplace-sdk/crypto"
	"github.com/fabstir/llm-marketplace-sdk/crypto/keys"
)

var keygenOutputFile string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new secp256k1 identity key pair",
	Long: `Generate a new secp256k1 key pair suitable for use as a user or host
identity: the private key, compressed public key, and the derived
EIP-55 address.`,
	Example: `  # Print a new identity to stdout
  llmctl keygen

  # Save it to a file
  llmctl keygen --output identity.json`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVarP(&keygenOutputFile, "output", "o", "", "output file (default: stdout)")
}

type keygenOutput struct {
	PrivateKeyHex string `json:"private_key_hex"`
	PublicKeyHex  string `json:"public_key_compressed_hex"`
	Address       string `json:"address"`
}

func runKeygen(cmd *cobra.Command, args []string) error {
	kp, err := keys.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("llmctl: generate key pair: %w", err)
	}
	defer kp.Zero()

	out := keygenOutput{
		PrivateKeyHex: sagecrypto.HexEncode(keys.PrivateKeyBytes(kp)),
		PublicKeyHex:  sagecrypto.HexEncode(kp.PublicKeyCompressed()),
		Address:       kp.Address(),
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("llmctl: marshal key pair: %w", err)
	}
	data = append(data, '\n')

	if keygenOutputFile == "" {
		fmt.Print(string(data))
		return nil
	}
	if err := os.WriteFile(keygenOutputFile, data, 0o600); err != nil {
		return fmt.Errorf("llmctl: write output file: %w", err)
	}
	fmt.Printf("Identity saved to: %s\n", keygenOutputFile)
	return nil
}
