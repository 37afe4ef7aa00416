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

	"github.com/spf13/cobra"

	"github.com/fabstir/llm-marketplace-sdk/config"
)

var (
	configDir string
	configEnv string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect resolved SDK configuration",
}

var configInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load and print the fully-resolved configuration",
	Long: `Load configuration the same way an SDK client does at startup: read
config/<environment>.yaml, or config/default.yaml when that file does not
exist (the two are not merged), substitute ${VAR:default}
placeholders, and apply any LLM_SDK_* environment overrides, then print the
result and any validation errors found.`,
	Example: `  llmctl config inspect
  llmctl config inspect --config-dir ./config --env production`,
	RunE: runConfigInspect,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInspectCmd)

	configInspectCmd.Flags().StringVar(&configDir, "config-dir", "config", "directory containing <environment>.yaml / default.yaml")
	configInspectCmd.Flags().StringVar(&configEnv, "env", "", "environment overlay to load (default: LLM_SDK_ENV or \"development\")")
}

func runConfigInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.LoaderOptions{
		ConfigDir:         configDir,
		Environment:       configEnv,
		ApplyEnvOverrides: true,
	})
	if err != nil {
		return fmt.Errorf("llmctl: load config: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("llmctl: marshal config: %w", err)
	}
	fmt.Println(string(data))

	if problems := config.ValidateConfiguration(cfg); len(problems) > 0 {
		fmt.Println("\nValidation issues:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p.Error())
		}
	}
	return nil
}
