// SPDX-License-Identifier: Apache-2.0
//
// Copyright 2025 Jeremy Hahn
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configOutput string
	configForce  bool
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Generate and manage tkms configuration files.

Configuration files use YAML format and can specify default values for
all command-line flags. Command-line flags override config file values.

Environment variables can also be used with the TKMS_ prefix.
For example: TKMS_CURVE=P-256

Examples:
  # Generate default config file
  tkms config init

  # Generate config file in custom location
  tkms config init --output /etc/tkms/config.yaml

  # Show current config
  tkms config show`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a sample configuration file",
	Long:  `Generate a sample configuration file with default values and documentation.`,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration including values from config file, environment, and defaults.`,
	Run:   runConfigShow,
}

func init() {
	configInitCmd.Flags().StringVarP(&configOutput, "output", "o", "", "output path (default: $HOME/.tkms/config.yaml)")
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

const sampleConfig = `# tkms configuration file
# Command-line flags override these values

# Elliptic curve
# Options: secp256k1, P-256
curve: secp256k1

# Hash suite for tokens, ledger, hash-to-curve and ECIES
# Options: sha2, sha2-simd, blake2b, sha3, blake3
suite: sha2

# Artifact codec, also selected by file extension when reading
# Options: json, msgpack, cbor, yaml, bson, toml
codec: json

# Write Prometheus metrics to this file after each command
metrics_file: ""

# Verbose output
verbose: false

# Key generation settings
keygen:
  participants: 3
  threshold: 2
  output_dir: "."

# Policy settings
policy:
  file: ""                              # policy.yaml, see 'tkms policy --help'

# Verify settings
verify:
  group_key: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	outputPath := configOutput
	if outputPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		outputPath = filepath.Join(homeDir, ".tkms", "config.yaml")
	}

	if _, err := os.Stat(outputPath); err == nil && !configForce {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", outputPath)
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(sampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Configuration file created: %s\n", outputPath)
	fmt.Println("\nEdit the file to customize settings, or use command-line flags to override.")
	fmt.Printf("\nTo use this config file:\n")
	fmt.Printf("  tkms --config %s <command>\n", outputPath)

	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) {
	fmt.Println("Current Configuration:")
	fmt.Println("======================")

	settings := viper.AllSettings()
	if len(settings) == 0 {
		fmt.Println("No configuration loaded (using defaults)")
		return
	}

	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("%s: %v\n", key, settings[key])
	}

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("\nLoaded from: %s\n", viper.ConfigFileUsed())
	}

	fmt.Println("\nEnvironment variables with TKMS_ prefix override these values.")
	fmt.Println("Command-line flags override both config file and environment variables.")
}
