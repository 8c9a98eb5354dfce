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
	"runtime"

	"github.com/jeremyhahn/go-thresholdkms/pkg/codec"
	"github.com/jeremyhahn/go-thresholdkms/pkg/curve"
	"github.com/jeremyhahn/go-thresholdkms/pkg/kdf"
	"github.com/jeremyhahn/go-thresholdkms/pkg/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version information - set via ldflags at build time
var (
	// Version is the semantic version (from VERSION file)
	Version = "dev"
	// GitCommit is the git commit hash
	GitCommit = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

var (
	cfgFile string
	verbose bool
)

// Global flags
var (
	curveName   string
	suiteName   string
	outputCodec string
	metricsFile string
)

// Shared state built in PersistentPreRunE.
var (
	logger    = zap.NewNop()
	collector *metrics.Collector
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tkms",
	Short: "Dealerless threshold key management tool",
	Long: `tkms generates threshold keys without a trusted dealer, sets up
hierarchical group policies with veto groups, issues Merkle-committed
authorization tokens, and performs threshold ECIES encryption.

Use 'tkms keygen' to run a distributed key generation.
Use 'tkms policy' to set up a group policy and issue tokens.
Use 'tkms encrypt', 'tkms partial' and 'tkms decrypt' for threshold encryption.
Use 'tkms token' to verify tokens and evaluate recovery decisions.
Use 'tkms verify' to verify key shares.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME/.tkms")
			viper.AddConfigPath(".")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}

		// Read config file if it exists
		if err := viper.ReadInConfig(); err == nil && verbose {
			fmt.Printf("Using config file: %s\n", viper.ConfigFileUsed())
		}

		// Environment variables
		viper.SetEnvPrefix("TKMS")
		viper.AutomaticEnv()

		l, err := newLogger(viper.GetBool("verbose"))
		if err != nil {
			return err
		}
		logger = l

		if viper.GetString("metrics_file") != "" {
			m, err := metrics.New(nil)
			if err != nil {
				return fmt.Errorf("failed to create metrics collector: %w", err)
			}
			collector = m
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		_ = logger.Sync()
		if path := viper.GetString("metrics_file"); path != "" && collector != nil {
			if err := collector.WriteTextfile(path); err != nil {
				return fmt.Errorf("failed to write metrics: %w", err)
			}
		}
		return nil
	},
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return cfg.Build()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version number and build information of tkms.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tkms version %s\n", Version)
		fmt.Printf("Git commit: %s\n", GitCommit)
		fmt.Printf("Build date: %s\n", BuildTime)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.tkms/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&curveName, "curve", curve.NameSecp256k1, "elliptic curve (secp256k1, P-256)")
	rootCmd.PersistentFlags().StringVar(&suiteName, "suite", kdf.DefaultSuite, "hash suite (sha2, sha2-simd, blake2b, sha3, blake3)")
	rootCmd.PersistentFlags().StringVar(&outputCodec, "codec", codec.JSON, "output file format (json, msgpack, cbor, yaml, bson, toml)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	for key, flag := range map[string]string{
		"curve":        "curve",
		"suite":        "suite",
		"codec":        "codec",
		"metrics_file": "metrics-file",
		"verbose":      "verbose",
	} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind %s flag: %v", flag, err))
		}
	}

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(partialCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(configCmd)
}
