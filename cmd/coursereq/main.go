// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the coursereq CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/coursereq/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the coursereq CLI.
var rootCmd = &cobra.Command{
	Use:   "coursereq",
	Short: "Parse course prerequisite and corequisite expressions",
	Long: `coursereq turns the requisite sentences of course descriptions into
structured AND/OR trees over course codes.

An external text-transformation service reduces each description to two
boolean expressions such as "(CS 2110 OR CS 2112) AND CS 2800". The CLI
parses them (parse), runs a whole catalog through the service (extract),
indexes the results in SQLite (store) and answers questions about them
(query, check).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir := viper.GetString("secrets_dir")
		s, err := secrets.Load(dir, os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./coursereq.yaml or ~/.config/coursereq/config.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of secret files")
	rootCmd.PersistentFlags().Int("max-depth", 0, "maximum expression nesting depth (0 = default)")

	viper.BindPFlag("secrets_dir", rootCmd.PersistentFlags().Lookup("secrets-dir"))
	viper.BindPFlag("parse.max_depth", rootCmd.PersistentFlags().Lookup("max-depth"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("coursereq")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "coursereq"))
		}
	}

	viper.SetEnvPrefix("COURSEREQ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
