// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the refsync CLI. refsync renames a
// folder of PDFs to canonical author-year-title names and links each one
// from a BibTeX bibliography.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/refsync/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ and .env at startup.
var loadedSecrets map[string]string

// logger is the process-wide logger; --verbose lowers it to debug.
var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "refsync"})

// secretDefault returns fallback when set, else the secret stored under key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets[key]
}

var rootCmd = &cobra.Command{
	Use:   "refsync",
	Short: "Rename PDFs to canonical names and link them from a BibTeX file",
	Long: `refsync walks a folder of PDFs, guesses each title from the embedded
metadata, the filename or the first page, resolves it against Crossref and
Semantic Scholar, renames the file to {Author}{Year}{TitleWords}.pdf and
records it in a BibTeX bibliography with a file link.

Duplicates are detected by content hash, by DOI and by title and author. A
ledger in the folder remembers handled files between runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose || viper.GetBool("verbose") {
			logger.SetLevel(log.DebugLevel)
		}
		s, err := secrets.LoadAll(".secrets/", ".env")
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
			logger.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./refsync.yaml or ~/.config/refsync/refsync.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("refsync")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "refsync"))
		}
	}

	viper.SetEnvPrefix("REFSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
