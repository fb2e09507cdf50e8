// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/pdiddy/refsync/internal/secrets"
	"github.com/pdiddy/refsync/pkg/types"
)

// setDefaults registers every config key so environment variables such as
// REFSYNC_LOOKUP_MAILTO are seen by Unmarshal.
func setDefaults() {
	d := types.DefaultSyncConfig()
	viper.SetDefault("folder", d.Folder)
	viper.SetDefault("bib_file", d.BibFile)
	viper.SetDefault("dry_run", d.DryRun)
	viper.SetDefault("no_tracker", d.NoTracker)
	viper.SetDefault("rebuild_tracker", d.RebuildTracker)
	viper.SetDefault("dedupe", string(d.Dedupe))
	viper.SetDefault("duplicates_dir", d.DuplicatesDir)
	viper.SetDefault("skipped_dir", d.SkippedDir)
	viper.SetDefault("min_title_words", d.MinTitleWords)
	viper.SetDefault("max_title_words", d.MaxTitleWords)
	viper.SetDefault("report_path", d.ReportPath)

	l := d.Lookup
	viper.SetDefault("lookup.timeout", l.Timeout)
	viper.SetDefault("lookup.user_agent", l.UserAgent)
	viper.SetDefault("lookup.primary_rows", l.PrimaryRows)
	viper.SetDefault("lookup.secondary_limit", l.SecondaryLimit)
	viper.SetDefault("lookup.secondary_delay", l.SecondaryDelay)
	viper.SetDefault("lookup.max_attempts", l.MaxAttempts)
	viper.SetDefault("lookup.requests_per_second", l.RequestsPerSecond)
	viper.SetDefault("lookup.enable_semantic_scholar", l.EnableSemanticScholar)
	viper.SetDefault("lookup.enable_openalex", l.EnableOpenAlex)
	viper.SetDefault("lookup.enable_arxiv", l.EnableArxiv)
	viper.SetDefault("lookup.fetch_bibtex", l.FetchBibTeX)
	viper.SetDefault("lookup.semantic_scholar_api_key", "")
	viper.SetDefault("lookup.mailto", "")
}

// loadSyncConfig layers flags, environment, config file and defaults into a
// validated SyncConfig. A positional folder argument overrides the config.
func loadSyncConfig(args []string) (types.SyncConfig, error) {
	cfg := types.DefaultSyncConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	if len(args) > 0 {
		cfg.Folder = args[0]
	}
	applySecrets(&cfg.Lookup)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadLookupConfig returns only the lookup section.
func loadLookupConfig() (types.LookupConfig, error) {
	cfg := types.DefaultLookupConfig()
	if err := viper.UnmarshalKey("lookup", &cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	applySecrets(&cfg)
	return cfg, nil
}

// applySecrets fills credentials the config left empty and adds the
// contact address to the default User-Agent.
func applySecrets(cfg *types.LookupConfig) {
	cfg.SemanticScholarAPIKey = secretDefault(secrets.SemanticScholarAPIKey, cfg.SemanticScholarAPIKey)
	cfg.Mailto = secretDefault(secrets.CrossrefMailto, cfg.Mailto)
	cfg.Mailto = secretDefault(secrets.OpenAlexEmail, cfg.Mailto)
	if cfg.Mailto != "" && cfg.UserAgent == types.DefaultUserAgent {
		cfg.UserAgent = fmt.Sprintf("%s (mailto:%s)", types.DefaultUserAgent, cfg.Mailto)
	}
}
