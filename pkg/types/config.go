// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by the lookup backends.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "refsync/0.1 (mailto:you@example.org)").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// LookupConfig holds settings for title resolution against external services.
type LookupConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// PrimaryRows is how many Crossref results are requested per query (default 3).
	PrimaryRows int `json:"primary_rows" yaml:"primary_rows" mapstructure:"primary_rows"`

	// SecondaryLimit is how many Semantic Scholar results are requested (default 1).
	SecondaryLimit int `json:"secondary_limit" yaml:"secondary_limit" mapstructure:"secondary_limit"`

	// SecondaryDelay is the pause before each uncached Semantic Scholar call (default 1s).
	SecondaryDelay time.Duration `json:"secondary_delay" yaml:"secondary_delay" mapstructure:"secondary_delay"`

	// MaxAttempts bounds the attempts per HTTP request (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// RequestsPerSecond caps the request rate of each backend (default 5).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// EnableSemanticScholar controls the secondary backend (default true).
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`

	// EnableOpenAlex adds OpenAlex as an extra optional backend.
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex" mapstructure:"enable_openalex"`

	// EnableArxiv adds arXiv as an extra optional backend.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv" mapstructure:"enable_arxiv"`

	// FetchBibTeX enables DOI content negotiation for the entry fields (default true).
	FetchBibTeX bool `json:"fetch_bibtex" yaml:"fetch_bibtex" mapstructure:"fetch_bibtex"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// Mailto is the contact address sent to Crossref and OpenAlex for polite pool access.
	Mailto string `json:"mailto,omitempty" yaml:"mailto,omitempty" mapstructure:"mailto"`
}

// SyncConfig holds settings for one folder sync run.
type SyncConfig struct {
	// Folder is the directory whose PDFs are processed.
	Folder string `json:"folder" yaml:"folder" mapstructure:"folder"`

	// BibFile is the bibliography path. Relative paths resolve against Folder.
	BibFile string `json:"bib_file" yaml:"bib_file" mapstructure:"bib_file"`

	DryRun         bool `json:"dry_run" yaml:"dry_run" mapstructure:"dry_run"`
	NoTracker      bool `json:"no_tracker" yaml:"no_tracker" mapstructure:"no_tracker"`
	RebuildTracker bool `json:"rebuild_tracker" yaml:"rebuild_tracker" mapstructure:"rebuild_tracker"`

	// Dedupe selects the action for duplicates (default quarantine).
	Dedupe DedupeMode `json:"dedupe" yaml:"dedupe" mapstructure:"dedupe"`

	// DuplicatesDir is the quarantine subfolder name (default "_duplicates").
	DuplicatesDir string `json:"duplicates_dir" yaml:"duplicates_dir" mapstructure:"duplicates_dir"`

	// SkippedDir receives files without a plausible title (default "_skipped").
	SkippedDir string `json:"skipped_dir" yaml:"skipped_dir" mapstructure:"skipped_dir"`

	// MinTitleWords and MaxTitleWords bound the title words in a stem (default 2 and 6).
	MinTitleWords int `json:"min_title_words" yaml:"min_title_words" mapstructure:"min_title_words"`
	MaxTitleWords int `json:"max_title_words" yaml:"max_title_words" mapstructure:"max_title_words"`

	// ReportPath, when set, receives a YAML report of the run.
	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty" mapstructure:"report_path"`

	Lookup LookupConfig `json:"lookup" yaml:"lookup" mapstructure:"lookup"`
}

// Default values shared by the CLI and tests.
const (
	DefaultBibFile        = "library.bib"
	DefaultDuplicatesDir  = "_duplicates"
	DefaultSkippedDir     = "_skipped"
	DefaultUserAgent      = "refsync/0.1"
	DefaultTimeout        = 20 * time.Second
	DefaultSecondaryDelay = 1 * time.Second
)

// DefaultSyncConfig returns a SyncConfig with every default filled in.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Folder:        ".",
		BibFile:       DefaultBibFile,
		Dedupe:        DedupeQuarantine,
		DuplicatesDir: DefaultDuplicatesDir,
		SkippedDir:    DefaultSkippedDir,
		MinTitleWords: 2,
		MaxTitleWords: 6,
		Lookup:        DefaultLookupConfig(),
	}
}

// DefaultLookupConfig returns the lookup defaults.
func DefaultLookupConfig() LookupConfig {
	return LookupConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   DefaultTimeout,
			UserAgent: DefaultUserAgent,
		},
		PrimaryRows:           3,
		SecondaryLimit:        1,
		SecondaryDelay:        DefaultSecondaryDelay,
		MaxAttempts:           3,
		RequestsPerSecond:     5,
		EnableSemanticScholar: true,
		FetchBibTeX:           true,
	}
}

// Validate checks the settings that cannot be defaulted.
func (c SyncConfig) Validate() error {
	var errs []error
	if c.Folder == "" {
		errs = append(errs, errors.New("folder is required"))
	}
	if c.BibFile == "" {
		errs = append(errs, errors.New("bib file is required"))
	}
	if _, err := ParseDedupeMode(string(c.Dedupe)); err != nil {
		errs = append(errs, err)
	}
	if c.DuplicatesDir == "" || c.SkippedDir == "" {
		errs = append(errs, errors.New("duplicates and skipped directories must be named"))
	}
	if c.MinTitleWords < 1 || c.MaxTitleWords < c.MinTitleWords {
		errs = append(errs, fmt.Errorf("invalid title word bounds %d..%d", c.MinTitleWords, c.MaxTitleWords))
	}
	return errors.Join(errs...)
}
