// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/refsync/pkg/types"
)

// Report is the YAML document written by --report.
type Report struct {
	RunID    string    `yaml:"run_id"`
	Started  time.Time `yaml:"started"`
	Finished time.Time `yaml:"finished"`

	Folder  string           `yaml:"folder"`
	BibFile string           `yaml:"bib_file"`
	DryRun  bool             `yaml:"dry_run"`
	Dedupe  types.DedupeMode `yaml:"dedupe"`

	Summary ReportSummary `yaml:"summary"`
	Files   []FileResult  `yaml:"files"`
}

// ReportSummary holds the outcome counts.
type ReportSummary struct {
	Renamed     int `yaml:"renamed"`
	Skipped     int `yaml:"skipped"`
	Quarantined int `yaml:"quarantined"`
	Failed      int `yaml:"failed"`
	Unchanged   int `yaml:"unchanged"`
	Total       int `yaml:"total"`
}

// NewReport assembles the report for res.
func NewReport(cfg types.SyncConfig, res BatchResult) Report {
	return Report{
		RunID:    res.RunID,
		Started:  res.Started,
		Finished: res.Finished,
		Folder:   cfg.Folder,
		BibFile:  cfg.BibFile,
		DryRun:   res.DryRun,
		Dedupe:   cfg.Dedupe,
		Summary: ReportSummary{
			Renamed:     res.Renamed,
			Skipped:     res.Skipped,
			Quarantined: res.Quarantined,
			Failed:      res.Failed,
			Unchanged:   res.Unchanged,
			Total:       res.Total(),
		},
		Files: res.Files,
	}
}

// WriteReport writes the YAML report of res to path.
func WriteReport(path string, cfg types.SyncConfig, res BatchResult) error {
	data, err := yaml.Marshal(NewReport(cfg, res))
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}
