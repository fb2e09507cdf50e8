// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/refsync/internal/pipeline"
	"github.com/pdiddy/refsync/pkg/types"
)

var syncCmd = &cobra.Command{
	Use:   "sync [folder]",
	Short: "Rename and link the PDFs in a folder",
	Long: `Sync processes every PDF directly inside folder (default: the current
directory) that the bibliography does not already link and the ledger does not
list. Each file ends renamed, skipped, quarantined or in error; errors are
retried on the next run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	f := syncCmd.Flags()
	f.String("bib", types.DefaultBibFile, "bibliography file, relative to the folder")
	f.Bool("dry-run", false, "preview actions without writing changes")
	f.Bool("no-tracker", false, "ignore the ledger's processed list")
	f.Bool("rebuild-tracker", false, "rebuild the ledger from bibliography links and exit")
	f.String("dedupe", string(types.DedupeQuarantine), "duplicate handling: skip, quarantine or replace")
	f.String("duplicates-dir", types.DefaultDuplicatesDir, "folder name for quarantined duplicates")
	f.String("skipped-dir", types.DefaultSkippedDir, "folder name for PDFs without a usable title")
	f.String("report", "", "write a YAML run report to this path")

	for key, flag := range map[string]string{
		"bib_file":        "bib",
		"dry_run":         "dry-run",
		"no_tracker":      "no-tracker",
		"rebuild_tracker": "rebuild-tracker",
		"dedupe":          "dedupe",
		"duplicates_dir":  "duplicates-dir",
		"skipped_dir":     "skipped-dir",
		"report_path":     "report",
	} {
		if err := viper.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadSyncConfig(args)
	if err != nil {
		return err
	}
	logger.Debug("sync", "folder", cfg.Folder, "bib", cfg.BibFile, "dedupe", cfg.Dedupe, "dry_run", cfg.DryRun)

	runner := pipeline.New(cfg, logger, cmd.OutOrStdout())
	result, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed", result.Failed)
	}
	return nil
}
