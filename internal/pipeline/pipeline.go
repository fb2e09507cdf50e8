// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline syncs a folder of PDFs into a bibliography. Each file is
// hashed, its title guessed and resolved, checked for duplicates, renamed to
// its canonical stem and linked from a bibliography entry.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/pdiddy/refsync/internal/bibfile"
	"github.com/pdiddy/refsync/internal/dedupe"
	"github.com/pdiddy/refsync/internal/lookup"
	"github.com/pdiddy/refsync/internal/pdfmeta"
	"github.com/pdiddy/refsync/internal/resolve"
	"github.com/pdiddy/refsync/internal/stem"
	"github.com/pdiddy/refsync/internal/titles"
	"github.com/pdiddy/refsync/internal/tracker"
	"github.com/pdiddy/refsync/pkg/types"
)

// TitleResolver resolves candidate titles to a bibliographic record.
type TitleResolver interface {
	ResolveCandidates(ctx context.Context, cands []titles.Candidate, author string) (resolve.Resolution, error)
}

// BibTeXFetcher returns the BibTeX record registered for a DOI.
type BibTeXFetcher interface {
	FetchBibTeX(ctx context.Context, doi string) (string, error)
}

// Runner processes one folder. Fields left nil get defaults in Run, except
// Resolver, which is required.
type Runner struct {
	Config     types.SyncConfig
	PDF        pdfmeta.Reader
	Resolver   TitleResolver
	BibTeX     BibTeXFetcher
	Generators []titles.Generator

	Logger *log.Logger
	Out    io.Writer
	Now    func() time.Time
}

// New wires a Runner to the lookup services enabled in cfg.
func New(cfg types.SyncConfig, logger *log.Logger, out io.Writer) *Runner {
	set := lookup.NewSet(cfg.Lookup, logger)
	r := &Runner{
		Config:   cfg,
		PDF:      pdfmeta.FileReader{},
		Resolver: resolve.New(set, cfg.Lookup, logger),
		Logger:   logger,
		Out:      out,
	}
	if set.DOI != nil {
		r.BibTeX = set.DOI
	}
	return r
}

// FileResult is the outcome of one PDF.
type FileResult struct {
	File       string              `yaml:"file"`
	Outcome    types.Outcome       `yaml:"outcome"`
	Reason     string              `yaml:"reason,omitempty"`
	NewPath    string              `yaml:"new_path,omitempty"`
	Duplicate  types.DuplicateKind `yaml:"duplicate,omitempty"`
	Key        string              `yaml:"key,omitempty"`
	Confidence types.Confidence    `yaml:"confidence,omitempty"`
	DOI        string              `yaml:"doi,omitempty"`
	Error      string              `yaml:"error,omitempty"`

	Err error `yaml:"-"`
}

// BatchResult summarizes a run.
type BatchResult struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	DryRun   bool

	Renamed     int
	Skipped     int
	Quarantined int
	Failed      int

	// Unchanged counts PDFs filtered out because the bibliography links
	// them or the tracker lists them.
	Unchanged int

	// Rebuilt is the size of the processed set after a tracker rebuild.
	Rebuilt int

	Files []FileResult
}

// Total returns the number of files processed.
func (r BatchResult) Total() int {
	return r.Renamed + r.Skipped + r.Quarantined + r.Failed
}

// HasFailures reports whether any file ended in error.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Summary is the one-line human summary of the run.
func (r BatchResult) Summary() string {
	return fmt.Sprintf("Batch summary: %d renamed, %d skipped, %d quarantined, %d failed (total: %d)",
		r.Renamed, r.Skipped, r.Quarantined, r.Failed, r.Total())
}

func (r *BatchResult) add(fr FileResult) {
	switch fr.Outcome {
	case types.OutcomeRenamed:
		r.Renamed++
	case types.OutcomeSkipped:
		r.Skipped++
	case types.OutcomeQuarantined:
		r.Quarantined++
	case types.OutcomeError:
		r.Failed++
	}
	r.Files = append(r.Files, fr)
}

// run is the state shared by the files of one folder.
type run struct {
	folder  string
	bibPath string
	lib     *bibfile.Library
	ledger  *tracker.Ledger
	recon   *dedupe.Reconciler
	linked  map[string]bool
	planned map[string]bool // stems claimed in dry-run mode
	claimed map[string]bool // lowercase destination paths handed out so far
}

// Run processes every PDF in the configured folder. Per-file failures are
// reported in the result; the returned error covers setup failures and
// cancellation.
func (r *Runner) Run(ctx context.Context) (BatchResult, error) {
	r.defaults()
	res := BatchResult{RunID: uuid.NewString(), Started: r.Now(), DryRun: r.Config.DryRun}

	st, err := r.open()
	if err != nil {
		return res, err
	}
	defer st.lib.Close()

	names, err := listPDFs(st.folder)
	if err != nil {
		return res, err
	}

	if r.Config.RebuildTracker {
		err := r.rebuild(st, names, &res)
		res.Finished = r.Now()
		return res, err
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			res.Finished = r.Now()
			return res, err
		}
		if st.linked[strings.ToLower(name)] {
			r.Logger.Debug("already linked in bibliography", "file", name)
			res.Unchanged++
			continue
		}
		if !r.Config.NoTracker && st.ledger.IsProcessed(name) {
			r.Logger.Debug("listed in tracker", "file", name)
			res.Unchanged++
			continue
		}

		fr := r.processFile(ctx, st, name)
		r.report(fr)
		res.add(fr)
	}

	res.Finished = r.Now()
	fmt.Fprintf(r.Out, "\n%s\n", res.Summary())
	if r.Config.ReportPath != "" {
		if err := WriteReport(r.Config.ReportPath, r.Config, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (r *Runner) defaults() {
	if r.Logger == nil {
		r.Logger = log.New(io.Discard)
	}
	if r.Out == nil {
		r.Out = io.Discard
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	if r.PDF == nil {
		r.PDF = pdfmeta.FileReader{}
	}
	if r.Generators == nil {
		r.Generators = titles.DefaultGenerators
	}
}

func (r *Runner) stemOptions() stem.Options {
	opts := stem.DefaultOptions
	if r.Config.MinTitleWords > 0 {
		opts.MinWords = r.Config.MinTitleWords
	}
	if r.Config.MaxTitleWords > 0 {
		opts.MaxWords = r.Config.MaxTitleWords
	}
	return opts
}

func (r *Runner) open() (*run, error) {
	if r.Resolver == nil && !r.Config.RebuildTracker {
		return nil, fmt.Errorf("pipeline: no resolver configured")
	}
	folder := r.Config.Folder
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("opening folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening folder: %s is not a directory", folder)
	}

	bibPath := r.Config.BibFile
	if bibPath == "" {
		bibPath = types.DefaultBibFile
	}
	if !filepath.IsAbs(bibPath) {
		bibPath = filepath.Join(folder, bibPath)
	}

	lib, err := bibfile.Load(bibPath)
	if err != nil {
		return nil, fmt.Errorf("loading bibliography: %w", err)
	}
	ledger, err := tracker.Load(folder, r.Logger)
	if err != nil {
		lib.Close()
		return nil, fmt.Errorf("loading tracker: %w", err)
	}
	linked, err := lib.LinkedBasenames()
	if err != nil {
		lib.Close()
		return nil, err
	}

	return &run{
		folder:  folder,
		bibPath: bibPath,
		lib:     lib,
		ledger:  ledger,
		recon:   &dedupe.Reconciler{Ledger: ledger, Library: lib, Stem: r.stemOptions()},
		linked:  linked,
		planned: make(map[string]bool),
		claimed: make(map[string]bool),
	}, nil
}

// rebuild resets the tracker to the folder PDFs the bibliography links.
func (r *Runner) rebuild(st *run, names []string, res *BatchResult) error {
	var processed []string
	for _, name := range names {
		if st.linked[strings.ToLower(name)] {
			processed = append(processed, name)
		}
	}
	st.ledger.Rebuild(processed)
	res.Rebuilt = len(processed)
	if !r.Config.DryRun {
		if err := st.ledger.Save(); err != nil {
			return err
		}
	}
	fmt.Fprintf(r.Out, "%sTracker rebuilt with %d entries from bibliography links.\n", r.dryPrefix(), len(processed))
	return nil
}

// listPDFs returns the regular .pdf files directly inside dir, sorted.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (r *Runner) dryPrefix() string {
	if r.Config.DryRun {
		return "(dry-run) "
	}
	return ""
}

// report prints the status line for fr.
func (r *Runner) report(fr FileResult) {
	p := r.dryPrefix()
	switch fr.Outcome {
	case types.OutcomeRenamed:
		fmt.Fprintf(r.Out, "%srenamed:     %s -> %s (key %s)\n", p, fr.File, filepath.Base(fr.NewPath), fr.Key)
	case types.OutcomeQuarantined:
		fmt.Fprintf(r.Out, "%squarantined: %s -> %s (%s)\n", p, fr.File, fr.NewPath, fr.Reason)
	case types.OutcomeSkipped:
		fmt.Fprintf(r.Out, "%sskipped:     %s (%s)\n", p, fr.File, fr.Reason)
	case types.OutcomeError:
		fmt.Fprintf(r.Out, "failed:      %s (%v)\n", fr.File, fr.Err)
	}
}
