// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/refsync/internal/bibfile"
	"github.com/pdiddy/refsync/internal/dedupe"
	"github.com/pdiddy/refsync/internal/stem"
	"github.com/pdiddy/refsync/internal/titles"
	"github.com/pdiddy/refsync/pkg/types"
)

// processFile walks one PDF through hash check, title guess, resolution,
// duplicate check and rename. It never returns without an outcome.
func (r *Runner) processFile(ctx context.Context, st *run, name string) FileResult {
	path := filepath.Join(st.folder, name)
	logger := r.Logger.With("file", name)
	fail := func(err error) FileResult { return r.errorResult(logger, name, err) }

	hash, err := dedupe.HashFile(path)
	if err != nil {
		return fail(err)
	}
	d, err := st.recon.Classify(name, hash, nil)
	if err != nil {
		return fail(err)
	}
	if d.Duplicate() {
		logger.Info("same content seen before", "canonical", d.Canonical)
		return r.duplicate(st, logger, name, d, nil)
	}

	md, err := r.PDF.Read(path)
	if err != nil {
		logger.Warn("cannot read PDF", "err", err)
		return r.moveSkipped(st, logger, name, "unreadable PDF")
	}
	cands := titles.ExtractWith(r.Generators, titles.Input{
		MetadataTitle:  md.Title,
		MetadataAuthor: md.Author,
		FirstPage:      md.FirstPage,
		Filename:       name,
	})
	if len(cands) == 0 {
		return r.moveSkipped(st, logger, name, "no plausible title")
	}
	logger.Debug("title candidates", "count", len(cands), "first", cands[0].Text)

	resolution, err := r.Resolver.ResolveCandidates(ctx, cands, md.Author)
	if err != nil {
		return fail(fmt.Errorf("resolving title: %w", err))
	}
	if !resolution.Match.Found() {
		logger.Info("no bibliographic match", "lookups", resolution.Lookups)
		return FileResult{File: name, Outcome: types.OutcomeSkipped, Reason: "no match"}
	}
	rec := resolution.Match.Record
	logger.Debug("resolved", "title", rec.Title, "doi", rec.ExternalID,
		"confidence", resolution.Match.Confidence, "query", resolution.Query)

	d, err = st.recon.Classify(name, "", &rec)
	if err != nil {
		return fail(err)
	}
	if d.Duplicate() {
		logger.Info("already in bibliography", "rule", d.Kind, "key", d.Key)
		fr := r.duplicate(st, logger, name, d, &rec)
		fr.Confidence = resolution.Match.Confidence
		fr.DOI = rec.ExternalID
		return fr
	}

	fr, err := r.rename(ctx, st, logger, name, hash, rec)
	if err != nil {
		return fail(err)
	}
	fr.Confidence = resolution.Match.Confidence
	return fr
}

// rename moves the PDF to its canonical stem and records it in the
// bibliography and ledger.
func (r *Runner) rename(ctx context.Context, st *run, logger *log.Logger, name, hash string, rec types.Record) (FileResult, error) {
	path := filepath.Join(st.folder, name)
	entry := r.entryFor(ctx, logger, rec)

	year := entry.Field("year")
	if year == "" {
		year = rec.Year
	}
	taken, err := stem.ExistingStems(st.folder)
	if err != nil {
		return FileResult{}, err
	}
	// The file's own name is free for it to keep.
	delete(taken, strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name))))
	for s := range st.planned {
		taken[s] = true
	}
	s := stem.Build(taken, rec.FirstAuthorFamily(), year, stem.TitleWords(rec.Title), r.stemOptions())
	newPath := stem.UniquePathExcept(st.folder, s, ".pdf", path, st.claimed)
	newBase := filepath.Base(newPath)
	st.planned[strings.ToLower(strings.TrimSuffix(newBase, ".pdf"))] = true
	st.claimed[strings.ToLower(newPath)] = true

	if !r.Config.DryRun && newPath != path {
		if err := os.Rename(path, newPath); err != nil {
			return FileResult{}, fmt.Errorf("renaming %s: %w", name, err)
		}
	}

	entry.Key = strings.TrimSuffix(newBase, ".pdf")
	entry.SetFile(bibfile.RelPath(st.bibPath, newPath))
	key, updated, err := st.lib.Upsert(entry)
	if err != nil {
		return FileResult{}, fmt.Errorf("updating bibliography: %w", err)
	}
	st.linked[strings.ToLower(newBase)] = true
	st.ledger.RecordHash(hash, newBase)
	r.markProcessed(st, name)

	if err := r.persist(st, true); err != nil {
		return FileResult{}, err
	}
	logger.Info("renamed", "to", newBase, "key", key, "updated", updated)
	return FileResult{
		File:    name,
		Outcome: types.OutcomeRenamed,
		NewPath: newPath,
		Key:     key,
		DOI:     rec.ExternalID,
	}, nil
}

// entryFor builds the bibliography entry for rec, preferring the record the
// DOI registration agency serves. Fetch or parse failures fall back to the
// resolved metadata.
func (r *Runner) entryFor(ctx context.Context, logger *log.Logger, rec types.Record) bibfile.Entry {
	base := bibfile.FromRecord(rec, "")
	if r.BibTeX == nil || rec.ExternalID == "" {
		return base
	}
	raw, err := r.BibTeX.FetchBibTeX(ctx, rec.ExternalID)
	if err != nil {
		logger.Warn("BibTeX fetch failed, using lookup metadata", "doi", rec.ExternalID, "err", err)
		return base
	}
	fetched, err := bibfile.ParseEntry(raw)
	if err != nil {
		logger.Warn("BibTeX parse failed, using lookup metadata", "doi", rec.ExternalID, "err", err)
		return base
	}
	fetched.Fill(base)
	return fetched
}

// duplicate applies the dedupe mode to a file classified by d.
func (r *Runner) duplicate(st *run, logger *log.Logger, name string, d dedupe.Decision, rec *types.Record) FileResult {
	fr := FileResult{File: name, Duplicate: d.Kind, Key: d.Key, Reason: "duplicate: " + string(d.Kind)}

	switch r.Config.Dedupe {
	case types.DedupeSkip:
		fr.Outcome = types.OutcomeSkipped
	case types.DedupeReplace:
		logger.Warn("replace mode is not implemented, leaving file in place")
		fr.Outcome = types.OutcomeSkipped
	default:
		dir := filepath.Join(st.folder, r.Config.DuplicatesDir)
		qname, err := st.recon.QuarantineName(d, rec, dir, name)
		if err != nil {
			return r.errorResult(logger, name, err)
		}
		dest, err := r.move(st, filepath.Join(st.folder, name), dir, qname)
		if err != nil {
			return r.errorResult(logger, name, err)
		}
		fr.Outcome = types.OutcomeQuarantined
		fr.NewPath = dest
	}

	r.markProcessed(st, name)
	if err := r.persist(st, false); err != nil {
		return r.errorResult(logger, name, err)
	}
	return fr
}

// moveSkipped moves a file without a usable title into the skipped folder.
func (r *Runner) moveSkipped(st *run, logger *log.Logger, name, reason string) FileResult {
	dest, err := r.move(st, filepath.Join(st.folder, name), filepath.Join(st.folder, r.Config.SkippedDir), name)
	if err != nil {
		return r.errorResult(logger, name, err)
	}
	logger.Info("moved to skipped folder", "reason", reason)
	return FileResult{File: name, Outcome: types.OutcomeSkipped, Reason: reason, NewPath: dest}
}

// move sends src to dir under name. Dry runs only reserve the destination
// so later files in the same preview are not shown the same one.
func (r *Runner) move(st *run, src, dir, name string) (string, error) {
	if r.Config.DryRun {
		dest := dedupe.Target(dir, name, st.claimed)
		st.claimed[strings.ToLower(dest)] = true
		return dest, nil
	}
	return dedupe.MoveInto(src, dir, name)
}

func (r *Runner) markProcessed(st *run, name string) {
	if !r.Config.NoTracker {
		st.ledger.MarkProcessed(name)
	}
}

// persist writes the ledger, and the bibliography when withBib is set.
// Dry runs write nothing.
func (r *Runner) persist(st *run, withBib bool) error {
	if r.Config.DryRun {
		return nil
	}
	if withBib {
		if err := st.lib.Save(st.bibPath); err != nil {
			return err
		}
	}
	return st.ledger.Save()
}

func (r *Runner) errorResult(logger *log.Logger, name string, err error) FileResult {
	logger.Error("processing failed", "path", filepath.Join(r.Config.Folder, name), "err", err)
	return FileResult{File: name, Outcome: types.OutcomeError, Error: err.Error(), Err: err}
}
