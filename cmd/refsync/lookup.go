// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/refsync/internal/lookup"
	"github.com/pdiddy/refsync/internal/resolve"
	"github.com/pdiddy/refsync/internal/titles"
	"github.com/pdiddy/refsync/pkg/types"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <title>",
	Short: "Resolve a title without touching any files",
	Long: `Lookup runs the same resolution a sync applies to one PDF and prints the
selected record, or the closest rejected title when nothing matches.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().String("author", "", "author name to bias the query")
	lookupCmd.Flags().Bool("json", false, "output the result as JSON")
	lookupCmd.Flags().Bool("bibtex", false, "also print the BibTeX registered for the DOI")

	rootCmd.AddCommand(lookupCmd)
}

// lookupOutput is the --json shape.
type lookupOutput struct {
	Query      string           `json:"query"`
	Confidence types.Confidence `json:"confidence"`
	Record     *types.Record    `json:"record,omitempty"`
	Nearest    *resolve.Near    `json:"nearest,omitempty"`
	BibTeX     string           `json:"bibtex,omitempty"`
}

func runLookup(cmd *cobra.Command, args []string) error {
	title := strings.Join(args, " ")
	author, _ := cmd.Flags().GetString("author")
	asJSON, _ := cmd.Flags().GetBool("json")
	withBib, _ := cmd.Flags().GetBool("bibtex")

	cfg, err := loadLookupConfig()
	if err != nil {
		return err
	}
	set := lookup.NewSet(cfg, logger)
	r := resolve.New(set, cfg, logger)

	cand := titles.Candidate{Text: title, Source: titles.SourceMetadata, Line: -1}
	res, err := r.ResolveCandidates(cmd.Context(), []titles.Candidate{cand}, author)
	if err != nil {
		return err
	}

	out := lookupOutput{Query: title, Confidence: res.Match.Confidence, Nearest: res.Near}
	if res.Match.Found() {
		rec := res.Match.Record
		out.Record = &rec
		if withBib && set.DOI != nil && rec.ExternalID != "" {
			bib, err := set.DOI.FetchBibTeX(cmd.Context(), rec.ExternalID)
			if err != nil {
				logger.Warn("BibTeX fetch failed", "doi", rec.ExternalID, "err", err)
			}
			out.BibTeX = strings.TrimSpace(bib)
		}
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printLookup(cmd.OutOrStdout(), out)
	return nil
}

func printLookup(w io.Writer, out lookupOutput) {
	if out.Record == nil {
		fmt.Fprintf(w, "no match for %q\n", out.Query)
		if out.Nearest != nil {
			fmt.Fprintf(w, "closest: %q (similarity %.2f)\n", out.Nearest.Title, out.Nearest.Similarity)
		}
		return
	}
	rec := out.Record
	fmt.Fprintf(w, "%s match from %s\n", out.Confidence, rec.Source)
	fmt.Fprintf(w, "  title:   %s\n", rec.Title)
	fmt.Fprintf(w, "  authors: %s\n", rec.AuthorList())
	fmt.Fprintf(w, "  year:    %s\n", rec.Year)
	if rec.ExternalID != "" {
		fmt.Fprintf(w, "  doi:     %s\n", rec.ExternalID)
	}
	if rec.Venue != "" {
		fmt.Fprintf(w, "  venue:   %s\n", rec.Venue)
	}
	if out.BibTeX != "" {
		fmt.Fprintf(w, "\n%s\n", out.BibTeX)
	}
}
