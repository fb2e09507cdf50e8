// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Outcome is the terminal state of one file in a sync run.
type Outcome string

const (
	OutcomeRenamed     Outcome = "renamed"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeQuarantined Outcome = "quarantined"
	OutcomeError       Outcome = "error"
)

// DuplicateKind names the rule that classified a file as a duplicate.
type DuplicateKind string

const (
	DuplicateNone        DuplicateKind = "none"
	DuplicateHash        DuplicateKind = "hash"
	DuplicateDOI         DuplicateKind = "doi"
	DuplicateTitleAuthor DuplicateKind = "title_author"
)

// DedupeMode selects what happens to a file classified as a duplicate.
type DedupeMode string

const (
	DedupeSkip       DedupeMode = "skip"
	DedupeQuarantine DedupeMode = "quarantine"
	DedupeReplace    DedupeMode = "replace"
)

// ParseDedupeMode validates a mode name from the command line or config.
func ParseDedupeMode(s string) (DedupeMode, error) {
	switch m := DedupeMode(s); m {
	case DedupeSkip, DedupeQuarantine, DedupeReplace:
		return m, nil
	case "":
		return DedupeQuarantine, nil
	default:
		return "", fmt.Errorf("unknown dedupe mode %q (want skip, quarantine or replace)", s)
	}
}
