// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Author is one entry of a record's ordered author list.
type Author struct {
	Family string `json:"family" yaml:"family"`
	Given  string `json:"given,omitempty" yaml:"given,omitempty"`
}

// String renders the author as "Given Family".
func (a Author) String() string {
	return strings.TrimSpace(a.Given + " " + a.Family)
}

// BibTeX renders the author as "Family, Given", or just the family name
// when no given name is known.
func (a Author) BibTeX() string {
	if a.Given == "" {
		return a.Family
	}
	return a.Family + ", " + a.Given
}

// Record holds the bibliographic metadata a lookup backend returned for one
// work. Records are values; the resolver never modifies them after a backend
// produces them.
type Record struct {
	// Title is the work title exactly as the backend reported it.
	Title string `json:"title" yaml:"title"`

	// Authors lists authors in publication order.
	Authors []Author `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, possibly empty.
	Year string `json:"year,omitempty" yaml:"year,omitempty"`

	// ExternalID is the DOI, possibly empty.
	ExternalID string `json:"external_id,omitempty" yaml:"external_id,omitempty"`

	// Venue is the journal, proceedings or container title.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// Kind is the Crossref-style work type (e.g. "journal-article").
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	// URL is a landing page for the work.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Source names the backend that produced the record.
	Source string `json:"source" yaml:"source"`
}

// FirstAuthorFamily returns the family name of the first author with hyphens
// removed, or "" when the author list is empty.
func (r Record) FirstAuthorFamily() string {
	if len(r.Authors) == 0 {
		return ""
	}
	return strings.ReplaceAll(r.Authors[0].Family, "-", "")
}

// AuthorList serializes the author list the way it is compared against a
// candidate author: each author as "Given Family", joined with ", ".
func (r Record) AuthorList() string {
	names := make([]string, 0, len(r.Authors))
	for _, a := range r.Authors {
		names = append(names, a.String())
	}
	return strings.Join(names, ", ")
}

// BibTeXAuthors serializes the author list for a bibliography "author" field.
func (r Record) BibTeXAuthors() string {
	names := make([]string, 0, len(r.Authors))
	for _, a := range r.Authors {
		if s := a.BibTeX(); s != "" {
			names = append(names, s)
		}
	}
	return strings.Join(names, " and ")
}

// SplitAuthorName splits a display name into family and given parts using
// the last whitespace-separated token as the family name.
func SplitAuthorName(name string) Author {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return Author{}
	case 1:
		return Author{Family: parts[0]}
	default:
		return Author{
			Family: parts[len(parts)-1],
			Given:  strings.Join(parts[:len(parts)-1], " "),
		}
	}
}

// Confidence grades how well a resolved record matches the queried title.
type Confidence string

const (
	ConfidenceNone    Confidence = "none"
	ConfidenceExact   Confidence = "exact"
	ConfidencePartial Confidence = "partial"
)

// Match pairs a record with the confidence of the title match that selected
// it. A Match with ConfidenceNone carries a zero Record.
type Match struct {
	Record     Record     `json:"record" yaml:"record"`
	Confidence Confidence `json:"confidence" yaml:"confidence"`
}

// Found reports whether the match selected a record.
func (m Match) Found() bool {
	return m.Confidence == ConfidenceExact || m.Confidence == ConfidencePartial
}
