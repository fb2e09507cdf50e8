// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfmeta reads the document information dictionary and the first
// page text of a PDF.
package pdfmeta

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Metadata is what title extraction needs from one PDF. Every field may be
// empty; a scanned PDF typically has no first-page text.
type Metadata struct {
	Title     string
	Author    string
	FirstPage string
	Pages     int
}

// Reader reads PDF metadata. The pipeline accepts any implementation so
// tests can run without real PDFs.
type Reader interface {
	Read(path string) (Metadata, error)
}

// FileReader reads PDFs from disk with ledongthuc/pdf.
type FileReader struct{}

// Read implements Reader.
func (FileReader) Read(path string) (Metadata, error) { return Read(path) }

// Read opens path and returns its Info title and author plus the plain text
// of page 1. Malformed files that make the parser panic are reported as
// errors.
func Read(path string) (md Metadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			md, err = Metadata{}, fmt.Errorf("reading PDF %s: malformed file: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("reading PDF %s: %w", path, err)
	}
	defer f.Close()

	info := r.Trailer().Key("Info")
	md.Title = strings.TrimSpace(info.Key("Title").Text())
	md.Author = strings.TrimSpace(info.Key("Author").Text())
	md.Pages = r.NumPage()

	if md.Pages < 1 {
		return md, nil
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return md, nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		// Text extraction is best effort; the metadata is still usable.
		return md, nil
	}
	md.FirstPage = text
	return md, nil
}
