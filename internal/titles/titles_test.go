// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package titles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlausible(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		strict  bool
		relaxed bool
	}{
		{"five word title", "Deep Learning for Climate Modeling", true, true},
		{"four words", "Attention Is All Need", false, true},
		{"three words", "Neural Ordinary Equations", false, false},
		{"all upper", "DEEP LEARNING FOR CLIMATE MODELING", false, false},
		{"digit heavy", "Report 2021 03 17 12345 final draft", false, false},
		{"few letters", "a b c d e f", false, false},
		{"copyright line", "Copyright 2020 by the authors here", true, false},
		{"doi line", "DOI: 10.1000/xyz123 available online", false, false},
		{"doi url line", "https://doi.org/10.1/abc retrieved from the publisher", true, false},
		{"doing is not doi", "Doing More With Less Memory", true, true},
		{"empty", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.strict, Plausible(tt.in), "strict")
			assert.Equal(t, tt.relaxed, PlausibleRelaxed(tt.in), "relaxed")
		})
	}
}

func TestTitleFromFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"deep_learning_for_climate_modeling.pdf", "deep learning for climate modeling"},
		{"/tmp/papers/a-survey-of-graph.neural.networks.PDF", "a survey of graph neural networks"},
		{"scan001.pdf", "scan001"},
		{"  spaced  name .pdf", "spaced name"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFromFilename(tt.in))
		})
	}
}

func TestFirstLines(t *testing.T) {
	text := "\n  Line one  \n\n\tLine two\n \nLine three\n"
	assert.Equal(t, []string{"Line one", "Line two"}, FirstLines(text, 2))
	assert.Equal(t, []string{"Line one", "Line two", "Line three"}, FirstLines(text, 10))
	assert.Empty(t, FirstLines("", 10))
}

func TestExtract_MetadataFirst(t *testing.T) {
	got := Extract(Input{
		MetadataTitle:  "Deep Learning for Climate Modeling",
		MetadataAuthor: "Jane Smith",
		Filename:       "graph_neural_networks_for_weather_forecasting.pdf",
	})
	require.Len(t, got, 2)
	assert.Equal(t, "Deep Learning for Climate Modeling", got[0].Text)
	assert.Equal(t, SourceMetadata, got[0].Source)
	assert.Equal(t, -1, got[0].Line)
	assert.Equal(t, SourceFilename, got[1].Source)
	assert.Equal(t, "graph neural networks for weather forecasting", got[1].Text)
}

func TestExtract_ImplausibleMetadataFallsThrough(t *testing.T) {
	got := Extract(Input{
		MetadataTitle: "Microsoft Word - draft3.docx",
		FirstPage:     "Journal of Things 12(3)\nLearning to Rank with Sparse Signals\nin Noisy Environments\nJane Smith\nAbstract",
		Filename:      "paper.pdf",
	})
	require.NotEmpty(t, got)
	for _, c := range got {
		assert.Equal(t, SourceFirstPage, c.Source)
	}

	// "Journal of Things 12(3)" has four words and passes; the title line follows it.
	var title *Candidate
	for i := range got {
		if got[i].Text == "Learning to Rank with Sparse Signals" {
			title = &got[i]
		}
	}
	require.NotNil(t, title)
	assert.Equal(t, 1, title.Line)
	assert.Equal(t, []string{
		"Learning to Rank with Sparse Signals in Noisy Environments",
		"Learning to Rank with Sparse Signals in Noisy Environments Jane Smith",
	}, title.Expansions)
}

func TestExtract_LastLineHasNoExpansions(t *testing.T) {
	got := fromFirstPage(Input{FirstPage: "A Study of Plausible Final Lines"})
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Expansions)
}

func TestExtract_FirstPageLimitedToTenLines(t *testing.T) {
	text := ""
	for i := 0; i < 10; i++ {
		text += "x\n"
	}
	text += "A Plausible Title After Ten Lines\n"
	assert.Empty(t, fromFirstPage(Input{FirstPage: text}))
}

func TestExtract_ScannedPageYieldsNothing(t *testing.T) {
	got := Extract(Input{
		FirstPage: "SCANNED DOCUMENT 0001\nPAGE 1 OF 12 2019-03-04\nREF 1234567890",
		Filename:  "IMG_20190304_0001.pdf",
	})
	assert.Empty(t, got)
}

func TestExtract_DuplicateTextCollapsed(t *testing.T) {
	got := Extract(Input{
		MetadataTitle: "Deep Learning for Climate Modeling",
		FirstPage:     "Deep Learning for Climate Modeling\nJane Smith",
	})
	require.Len(t, got, 1)
	assert.Equal(t, SourceMetadata, got[0].Source)
}

func TestExtractWith_CustomOrder(t *testing.T) {
	gens := []Generator{DefaultGenerators[1], DefaultGenerators[0]}
	got := ExtractWith(gens, Input{
		MetadataTitle: "Deep Learning for Climate Modeling",
		Filename:      "graph_neural_networks_for_weather_forecasting.pdf",
	})
	require.Len(t, got, 2)
	assert.Equal(t, SourceFilename, got[0].Source)
	assert.Equal(t, SourceMetadata, got[1].Source)
}
