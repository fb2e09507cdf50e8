// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644))
}

func TestTitleWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", "Deep Learning for Climate Modeling", []string{"Deep", "Learning", "for", "Climate", "Modeling"}},
		{"repeated word", "Deep Deep Learning", []string{"Deep", "Learning"}},
		{"repeat differs in case", "Deep deep DEEP Learning", []string{"Deep", "Learning"}},
		{"non adjacent repeat kept", "Learning to Learn by Learning", []string{"Learning", "to", "Learn", "by", "Learning"}},
		{"punctuation", "BERT: Pre-training (of) Transformers!", []string{"BERT", "Pre", "training", "of", "Transformers"}},
		{"diacritics folded", "Über Gödel", []string{"Uber", "Godel"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleWords(tt.in))
		})
	}
}

func TestBuild(t *testing.T) {
	words := TitleWords("Deep Learning for Climate Modeling")
	tests := []struct {
		name  string
		taken []string
		opts  Options
		want  string
	}{
		{"empty folder", nil, DefaultOptions, "Smith2021DeepLearning"},
		{"two words taken", []string{"smith2021deeplearning"}, DefaultOptions, "Smith2021DeepLearningfor"},
		{"one word start", nil, Options{MinWords: 1, MaxWords: 6}, "Smith2021Deep"},
		{"all taken returns longest", []string{
			"smith2021deeplearning",
			"smith2021deeplearningfor",
			"smith2021deeplearningforclimate",
			"smith2021deeplearningforclimatemodeling",
		}, DefaultOptions, "Smith2021DeepLearningforClimateModeling"},
		{"max bound", []string{"smith2021deep"}, Options{MinWords: 1, MaxWords: 1}, "Smith2021Deep"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taken := map[string]bool{}
			for _, s := range tt.taken {
				taken[s] = true
			}
			assert.Equal(t, tt.want, Build(taken, "Smith", "2021", words, tt.opts))
		})
	}
}

func TestBuild_Fallbacks(t *testing.T) {
	assert.Equal(t, "Unknown2020Untitled", Build(nil, "", "2020", nil, DefaultOptions))
	assert.Equal(t, "OBrien2019Graphs", Build(nil, "O'Brien", "2019", []string{"Graphs"}, DefaultOptions))
	assert.Equal(t, "UnknownAlpha", Build(nil, "---", "", []string{"Alpha", ""}, Options{MinWords: 1, MaxWords: 3}))
}

func TestBuildUnique_NeverCollides(t *testing.T) {
	dir := t.TempDir()
	words := TitleWords("Deep Learning for Climate Modeling")
	seen := map[string]bool{}

	// Each new stem must be absent from the folder at the time it is built.
	for i := 0; i < 4; i++ {
		s, err := BuildUnique(dir, "Smith", "2021", words, DefaultOptions)
		require.NoError(t, err)
		existing, err := ExistingStems(dir)
		require.NoError(t, err)
		assert.False(t, existing[strings.ToLower(s)], "stem %s collides", s)
		assert.False(t, seen[s])
		seen[s] = true
		touch(t, dir, s+".pdf")
	}
	assert.Len(t, seen, 4)
}

func TestBuildUnique_CaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "SMITH2021DEEPLEARNING.PDF")
	touch(t, dir, "notes.txt")

	s, err := BuildUnique(dir, "Smith", "2021", []string{"Deep", "Learning", "Again"}, DefaultOptions)
	require.NoError(t, err)
	assert.Equal(t, "Smith2021DeepLearningAgain", s)
}

func TestBuildUnique_MissingDir(t *testing.T) {
	s, err := BuildUnique(filepath.Join(t.TempDir(), "nope"), "Smith", "2021", []string{"Deep", "Learning"}, DefaultOptions)
	require.NoError(t, err)
	assert.Equal(t, "Smith2021DeepLearning", s)
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "A.pdf"), UniquePath(dir, "A", ".pdf", ""))

	touch(t, dir, "A.pdf")
	assert.Equal(t, filepath.Join(dir, "A_2.pdf"), UniquePath(dir, "A", ".pdf", ""))

	touch(t, dir, "A_2.pdf")
	assert.Equal(t, filepath.Join(dir, "A_3.pdf"), UniquePath(dir, "A", ".pdf", ""))

	// Renaming A.pdf onto itself keeps the name.
	assert.Equal(t, filepath.Join(dir, "A.pdf"), UniquePath(dir, "A", ".pdf", filepath.Join(dir, "A.pdf")))
}

func TestUniquePathExcept(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "A.pdf")

	claimed := map[string]bool{strings.ToLower(filepath.Join(dir, "A_2.pdf")): true}
	assert.Equal(t, filepath.Join(dir, "A_3.pdf"), UniquePathExcept(dir, "A", ".pdf", "", claimed))

	claimed = map[string]bool{strings.ToLower(filepath.Join(dir, "b.pdf")): true}
	assert.Equal(t, filepath.Join(dir, "B_2.pdf"), UniquePathExcept(dir, "B", ".pdf", "", claimed))

	// A claimed path stays taken even for the file that sits there.
	self := filepath.Join(dir, "A.pdf")
	claimed = map[string]bool{strings.ToLower(self): true}
	assert.Equal(t, filepath.Join(dir, "A_2.pdf"), UniquePathExcept(dir, "A", ".pdf", self, claimed))
}

func TestUniqueKey(t *testing.T) {
	taken := map[string]bool{"smith2021deeplearning": true}
	assert.Equal(t, "Other", UniqueKey(taken, "Other"))
	assert.Equal(t, "Smith2021DeepLearning_2", UniqueKey(taken, "Smith2021DeepLearning"))

	for i := 2; i < 5; i++ {
		taken[fmt.Sprintf("smith2021deeplearning_%d", i)] = true
	}
	assert.Equal(t, "Smith2021DeepLearning_5", UniqueKey(taken, "Smith2021DeepLearning"))
}
