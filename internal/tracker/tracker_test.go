// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Missing(t *testing.T) {
	dir := t.TempDir()
	l, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Empty(t, l.Processed)
	assert.Empty(t, l.Hashes)
	assert.Equal(t, filepath.Join(dir, FileName), l.Path())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	l.MarkProcessed("Paper.PDF")
	l.MarkProcessed("paper.pdf")
	l.MarkProcessed("other.pdf")
	l.RecordHash("abc123", "Smith2021DeepLearning.pdf")
	require.NoError(t, l.Save())

	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"processed\": [")

	var onDisk map[string]any
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.ElementsMatch(t, []any{"Paper.PDF", "other.pdf"}, onDisk["processed"])

	again, err := Load(dir, nil)
	require.NoError(t, err)
	assert.True(t, again.IsProcessed("PAPER.pdf"))
	assert.True(t, again.IsProcessed("other.pdf"))
	assert.False(t, again.IsProcessed("new.pdf"))

	owner, ok := again.HashOwner("abc123")
	assert.True(t, ok)
	assert.Equal(t, "Smith2021DeepLearning.pdf", owner)
}

func TestLoad_LegacyFile(t *testing.T) {
	dir := t.TempDir()
	legacy := `{"processed": ["old.pdf"], "hashes": {"h1": "Old2019Paper.pdf"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, LegacyFileName), []byte(legacy), 0o644))

	l, err := Load(dir, nil)
	require.NoError(t, err)
	assert.True(t, l.IsProcessed("old.pdf"))
	assert.Equal(t, "Old2019Paper.pdf", l.Hashes["h1"])
	assert.Equal(t, filepath.Join(dir, FileName), l.Path(), "saves go to the current name")
}

func TestLoad_CurrentWinsOverLegacy(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LegacyFileName), []byte(`{"processed": ["legacy.pdf"]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{"processed": ["current.pdf"]}`), 0o644))

	l, err := Load(dir, nil)
	require.NoError(t, err)
	assert.True(t, l.IsProcessed("current.pdf"))
	assert.False(t, l.IsProcessed("legacy.pdf"))
	assert.NotNil(t, l.Hashes)
}

func TestLoad_CorruptIsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o644))

	l, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Empty(t, l.Processed)
	assert.Empty(t, l.Hashes)
}

func TestRebuild(t *testing.T) {
	l := New(t.TempDir())
	l.MarkProcessed("stale.pdf")
	l.RecordHash("h", "stale.pdf")

	l.Rebuild([]string{"A.pdf", "b.pdf", "a.PDF"})
	assert.Equal(t, []string{"A.pdf", "b.pdf"}, l.Processed)
	assert.False(t, l.IsProcessed("stale.pdf"))
	assert.Empty(t, l.Hashes)
}

func TestSave_EmptyWritesArrays(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, New(dir).Save())

	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.JSONEq(t, `{"processed": [], "hashes": {}}`, string(raw))
}
