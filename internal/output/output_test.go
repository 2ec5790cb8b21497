package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestSaveJSON(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, FormatJSON)
	require.NoError(t, err)
	w.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }

	type record struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	path, err := w.SaveJSON("videos", "channel_UCabc_videos", []record{{ID: "v1", Title: "First"}})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "videos", "channel_UCabc_videos_20260830_120000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []record
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "v1", got[0].ID)
	// Indented output.
	assert.Contains(t, string(data), "\n  ")
}

func TestSaveCSV(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, FormatCSV)
	require.NoError(t, err)

	path, err := w.SaveCSV("comments", "video_v1_comments",
		[]string{"comment_id", "text"},
		[][]string{{"c1", "nice, very nice"}, {"c2", "second"}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "comment_id,text\nc1,\"nice, very nice\"\nc2,second\n", string(data))
}

func TestTimestampedNames(t *testing.T) {
	w, err := NewWriter(t.TempDir(), FormatJSON)
	require.NoError(t, err)

	path, err := w.SaveJSON("search", "search_golang_videos", map[string]int{"n": 1})
	require.NoError(t, err)

	base := filepath.Base(path)
	assert.Regexp(t, regexp.MustCompile(`^search_golang_videos_\d{8}_\d{6}\.json$`), base)
}

func TestWriterCreatesNestedDirs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deep", "base")
	w, err := NewWriter(dir, FormatJSON)
	require.NoError(t, err)

	path, err := w.SaveJSON("videos", "x", map[string]int{})
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
