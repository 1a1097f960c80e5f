package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/entrhq/sitegen/pkg/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func successResult(id string) *generation.Result {
	url := "https://xyz.examplehost.app"
	return &generation.Result{
		CorrelationID: id,
		StartedAt:     t0,
		CompletedAt:   t0.Add(95 * time.Second),
		Success:       true,
		PreviewURL:    &url,
		Attempts:      2,
		PreviewSource: "anchor",
	}
}

func failedResult(id string) *generation.Result {
	msg := "maximum retry attempts reached"
	return &generation.Result{
		CorrelationID: id,
		StartedAt:     t0.Add(time.Second),
		CompletedAt:   t0.Add(4 * time.Minute),
		Error:         &msg,
		ErrorKind:     "retry_budget_exhausted",
		LastError:     "login failed: signed-in marker absent after submit",
		Attempts:      3,
	}
}

func TestWriteResult(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewWriter(dir)

	paths, err := w.WriteResult(successResult("req-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "req-1.json"),
		filepath.Join(dir, "req-1.md"),
	}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "req-1", decoded["correlation_id"])
	assert.Equal(t, true, decoded["success"])
	assert.Equal(t, "https://xyz.examplehost.app", decoded["preview_url"])
	assert.Nil(t, decoded["error"])
	assert.Contains(t, decoded, "error", "error is present as null on success")

	md, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(md), "✅ **Success**")
	assert.Contains(t, string(md), "**Preview:** https://xyz.examplehost.app")
	assert.Contains(t, string(md), "**Attempts:** 2")
}

func TestWriteResult_UnsafeID(t *testing.T) {
	w := NewWriter(t.TempDir())
	paths, err := w.WriteResult(successResult("../etc/passwd"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.OutputDir(), ".._etc_passwd.json"), paths[0])
}

func TestMarkdown_Failure(t *testing.T) {
	md := Markdown(failedResult("req-2"))
	assert.Contains(t, md, "❌ **Error:** maximum retry attempts reached")
	assert.Contains(t, md, "`retry_budget_exhausted`")
	assert.Contains(t, md, "Last attempt: login failed")
	assert.NotContains(t, md, "**Preview:**")
}

func TestMarkdown_Speculative(t *testing.T) {
	r := successResult("req-3")
	r.Speculative = true
	r.PreviewSource = "speculative"
	assert.Contains(t, Markdown(r), "Speculative")
}

func TestWriteBatch(t *testing.T) {
	w := NewWriter(t.TempDir())
	path, err := w.WriteBatch([]*generation.Result{
		successResult("a"),
		nil,
		failedResult("b"),
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.OutputDir(), "batch.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var summary BatchSummary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, summary.StartTime.Equal(t0))
	assert.True(t, summary.EndTime.Equal(t0.Add(4*time.Minute)))
	assert.Equal(t, "4m0s", summary.Duration)
	assert.Len(t, summary.Results, 2)
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)
	assert.Zero(t, summary.Total)
	assert.NotNil(t, summary.Results)
}

func TestScreenshotDir(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "screenshots"), NewWriter("out").ScreenshotDir())
}
