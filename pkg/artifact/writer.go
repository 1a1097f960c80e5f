// Package artifact writes generation results to disk as JSON and markdown.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/sitegen/pkg/generation"
)

// Writer handles writing generation artifacts
type Writer struct {
	outputDir string
}

// NewWriter creates a new artifact writer
func NewWriter(outputDir string) *Writer {
	return &Writer{
		outputDir: outputDir,
	}
}

// OutputDir returns the directory artifacts are written to.
func (w *Writer) OutputDir() string {
	return w.outputDir
}

// ScreenshotDir is where the pipeline stores preview screenshots.
func (w *Writer) ScreenshotDir() string {
	return filepath.Join(w.outputDir, "screenshots")
}

// WriteResult writes <id>.json and <id>.md for one result and returns their paths.
func (w *Writer) WriteResult(result *generation.Result) ([]string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	base := fileStem(result.CorrelationID)

	jsonPath := filepath.Join(w.outputDir, base+".json")
	if err := writeJSON(jsonPath, result); err != nil {
		return nil, fmt.Errorf("failed to write result JSON: %w", err)
	}

	mdPath := filepath.Join(w.outputDir, base+".md")
	if err := os.WriteFile(mdPath, []byte(Markdown(result)), 0600); err != nil {
		return nil, fmt.Errorf("failed to write result markdown: %w", err)
	}

	return []string{jsonPath, mdPath}, nil
}

// BatchSummary is the content of batch.json.
type BatchSummary struct {
	Total     int                  `json:"total"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	StartTime time.Time            `json:"start_time"`
	EndTime   time.Time            `json:"end_time"`
	Duration  string               `json:"duration"`
	Results   []*generation.Result `json:"results"`
}

// Summarize counts outcomes across results. Nil entries are ignored.
func Summarize(results []*generation.Result) BatchSummary {
	summary := BatchSummary{Results: make([]*generation.Result, 0, len(results))}
	for _, r := range results {
		if r == nil {
			continue
		}
		summary.Results = append(summary.Results, r)
		summary.Total++
		if r.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		if summary.StartTime.IsZero() || r.StartedAt.Before(summary.StartTime) {
			summary.StartTime = r.StartedAt
		}
		if r.CompletedAt.After(summary.EndTime) {
			summary.EndTime = r.CompletedAt
		}
	}
	summary.Duration = summary.EndTime.Sub(summary.StartTime).String()
	return summary
}

// WriteBatch writes batch.json summarizing results and returns its path.
func (w *Writer) WriteBatch(results []*generation.Result) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.outputDir, "batch.json")
	if err := writeJSON(path, Summarize(results)); err != nil {
		return "", fmt.Errorf("failed to write batch JSON: %w", err)
	}
	return path, nil
}

// Markdown renders a human-readable summary of one result.
func Markdown(result *generation.Result) string {
	var md strings.Builder

	md.WriteString("# Site Generation Summary\n\n")
	md.WriteString(fmt.Sprintf("**Request:** %s\n\n", result.CorrelationID))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", result.StartedAt.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Completed:** %s\n\n", result.CompletedAt.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", result.Duration()))
	md.WriteString(fmt.Sprintf("**Attempts:** %d\n\n", result.Attempts))

	md.WriteString("## Result\n\n")
	if result.Success {
		md.WriteString("✅ **Success**\n\n")
		md.WriteString(fmt.Sprintf("**Preview:** %s\n\n", result.URL()))
		if result.PreviewSource != "" {
			md.WriteString(fmt.Sprintf("- Found by: %s\n", result.PreviewSource))
		}
		if result.Speculative {
			md.WriteString("- ⚠️ Speculative: the URL was derived from the project id and has not been verified\n")
		}
		if result.Screenshot != "" {
			md.WriteString(fmt.Sprintf("- Screenshot: `%s`\n", result.Screenshot))
		}
		md.WriteString("\n")
	} else {
		md.WriteString(fmt.Sprintf("❌ **Error:** %s\n\n", result.ErrorMessage()))
		if result.ErrorKind != "" {
			md.WriteString(fmt.Sprintf("- Kind: `%s`\n", result.ErrorKind))
		}
		if result.LastError != "" {
			md.WriteString(fmt.Sprintf("- Last attempt: %s\n", result.LastError))
		}
		md.WriteString("\n")
	}

	return md.String()
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// fileStem turns a correlation id into a safe file name.
func fileStem(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "result"
	}
	return strings.Map(func(c rune) rune {
		switch c {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return c
	}, id)
}
