package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/entrhq/sitegen/pkg/generation"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var batchConcurrency int

// manifest is the YAML file read by the batch command.
type manifest struct {
	// Mode applies to entries that do not set their own
	Mode     generation.Mode      `yaml:"mode"`
	Requests []generation.Request `yaml:"requests"`
}

var batchCmd = &cobra.Command{
	Use:   "batch MANIFEST",
	Short: "Generate previews for every request in a YAML manifest",
	Long: `Generate previews for every request in a YAML manifest.

Requests run concurrently, each in its own browser session. Results are written
as per-request artifacts plus batch.json. The command exits with status 1 if any
request failed.

Manifest format:

  mode: headless
  requests:
    - id: bakery
      prompt: Build a landing page for a neighborhood bakery
    - prompt: Build a portfolio site for a ceramic artist
      mode: visible`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "n", 0, "Concurrent requests (default: browser.max_sessions)")
	batchCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the results as JSON")
}

func runBatch(cmd *cobra.Command, args []string) error {
	requests, err := loadManifest(args[0])
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	limit := batchLimit(batchConcurrency, a.launcher.MaxSessions(), len(requests))
	a.log.Infof("running %d requests with concurrency %d", len(requests), limit)

	results := make([]*generation.Result, len(requests))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			results[i] = a.service.Generate(cmd.Context(), req)
			a.record(results[i])
			return nil
		})
	}
	_ = g.Wait()

	if a.writer != nil {
		path, err := a.writer.WriteBatch(results)
		if err != nil {
			a.log.Warnf("%v", err)
		} else {
			a.log.Infof("batch summary written to %s", path)
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, renderBatch(results))
	}

	for _, r := range results {
		if !r.Success {
			return errGenerationFailed
		}
	}
	return nil
}

// loadManifest reads and normalizes a batch manifest.
func loadManifest(path string) ([]generation.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m manifest
	if unmarshalErr := yaml.Unmarshal(data, &m); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", unmarshalErr)
	}
	if len(m.Requests) == 0 {
		return nil, fmt.Errorf("manifest %s lists no requests", path)
	}

	defaultMode, err := generation.ParseMode(string(m.Mode))
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}

	seen := make(map[string]bool, len(m.Requests))
	requests := make([]generation.Request, 0, len(m.Requests))
	for i, entry := range m.Requests {
		if entry.Prompt == "" {
			return nil, fmt.Errorf("manifest request %d has no prompt", i+1)
		}
		mode := defaultMode
		if entry.Mode != "" {
			if mode, err = generation.ParseMode(string(entry.Mode)); err != nil {
				return nil, fmt.Errorf("manifest request %d: %w", i+1, err)
			}
		}
		req := generation.NewRequest(entry.CorrelationID, entry.Prompt, mode)
		if seen[req.CorrelationID] {
			return nil, fmt.Errorf("manifest request %d: duplicate id %q", i+1, req.CorrelationID)
		}
		seen[req.CorrelationID] = true
		requests = append(requests, req)
	}
	return requests, nil
}

// batchLimit caps concurrency at the session limit and the request count.
func batchLimit(requested, maxSessions, n int) int {
	limit := requested
	if limit <= 0 || (maxSessions > 0 && limit > maxSessions) {
		limit = maxSessions
	}
	if limit <= 0 {
		limit = 1
	}
	if n > 0 && limit > n {
		limit = n
	}
	return limit
}
