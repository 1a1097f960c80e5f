package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/entrhq/sitegen/pkg/generation"
	"github.com/entrhq/sitegen/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	promptText string
	promptFile string
	requestID  string
	visible    bool
	jsonOutput bool
	copyURL    bool
)

// clipboardWriteAll is a variable so tests can run without a system clipboard.
var clipboardWriteAll = clipboard.WriteAll

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one site preview from a prompt",
	Long: `Generate one site preview from a prompt.

The prompt is taken from --prompt, from --prompt-file, or from stdin when
neither is given. The command exits with status 1 if no preview was produced.`,
	Example: `  sitegen generate --prompt "Build a portfolio site for a ceramic artist"
  sitegen generate --prompt-file brief.txt --visible --copy
  cat brief.txt | sitegen generate --json`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&promptText, "prompt", "p", "", "Prompt text")
	generateCmd.Flags().StringVarP(&promptFile, "prompt-file", "f", "", "Read the prompt from a file")
	generateCmd.Flags().StringVar(&requestID, "id", "", "Correlation id (default: random UUID)")
	generateCmd.Flags().BoolVar(&visible, "visible", false, "Show the browser window")
	generateCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	generateCmd.Flags().BoolVar(&copyURL, "copy", false, "Copy the preview URL to the clipboard")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	prompt, err := resolvePrompt(promptText, promptFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	mode := generation.ModeHeadless
	if visible {
		mode = generation.ModeVisible
	}
	req := generation.NewRequest(requestID, prompt, mode)

	result := a.service.Generate(cmd.Context(), req)
	a.record(result)

	return reportResult(cmd, a.log, result)
}

// reportResult prints result, copies its preview URL when --copy is set and
// turns a failed result into errGenerationFailed.
func reportResult(cmd *cobra.Command, log *logging.Logger, result *generation.Result) error {
	if err := printResult(cmd.OutOrStdout(), result, jsonOutput); err != nil {
		return err
	}

	if copyURL && result.Success {
		if err := clipboardWriteAll(result.URL()); err != nil {
			log.Warnf("failed to copy preview URL: %v", err)
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("Preview URL copied to clipboard"))
		}
	}

	if !result.Success {
		return errGenerationFailed
	}
	return nil
}

// resolvePrompt picks the prompt from text, file or stdin, in that order.
// stdin is only read when it is not an interactive terminal.
func resolvePrompt(text, file string, stdin io.Reader) (string, error) {
	if text != "" && file != "" {
		return "", fmt.Errorf("use either --prompt or --prompt-file, not both")
	}

	var prompt string
	switch {
	case text != "":
		prompt = text
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file: %w", err)
		}
		prompt = string(data)
	default:
		if f, ok := stdin.(*os.File); ok && isTerminal(f) {
			return "", fmt.Errorf("a prompt is required (--prompt, --prompt-file or stdin)")
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
		}
		prompt = string(data)
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt is empty")
	}
	return prompt, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func printResult(w io.Writer, result *generation.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err := fmt.Fprintln(w, renderResult(result))
	return err
}
