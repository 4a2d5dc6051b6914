package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"routeqa/llm/flow"
	"routeqa/tui/component/renderer"

	"github.com/spf13/cobra"
)

var (
	askDocument string
	askTopK     int
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question",
	Long: `Routes one question and prints the answer.

Weather questions are answered from the weather API. Other questions are
answered from the document given with --doc.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askDocument, "doc", "d", "", "document to answer from (pdf, txt, md, html, docx)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (0 uses the configured default)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askTopK < 0 {
		return fmt.Errorf("--top-k must not be negative, got %d", askTopK)
	}

	comps, cleanup, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	question := strings.Join(args, " ")
	res := comps.Flow.Run(cmd.Context(), question, askDocument, flow.WithRunTopK(askTopK))

	if askJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else if res.OK() {
		printResult(cmd.OutOrStdout(), res)
	}

	if !res.OK() {
		return errors.New(res.Error)
	}
	return nil
}

func printResult(w io.Writer, res flow.Result) {
	fmt.Fprintln(w, res.Answer)

	if len(res.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for i, hit := range res.Sources {
			fmt.Fprintf(w, "  %d. [%.3f] %s\n", i+1, hit.Score, renderer.Truncate(renderer.OneLine(hit.Text()), 100))
		}
	}
	if res.Evaluation != nil {
		fmt.Fprintf(w, "\nScore: %.2f\n", res.Evaluation.Score)
	}
}
