package cmd

import (
	"errors"
	"fmt"
	"sort"

	"routeqa/llm/parser"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [pattern...]",
	Short: "Index documents into the vector store",
	Long: `Chunks, embeds and stores documents ahead of time so later questions
skip ingestion. Patterns support ** globs, for example docs/**/*.pdf.
Files of unsupported types are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	paths, err := expandPatterns(args, parser.DefaultRegistry().Supported)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no supported documents matched")
	}

	comps, cleanup, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range paths {
		n, err := comps.RAG.Ingest(cmd.Context(), path)
		if err != nil {
			failed++
			logger.Warn("ingest failed", zap.String("document", path), zap.Error(err))
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "ok   %s (%d chunks)\n", path, n)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(paths))
	}
	return nil
}

// expandPatterns resolves glob patterns to a sorted, de-duplicated list of
// files accepted by keep.
func expandPatterns(patterns []string, keep func(string) bool) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok || !keep(m) {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}
