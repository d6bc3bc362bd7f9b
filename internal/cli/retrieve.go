package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"medrag/internal/domain"
)

var (
	retrieveQuestion string
	retrieveTopK     int
	retrieveJSON     bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Show the passages a question retrieves, without generating an answer",
	Long: `Embed the question, search the index and print the matching abstracts in
descending similarity.

Examples:
  medrag retrieve -q "metformin AMPK"
  medrag retrieve -q "statins and stroke" -k 10 --json`,
	RunE: runRetrieve,
}

func init() {
	rootCmd.AddCommand(retrieveCmd)
	retrieveCmd.Flags().StringVarP(&retrieveQuestion, "question", "q", "", "question to search for (required)")
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "k", 0, "number of passages (default from config)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output as JSON")
	retrieveCmd.MarkFlagRequired("question")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(retrieveQuestion) == "" {
		return fmt.Errorf("%w: question is empty", domain.ErrValidation)
	}

	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	topK := app.Config.Retrieve.TopK
	if retrieveTopK > 0 {
		topK = retrieveTopK
	}

	hits, err := app.Retriever.RetrieveTopK(ctx, retrieveQuestion, topK)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if retrieveJSON {
		if hits == nil {
			hits = []domain.RetrievalHit{}
		}
		data, _ := json.MarshalIndent(hits, "", "  ")
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(hits) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d results for: %s\n\n", len(hits), retrieveQuestion)
	for i, h := range hits {
		fmt.Fprintf(out, "%s %s (score: %.3f)\n", sourceStyle.Render(fmt.Sprintf("[%d]", i+1)), h.Title, h.Score)
		fmt.Fprintln(out, metaStyle.Render(h.URL))
		fmt.Fprintln(out, truncate(h.Text, 500))
		fmt.Fprintln(out)
	}
	return nil
}
