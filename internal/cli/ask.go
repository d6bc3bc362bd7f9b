package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"medrag/internal/domain"
)

var (
	askQuestion string
	askTopK     int
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from the retrieved abstracts",
	Long: `Retrieve the most similar abstracts, ask the model to answer using only them,
and print the answer with its quality score, elapsed time and citations.

Examples:
  medrag ask -q "What is the mechanism of action of metformin?"
  medrag ask -q "Do statins reduce stroke risk?" -k 5 --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("question")
}

type askOutput struct {
	Question          string            `json:"question"`
	Answer            string            `json:"answer"`
	Quality           float64           `json:"quality"`
	Citations         []domain.Citation `json:"citations"`
	ElapsedMs         int64             `json:"elapsed_ms"`
	UnverifiedSources []int             `json:"unverified_sources,omitempty"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Ask.Ask(ctx, askQuestion, askTopK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if askJSON {
		data, _ := json.MarshalIndent(askOutput{
			Question:          res.Question,
			Answer:            res.Answer.Text,
			Quality:           res.Answer.Quality,
			Citations:         res.Answer.Citations,
			ElapsedMs:         res.Elapsed.Milliseconds(),
			UnverifiedSources: res.Answer.UnverifiedSources,
		}, "", "  ")
		fmt.Fprintln(out, string(data))
		return nil
	}

	printAnswer(out, res.Answer, res.Elapsed)
	if app.Log != nil {
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Logged interaction (%s)", app.Config.InteractionLog.Backend)))
	}
	return nil
}
