package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"medrag/internal/bootstrap"
	"medrag/internal/domain"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently logged interactions",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of interactions (0 = all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sink, err := bootstrap.NewInteractionLog(ctx, GetConfig(), GetRootDir())
	if err != nil {
		return fmt.Errorf("failed to open interaction log: %w", err)
	}
	if sink == nil {
		return fmt.Errorf("interaction log backend is %q, nothing to show", GetConfig().InteractionLog.Backend)
	}
	defer sink.Close()

	items, err := sink.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		if items == nil {
			items = []domain.Interaction{}
		}
		data, _ := json.MarshalIndent(items, "", "  ")
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(items) == 0 {
		fmt.Fprintln(out, "No interactions logged yet.")
		return nil
	}
	for _, in := range items {
		fmt.Fprintf(out, "%s  %s\n", metaStyle.Render(in.Timestamp.Format(domain.TimestampLayout)), titleStyle.Render(in.Question))
		fmt.Fprintf(out, "  %s\n", truncate(in.Answer, 200))
		fmt.Fprintf(out, "  %s\n\n", metaStyle.Render(fmt.Sprintf("quality %.3f, %d citations", in.Quality, len(in.Citations))))
	}
	return nil
}
