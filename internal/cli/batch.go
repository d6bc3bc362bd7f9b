package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"medrag/internal/adapter/fs"
	"medrag/internal/domain"
	"medrag/internal/usecase"
)

var (
	batchIncludes []string
	batchExcludes []string
	batchParallel int
	batchTopK     int
	batchOut      string
)

var batchCmd = &cobra.Command{
	Use:   "batch [paths...]",
	Short: "Answer every question found in question files",
	Long: `Read questions (one per line, '#' for comments) from files or directories
matched by glob patterns, answer them concurrently and write one JSON line per
question. Each answered question is also recorded in the interaction log.

Examples:
  medrag batch questions.txt
  medrag batch eval/ --include "**/*.txt" --exclude "drafts/**" --parallel 4 --out answers.jsonl`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringSliceVar(&batchIncludes, "include", nil, "glob patterns to include (default **/*.txt, **/*.questions)")
	batchCmd.Flags().StringSliceVar(&batchExcludes, "exclude", nil, "glob patterns to exclude")
	batchCmd.Flags().IntVarP(&batchParallel, "parallel", "p", 4, "questions answered at once")
	batchCmd.Flags().IntVarP(&batchTopK, "top-k", "k", 0, "number of passages (default from config)")
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "", "write JSON lines here instead of stdout")
}

type batchLine struct {
	Question          string            `json:"question"`
	Answer            string            `json:"answer,omitempty"`
	Quality           float64           `json:"quality"`
	Citations         []domain.Citation `json:"citations,omitempty"`
	ElapsedMs         int64             `json:"elapsed_ms,omitempty"`
	UnverifiedSources []int             `json:"unverified_sources,omitempty"`
	Error             string            `json:"error,omitempty"`
	ErrorKind         string            `json:"error_kind,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	walker := fs.NewWalker(batchIncludes, batchExcludes)

	questions, err := usecase.CollectQuestions(walker, walker, args)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("no questions found in %v", args)
	}

	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	if batchOut != "" {
		f, err := os.Create(batchOut)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	bar := progressbar.NewOptions(len(questions),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Answering[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)
	var barMu sync.Mutex

	batch := usecase.NewBatchUseCase(app.Ask, batchParallel)
	items, runErr := batch.Run(ctx, questions, batchTopK, func(usecase.BatchItem) {
		barMu.Lock()
		bar.Add(1)
		barMu.Unlock()
	})

	enc := json.NewEncoder(out)
	for _, it := range items {
		if err := enc.Encode(toBatchLine(it)); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
	}

	failed := usecase.Failed(items)
	summary := fmt.Sprintf("Answered %d/%d questions", len(items)-failed, len(items))
	if failed > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render(summary))
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render(summary))
	}
	return runErr
}

func toBatchLine(it usecase.BatchItem) batchLine {
	if it.Err != nil {
		return batchLine{Question: it.Question, Error: it.Err.Error(), ErrorKind: domain.Kind(it.Err)}
	}
	return batchLine{
		Question:          it.Question,
		Answer:            it.Result.Answer.Text,
		Quality:           it.Result.Answer.Quality,
		Citations:         it.Result.Answer.Citations,
		ElapsedMs:         it.Result.Elapsed.Milliseconds(),
		UnverifiedSources: it.Result.Answer.UnverifiedSources,
	}
}
