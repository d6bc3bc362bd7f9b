package usecase

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"medrag/internal/port"
)

// CollectQuestions reads every question file found under roots, in walk order.
func CollectQuestions(walker port.FileWalker, reader port.QuestionReader, roots []string) ([]string, error) {
	var questions []string
	for _, root := range roots {
		files, err := walker.Walk(root)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}
		for _, f := range files {
			qs, err := reader.ReadQuestions(f.Path)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", f.Path, err)
			}
			questions = append(questions, qs...)
		}
	}
	return questions, nil
}

// BatchItem is the outcome of one question in a batch. Exactly one of
// Result and Err is set.
type BatchItem struct {
	Question string
	Result   *AskResult
	Err      error
}

// BatchUseCase answers many questions concurrently.
type BatchUseCase struct {
	ask      *AskUseCase
	parallel int
}

func NewBatchUseCase(ask *AskUseCase, parallel int) *BatchUseCase {
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}
	return &BatchUseCase{ask: ask, parallel: parallel}
}

// Run answers every question with k passages. A failed question does not
// stop the others; results keep input order. onDone is called after each
// question and may be nil.
func (u *BatchUseCase) Run(ctx context.Context, questions []string, k int, onDone func(BatchItem)) ([]BatchItem, error) {
	items := make([]BatchItem, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.parallel)

	for i, q := range questions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				items[i] = BatchItem{Question: q, Err: err}
				return err
			}
			res, err := u.ask.Ask(gctx, q, k)
			items[i] = BatchItem{Question: q, Result: res, Err: err}
			if onDone != nil {
				onDone(items[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return items, err
	}
	return items, nil
}

// Failed counts items that ended in error.
func Failed(items []BatchItem) int {
	n := 0
	for _, it := range items {
		if it.Err != nil {
			n++
		}
	}
	return n
}
