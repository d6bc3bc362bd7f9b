package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"medrag/config"
	"medrag/internal/adapter/retriever"
	"medrag/internal/bootstrap"
	"medrag/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Directory holding medrag.yaml and the index files")
	query := flag.String("q", "", "Question to test")
	topK := flag.Int("k", 3, "Number of results")
	iterations := flag.Int("n", 200, "Index searches to time")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -dir . -q \"question\"")
		fmt.Println("\nTests:")
		fmt.Println("  1. Startup assets (index and corpus in sync)")
		fmt.Println("  2. Embedding provider round-trip latency")
		fmt.Println("  3. Exact index search latency")
		fmt.Println("  4. Retrieval quality (mean similarity of the top-k)")
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	assets, err := bootstrap.LoadAssets(cfg, *dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading assets: %v\n", err)
		os.Exit(1)
	}
	loadTime := time.Since(start)

	embedder, err := bootstrap.NewEmbedder(cfg, assets.Index.Dimension())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Rows indexed: %d\n", assets.Index.Len())
	fmt.Printf("Model: %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", assets.Index.Dimension())
	fmt.Printf("Load time: %s\n", loadTime.Round(time.Millisecond))
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	ctx := context.Background()
	start = time.Now()
	vec, err := embedder.Embed(ctx, *query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding error: %v\n", err)
		os.Exit(1)
	}
	embedTime := time.Since(start)
	fmt.Printf("Query embedded: %d dimensions in %s\n", len(vec), embedTime.Round(time.Millisecond))

	unit, err := retriever.Normalize(vec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Normalization error: %v\n", err)
		os.Exit(1)
	}

	durations := make([]time.Duration, 0, *iterations)
	for i := 0; i < *iterations; i++ {
		t := time.Now()
		if _, err := assets.Index.Search(ctx, unit, *topK); err != nil {
			fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
			os.Exit(1)
		}
		durations = append(durations, time.Since(t))
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	if len(durations) > 0 {
		fmt.Printf("Search latency over %d runs: p50 %s, p99 %s\n\n",
			len(durations), percentile(durations, 0.50), percentile(durations, 0.99))
	}

	r := retriever.NewSemanticRetriever(assets.Index, fixedEmbedder(vec), assets.Corpus)
	hits, err := r.RetrieveTopK(ctx, *query, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Top %d matches:\n\n", len(hits))
	for i, h := range hits {
		preview := strings.ReplaceAll(h.Text, "\n", " ")
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}

		rating := "LOW"
		if h.Score > 0.7 {
			rating = "HIGH"
		} else if h.Score > 0.5 {
			rating = "GOOD"
		} else if h.Score > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s\n", i+1, rating, h.Score, h.Title)
		fmt.Printf("   %s\n", h.URL)
		fmt.Printf("   %s\n\n", preview)
	}

	quality := usecase.Quality(hits)
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Quality score:      %.3f\n", quality)
	if len(hits) > 0 {
		fmt.Printf("  Top-1 similarity:   %.3f\n", hits[0].Score)
	}

	if quality > 0.5 {
		fmt.Println("  Status: GOOD - retrieved abstracts are closely related")
	} else if quality > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - the corpus may not cover this question")
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	i := int(float64(len(sorted)-1) * p)
	return sorted[i]
}

// fixedEmbedder replays an already computed vector so the retrieval pass
// does not pay for a second provider call.
type fixedEmbedder []float32

func (f fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f, nil
}

func (f fixedEmbedder) ModelName() string { return "replay" }
