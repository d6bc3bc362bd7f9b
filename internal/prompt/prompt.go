// Package prompt renders retrieved evidence and a question into the
// grounded answer prompt, and checks the citations a model sends back.
package prompt

import (
	"embed"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"medrag/internal/domain"
)

// Fallback is what the model is told to say when the context lacks the answer.
const Fallback = "Not enough information in the retrieved papers."

//go:embed templates/*.txt
var templates embed.FS

var answerTemplate = template.Must(
	template.New("answer.txt").Funcs(template.FuncMap{"sources": Sources}).ParseFS(templates, "templates/answer.txt"),
)

type templateData struct {
	Question string
	Hits     []domain.RetrievalHit
	Fallback string
}

// Build renders the answer prompt. It is pure: equal inputs give equal output.
// With no hits the context section is empty and the fallback still applies.
func Build(question string, hits []domain.RetrievalHit) string {
	var sb strings.Builder
	data := templateData{Question: question, Hits: hits, Fallback: Fallback}
	if err := answerTemplate.Execute(&sb, data); err != nil {
		// Only reachable through a broken embedded template.
		panic(fmt.Sprintf("render answer prompt: %v", err))
	}
	return strings.TrimSpace(sb.String())
}

// Sources renders hits as 1-indexed "[Source i] text\n(Citation: url)" blocks
// separated by a blank line.
func Sources(hits []domain.RetrievalHit) string {
	blocks := make([]string, len(hits))
	for i, h := range hits {
		blocks[i] = fmt.Sprintf("[Source %d] %s\n(Citation: %s)", i+1, h.Text, h.URL)
	}
	return strings.Join(blocks, "\n\n")
}

var sourceRef = regexp.MustCompile(`(?i)\[sources?\s+([0-9][0-9,\s]*)\]`)

// CitedSources returns the distinct source numbers referenced in answer,
// ascending. Both "[Source 2]" and "[Source 1, 3]" are recognized.
func CitedSources(answer string) []int {
	seen := make(map[int]bool)
	var out []int
	for _, m := range sourceRef.FindAllStringSubmatch(answer, -1) {
		for _, part := range strings.Split(m[1], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

// Unverified returns cited source numbers outside 1..hitCount.
func Unverified(answer string, hitCount int) []int {
	var out []int
	for _, n := range CitedSources(answer) {
		if n < 1 || n > hitCount {
			out = append(out, n)
		}
	}
	return out
}
