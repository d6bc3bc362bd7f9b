package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"medrag/internal/domain"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	answerStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	sourceStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func printAnswer(w io.Writer, ans *domain.Answer, elapsed time.Duration) {
	fmt.Fprintln(w, titleStyle.Render("Answer"))
	fmt.Fprintln(w, answerStyle.Render(ans.Text))
	fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("Quality Score: %.3f  |  Time: %.1fs", ans.Quality, elapsed.Seconds())))
	fmt.Fprintln(w)

	fmt.Fprintln(w, titleStyle.Render("Sources"))
	if len(ans.Citations) == 0 {
		fmt.Fprintln(w, metaStyle.Render("No passages retrieved."))
	}
	for i, c := range ans.Citations {
		fmt.Fprintf(w, "%s %s\n", sourceStyle.Render(fmt.Sprintf("[Source %d]", i+1)), c.Title)
		fmt.Fprintf(w, "  %s\n", c.URL)
		fmt.Fprintf(w, "  %s\n", metaStyle.Render(fmt.Sprintf("Relevance: %.2f", c.Score)))
	}

	if len(ans.UnverifiedSources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Warning: the answer cites sources that were not retrieved: %v", ans.UnverifiedSources)))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
