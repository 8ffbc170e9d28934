package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	mstats "github.com/montanaflynn/stats"

	"gospike/adapters/stats/engine"
	"gospike/domain/ue"
)

// Generator renders an analysis result as a human-readable report:
// markdown for the terminal, HTML for the browser.
type Generator struct{}

// NewGenerator creates a report generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Markdown renders the run summary as a markdown document.
func (g *Generator) Markdown(result *ue.AnalysisResult) (string, error) {
	if result == nil || result.NumWindows() == 0 {
		return "", fmt.Errorf("result has no windows to report")
	}

	input := result.Input
	threshold, err := engine.SurpriseThreshold(input.SignificanceLevel)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# Unitary Events Analysis\n\n")

	// Step 1: echo the configuration
	b.WriteString("## Configuration\n\n")
	fmt.Fprintf(&b, "- Neurons: %d, trials: %d over [%g, %g) ms\n",
		input.NumNeurons, input.NumTrials, float64(input.TStart), float64(input.TStop))
	fmt.Fprintf(&b, "- Bin %g ms, window %g ms, step %g ms (%d windows)\n",
		float64(input.BinSize), float64(input.WinSize), float64(input.WinStep), result.NumWindows())
	fmt.Fprintf(&b, "- Estimation method: %s\n", input.Method)
	fmt.Fprintf(&b, "- Significance level %g (surprise threshold %.4f)\n\n",
		input.SignificanceLevel, threshold)

	// Step 2: per-pattern surprise profile and significant windows
	for p, hash := range input.PatternHashes {
		fmt.Fprintf(&b, "## Pattern %s\n\n", hash.PatternString(input.NumNeurons))

		js := columnOf(result.Js, p)
		nEmp := columnOf(result.NEmp, p)
		nExp := columnOf(result.NExp, p)

		jsMean, _ := mstats.Mean(js)
		jsMedian, _ := mstats.Median(js)
		jsMax, _ := mstats.Max(js)
		empTotal, _ := mstats.Sum(nEmp)
		expTotal, _ := mstats.Sum(nExp)

		fmt.Fprintf(&b, "- Joint surprise: mean %.4f, median %.4f, max %.4f\n", jsMean, jsMedian, jsMax)
		fmt.Fprintf(&b, "- Coincidences: %g observed vs %.2f expected (window totals)\n\n", empTotal, expTotal)

		significant := result.SignificantWindows(p, threshold)
		if len(significant) == 0 {
			b.WriteString("No significant windows.\n\n")
			continue
		}

		fmt.Fprintf(&b, "%d significant window(s):\n\n", len(significant))
		b.WriteString("| Window | Start (ms) | Js | n_emp | n_exp |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, w := range significant {
			fmt.Fprintf(&b, "| %d | %g | %.4f | %g | %.3f |\n",
				w, float64(result.WindowStart(w)), result.Js[w][p], result.NEmp[w][p], result.NExp[w][p])
		}
		b.WriteString("\n")
	}

	// Step 3: firing rate overview per neuron
	b.WriteString("## Firing Rates\n\n")
	b.WriteString("| Neuron | Mean (Hz) | Median (Hz) | Max (Hz) |\n")
	b.WriteString("|---|---|---|---|\n")
	for n := 0; n < input.NumNeurons; n++ {
		rates := columnOf(result.RateAvg, n)
		mean, _ := mstats.Mean(rates)
		median, _ := mstats.Median(rates)
		max, _ := mstats.Max(rates)
		fmt.Fprintf(&b, "| %d | %.2f | %.2f | %.2f |\n", n, mean, median, max)
	}
	b.WriteString("\n")

	return b.String(), nil
}

// HTML renders the run summary as a standalone HTML fragment.
func (g *Generator) HTML(result *ue.AnalysisResult) ([]byte, error) {
	md, err := g.Markdown(result)
	if err != nil {
		return nil, err
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer), nil
}

// columnOf extracts column c of a windows-by-items matrix
func columnOf(m [][]float64, c int) []float64 {
	out := make([]float64, 0, len(m))
	for _, row := range m {
		if c < len(row) {
			out = append(out, row[c])
		}
	}
	return out
}
