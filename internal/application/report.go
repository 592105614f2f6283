package application

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ahrav/gavel-bench/internal/domain"
)

// ReportFormat selects how statistics are rendered.
type ReportFormat string

// Supported report formats.
const (
	FormatTable ReportFormat = "table"
	FormatJSON  ReportFormat = "json"
)

// ParseReportFormat validates a format name. The empty string selects FormatTable.
func ParseReportFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(s)); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want table or json): %w", s, domain.ErrInvalidConfiguration)
	}
}

var upper = cases.Upper(language.English)

// dimensionLabel turns a dimension name into a report heading: total_score
// becomes TOTAL SCORE.
func dimensionLabel(dim string) string {
	return upper.String(strings.ReplaceAll(dim, "_", " "))
}

// RenderSummary writes per-dimension statistics.
func RenderSummary(w io.Writer, summary domain.SummaryStatistics, format ReportFormat) error {
	if format == FormatJSON {
		return writeJSON(w, summary)
	}

	title := "STATISTICS SUMMARY"
	if summary.Name != "" {
		title += ": " + summary.Name
	}
	writeTitle(w, title, 50)

	table := newReportTable(w, []string{"Dimension", "Count", "Mean", "Median", "Standard Deviation"})
	for _, d := range summary.Dimensions {
		if err := table.Append([]string{
			dimensionLabel(d.Dimension),
			strconv.Itoa(d.Count),
			fmt.Sprintf("%.2f", d.Mean),
			fmt.Sprintf("%.2f", d.Median),
			fmt.Sprintf("%.2f", d.StdDev),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// RenderComparison writes t-test results, one row per shared dimension.
func RenderComparison(w io.Writer, results []domain.ComparisonResult, format ReportFormat) error {
	if format == FormatJSON {
		rows := make([]comparisonJSON, len(results))
		for i, r := range results {
			rows[i] = comparisonJSON{
				Dimension:   r.Dimension,
				Group1Count: r.Group1Count,
				Group2Count: r.Group2Count,
				Group1Mean:  reportFloat(r.Group1Mean),
				Group2Mean:  reportFloat(r.Group2Mean),
				TStatistic:  reportFloat(r.TStatistic),
				PValue:      reportFloat(r.PValue),
				Significant: r.Significant,
			}
		}
		return writeJSON(w, rows)
	}

	writeTitle(w, "T-TEST COMPARISON RESULTS", 60)

	table := newReportTable(w, []string{
		"Dimension", "Group 1 Mean", "Group 2 Mean", "T-statistic", "P-value", "Significant (p<0.05)",
	})
	for _, r := range results {
		significant := "NO"
		if r.Significant {
			significant = "YES"
		}
		if err := table.Append([]string{
			dimensionLabel(r.Dimension),
			fmt.Sprintf("%.2f (n=%d)", r.Group1Mean, r.Group1Count),
			fmt.Sprintf("%.2f (n=%d)", r.Group2Mean, r.Group2Count),
			fmt.Sprintf("%.4f", r.TStatistic),
			fmt.Sprintf("%.4f", r.PValue),
			significant,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

type comparisonJSON struct {
	Dimension   string      `json:"dimension"`
	Group1Count int         `json:"group1_count"`
	Group2Count int         `json:"group2_count"`
	Group1Mean  reportFloat `json:"group1_mean"`
	Group2Mean  reportFloat `json:"group2_mean"`
	TStatistic  reportFloat `json:"t_statistic"`
	PValue      reportFloat `json:"p_value"`
	Significant bool        `json:"significant"`
}

// reportFloat encodes NaN and infinities, which JSON numbers cannot hold,
// as the strings "NaN", "+Inf" and "-Inf".
type reportFloat float64

func (f reportFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return json.Marshal(strconv.FormatFloat(v, 'f', -1, 64))
	}
	return json.Marshal(v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTitle(w io.Writer, title string, width int) {
	rule := strings.Repeat("=", width)
	fmt.Fprintf(w, "\n%s\n%s\n%s\n\n", rule, title, rule)
}

func newReportTable(w io.Writer, headers []string) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Top: tw.Off, Right: tw.On, Bottom: tw.Off},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}
