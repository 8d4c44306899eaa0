// Package report renders and persists the daily cost report.
package report

import (
	"fmt"
	"strings"
	"time"

	"costalert/internal/core"
	"costalert/internal/markdown"
)

const timestampLayout = "2006-01-02 15:04:05"

// EmptyMessage replaces the table when nothing was billed on the day.
const EmptyMessage = "No costs recorded for today."

// RenderDaily renders the day's line items as a pipe table closed by a bold
// total row, followed by the generation timestamp.
func RenderDaily(dc core.DailyCosts, generatedAt time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Cost Report - %s\n\n", core.ProviderName, dc.Date)
	b.WriteString(RenderTable(dc))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "*Generated at: %s*\n", generatedAt.Format(timestampLayout))
	return []byte(b.String())
}

// RenderTable renders only the cost table, or EmptyMessage.
func RenderTable(dc core.DailyCosts) string {
	if dc.IsEmpty() {
		return EmptyMessage
	}
	tbl := markdown.Table{
		Headers: []string{"Description", "Amount ($)", "Duration"},
		Align:   []markdown.Align{markdown.AlignLeft, markdown.AlignRight, markdown.AlignLeft},
	}
	for _, it := range dc.Items {
		tbl.Rows = append(tbl.Rows, []string{it.Description, it.AmountString(), it.Duration})
	}
	tbl.Rows = append(tbl.Rows, []string{"**Total**", "**" + dc.Total.String() + "**", ""})
	return tbl.Render()
}

// RenderError renders the error block appended to the daily report when a
// run fails.
func RenderError(errorType string, err error, at time.Time) []byte {
	ts := at.Format(timestampLayout)
	msg := "<nil>"
	if err != nil {
		msg = err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s Error Report - %s\n\n", core.ProviderName, ts)
	b.WriteString("```\n")
	fmt.Fprintf(&b, "Error Type: %s\n", errorType)
	fmt.Fprintf(&b, "Error Message: %s\n", msg)
	b.WriteString("```\n")
	fmt.Fprintf(&b, "\n*Error recorded at: %s*\n", ts)
	return []byte(b.String())
}
