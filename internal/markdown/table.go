// Package markdown renders and reads the pipe tables used by the daily report
// and the monthly ledger.
package markdown

import (
	"strings"
	"unicode/utf8"
)

// Align is a column alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Table is a pipe table with a header row.
type Table struct {
	Headers []string
	Align   []Align
	Rows    [][]string
}

// Render writes the table with columns padded to a common width. Output is
// deterministic for a given table and has no trailing newline.
func (t Table) Render() string {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.Rows {
		for i := range widths {
			if n := utf8.RuneCountInString(cell(row, i)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var b strings.Builder
	t.writeRow(&b, t.Headers, widths)
	b.WriteByte('\n')
	b.WriteByte('|')
	for i, w := range widths {
		if t.align(i) == AlignRight {
			b.WriteString(strings.Repeat("-", w+1))
			b.WriteByte(':')
		} else {
			b.WriteByte(':')
			b.WriteString(strings.Repeat("-", w+1))
		}
		b.WriteByte('|')
	}
	for _, row := range t.Rows {
		b.WriteByte('\n')
		t.writeRow(&b, row, widths)
	}
	return b.String()
}

func (t Table) writeRow(b *strings.Builder, row []string, widths []int) {
	b.WriteByte('|')
	for i, w := range widths {
		v := cell(row, i)
		pad := strings.Repeat(" ", w-utf8.RuneCountInString(v))
		b.WriteByte(' ')
		if t.align(i) == AlignRight {
			b.WriteString(pad)
			b.WriteString(v)
		} else {
			b.WriteString(v)
			b.WriteString(pad)
		}
		b.WriteString(" |")
	}
}

func (t Table) align(i int) Align {
	if i < len(t.Align) {
		return t.Align[i]
	}
	return AlignLeft
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// ParseTable extracts the first pipe table found in text. Lines that are not
// table rows are ignored. When the second row is a separator the first row is
// returned as the header; separator rows never appear in the data rows.
func ParseTable(text string) (header []string, rows [][]string) {
	var lines [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			continue
		}
		lines = append(lines, splitRow(line))
	}
	if len(lines) >= 2 && isSeparator(lines[1]) {
		header = lines[0]
		lines = lines[2:]
	}
	for _, l := range lines {
		if isSeparator(l) {
			continue
		}
		rows = append(rows, l)
	}
	return header, rows
}

func splitRow(line string) []string {
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func isSeparator(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		c = strings.Trim(c, ":")
		if c == "" || strings.Trim(c, "-") != "" {
			return false
		}
	}
	return true
}
