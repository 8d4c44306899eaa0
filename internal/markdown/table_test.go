package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Render(t *testing.T) {
	tbl := Table{
		Headers: []string{"Day", "Cost ($)"},
		Align:   []Align{AlignRight, AlignRight},
		Rows:    [][]string{{"1", "5.00"}, {"12", "120.50"}},
	}

	want := "| Day | Cost ($) |\n" +
		"|----:|---------:|\n" +
		"|   1 |     5.00 |\n" +
		"|  12 |   120.50 |"
	assert.Equal(t, want, tbl.Render())
}

func TestTable_RenderLeftAligned(t *testing.T) {
	tbl := Table{
		Headers: []string{"Description", "Duration"},
		Rows:    [][]string{{"Droplet", "N/A"}},
	}

	want := "| Description | Duration |\n" +
		"|:------------|:---------|\n" +
		"| Droplet     | N/A      |"
	assert.Equal(t, want, tbl.Render())
}

func TestParseTable_RoundTrip(t *testing.T) {
	tbl := Table{
		Headers: []string{"Day", "Cost ($)", "Running Total ($)"},
		Align:   []Align{AlignRight, AlignRight, AlignRight},
		Rows:    [][]string{{"1", "5.00", "5.00"}, {"3", "2.50", "7.50"}},
	}

	header, rows := ParseTable("# Title\n\n" + tbl.Render() + "\n\n*footer*\n")

	assert.Equal(t, tbl.Headers, header)
	require.Len(t, rows, 2)
	assert.Equal(t, tbl.Rows, rows)
}

func TestParseTable_LegacyPadding(t *testing.T) {
	text := "|   Day |   Cost ($) |   Running Total ($) |\n" +
		"|------:|-----------:|--------------------:|\n" +
		"|     1 |       5    |                5    |\n"

	header, rows := ParseTable(text)

	assert.Equal(t, []string{"Day", "Cost ($)", "Running Total ($)"}, header)
	assert.Equal(t, [][]string{{"1", "5", "5"}}, rows)
}

func TestParseTable_NoTable(t *testing.T) {
	header, rows := ParseTable("No costs recorded for today.")
	assert.Nil(t, header)
	assert.Empty(t, rows)
}
