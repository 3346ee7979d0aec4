package export

import (
	"strings"
	"testing"

	"github.com/tsawler/gridform/assemble"
)

func record(id, row, col, rowSpan, colSpan int, text string, header bool) assemble.Record {
	return assemble.Record{
		CellID:            id,
		RowSpan:           rowSpan,
		ColSpan:           colSpan,
		StartRowOffsetIdx: row,
		EndRowOffsetIdx:   row + rowSpan,
		StartColOffsetIdx: col,
		EndColOffsetIdx:   col + colSpan,
		TextCellBBoxes:    []assemble.BBoxAnnotation{{Token: text}},
		ColumnHeader:      header,
	}
}

func sampleTable() *assemble.Table {
	return &assemble.Table{
		Records: []assemble.Record{
			record(0, 0, 0, 1, 1, "Name", true),
			record(1, 0, 1, 1, 1, "Age", true),
			record(2, 1, 0, 1, 1, "Alice", false),
			record(3, 1, 1, 1, 1, "30", false),
		},
		NumRows: 2,
		NumCols: 2,
	}
}

func TestToHTML(t *testing.T) {
	out, err := ToHTML(sampleTable())
	if err != nil {
		t.Fatalf("ToHTML failed: %v", err)
	}

	expected := "<table><tr><th>Name</th><th>Age</th></tr><tr><td>Alice</td><td>30</td></tr></table>"
	if out != expected {
		t.Errorf("Expected %q, got %q", expected, out)
	}
}

func TestToHTMLSpans(t *testing.T) {
	table := &assemble.Table{
		Records: []assemble.Record{
			record(0, 0, 0, 1, 2, "Title", true),
			record(1, 1, 0, 2, 1, "Side", false),
			record(2, 1, 1, 1, 1, "a", false),
			record(3, 2, 1, 1, 1, "b", false),
		},
		NumRows: 3,
		NumCols: 2,
	}

	out, err := ToHTML(table)
	if err != nil {
		t.Fatalf("ToHTML failed: %v", err)
	}

	if !strings.Contains(out, `<th colspan="2">Title</th>`) {
		t.Errorf("Expected colspan attribute, got %q", out)
	}
	if !strings.Contains(out, `<td rowspan="2">Side</td>`) {
		t.Errorf("Expected rowspan attribute, got %q", out)
	}
	// The spanned positions must not produce extra cells.
	if got := strings.Count(out, "<td"); got != 3 {
		t.Errorf("Expected 3 td cells, got %d in %q", got, out)
	}
}

func TestToHTMLEscapesText(t *testing.T) {
	table := &assemble.Table{
		Records: []assemble.Record{
			record(0, 0, 0, 1, 1, "a < b & c", false),
		},
		NumRows: 1,
		NumCols: 1,
	}

	out, err := ToHTML(table)
	if err != nil {
		t.Fatalf("ToHTML failed: %v", err)
	}
	if !strings.Contains(out, "a &lt; b &amp; c") {
		t.Errorf("Expected escaped text, got %q", out)
	}
}

func TestToHTMLFillsMissingCells(t *testing.T) {
	table := &assemble.Table{
		Records: []assemble.Record{
			record(0, 0, 0, 1, 1, "only", false),
		},
		NumRows: 1,
		NumCols: 2,
	}

	out, err := ToHTML(table)
	if err != nil {
		t.Fatalf("ToHTML failed: %v", err)
	}

	expected := "<table><tr><td>only</td><td></td></tr></table>"
	if out != expected {
		t.Errorf("Expected %q, got %q", expected, out)
	}
}

func TestToMarkdown(t *testing.T) {
	out := ToMarkdown(sampleTable())

	expected := "| Name | Age |\n|---|---|\n| Alice | 30 |\n"
	if out != expected {
		t.Errorf("Expected %q, got %q", expected, out)
	}
}

func TestToMarkdownNoHeaderRecords(t *testing.T) {
	table := &assemble.Table{
		Records: []assemble.Record{
			record(0, 0, 0, 1, 1, "a", false),
			record(1, 1, 0, 1, 1, "b", false),
		},
		NumRows: 2,
		NumCols: 1,
	}

	out := ToMarkdown(table)

	// The first row doubles as the header so the output stays valid Markdown.
	expected := "| a |\n|---|\n| b |\n"
	if out != expected {
		t.Errorf("Expected %q, got %q", expected, out)
	}
}

func TestToMarkdownEscapesPipes(t *testing.T) {
	table := &assemble.Table{
		Records: []assemble.Record{
			record(0, 0, 0, 1, 1, "a|b", false),
		},
		NumRows: 1,
		NumCols: 1,
	}

	out := ToMarkdown(table)
	if !strings.Contains(out, `a\|b`) {
		t.Errorf("Expected escaped pipe, got %q", out)
	}
}

func TestToMarkdownEmptyTable(t *testing.T) {
	out := ToMarkdown(&assemble.Table{})
	if out != "" {
		t.Errorf("Expected empty output, got %q", out)
	}
}

func TestToText(t *testing.T) {
	out := ToText(sampleTable())

	expected := "Name\tAge\nAlice\t30\n"
	if out != expected {
		t.Errorf("Expected %q, got %q", expected, out)
	}
}
