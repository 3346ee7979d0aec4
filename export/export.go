// Package export renders assembled tables to HTML and Markdown.
package export

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tsawler/gridform/assemble"
)

// cellText joins the text fragments matched into a record. Records built from
// the geometric fallback carry no text and render as empty cells.
func cellText(r *assemble.Record) string {
	if len(r.TextCellBBoxes) == 0 {
		return r.BBox.Token
	}
	parts := make([]string, 0, len(r.TextCellBBoxes))
	for _, a := range r.TextCellBBoxes {
		if a.Token != "" {
			parts = append(parts, a.Token)
		}
	}
	return strings.Join(parts, " ")
}

// grid lays records out by their start offsets, one anchor per position.
// Positions covered by a span but not anchoring a record hold nil.
type grid struct {
	rows, cols int
	anchors    map[[2]int]*assemble.Record
	covered    map[[2]int]bool
}

func layout(t *assemble.Table) *grid {
	g := &grid{
		rows:    t.NumRows,
		cols:    t.NumCols,
		anchors: make(map[[2]int]*assemble.Record),
		covered: make(map[[2]int]bool),
	}
	for i := range t.Records {
		r := &t.Records[i]
		pos := [2]int{r.StartRowOffsetIdx, r.StartColOffsetIdx}
		if _, taken := g.anchors[pos]; taken {
			continue
		}
		g.anchors[pos] = r
		for row := r.StartRowOffsetIdx; row < r.EndRowOffsetIdx; row++ {
			for col := r.StartColOffsetIdx; col < r.EndColOffsetIdx; col++ {
				g.covered[[2]int{row, col}] = true
			}
		}
		if r.EndRowOffsetIdx > g.rows {
			g.rows = r.EndRowOffsetIdx
		}
		if r.EndColOffsetIdx > g.cols {
			g.cols = r.EndColOffsetIdx
		}
	}
	return g
}

// ToHTML renders the table as an HTML <table> element. Column-header records
// become <th> cells, and spans larger than one emit colspan/rowspan
// attributes.
func ToHTML(t *assemble.Table) (string, error) {
	g := layout(t)

	tableNode := &html.Node{Type: html.ElementNode, DataAtom: atom.Table, Data: "table"}
	for row := 0; row < g.rows; row++ {
		tr := &html.Node{Type: html.ElementNode, DataAtom: atom.Tr, Data: "tr"}
		for col := 0; col < g.cols; col++ {
			pos := [2]int{row, col}
			r, ok := g.anchors[pos]
			if !ok {
				if g.covered[pos] {
					continue
				}
				tr.AppendChild(&html.Node{Type: html.ElementNode, DataAtom: atom.Td, Data: "td"})
				continue
			}

			tag, a := "td", atom.Td
			if r.ColumnHeader {
				tag, a = "th", atom.Th
			}
			cell := &html.Node{Type: html.ElementNode, DataAtom: a, Data: tag}
			if r.ColSpan > 1 {
				cell.Attr = append(cell.Attr, html.Attribute{Key: "colspan", Val: strconv.Itoa(r.ColSpan)})
			}
			if r.RowSpan > 1 {
				cell.Attr = append(cell.Attr, html.Attribute{Key: "rowspan", Val: strconv.Itoa(r.RowSpan)})
			}
			if text := cellText(r); text != "" {
				cell.AppendChild(&html.Node{Type: html.TextNode, Data: text})
			}
			tr.AppendChild(cell)
		}
		tableNode.AppendChild(tr)
	}

	var sb strings.Builder
	if err := html.Render(&sb, tableNode); err != nil {
		return "", fmt.Errorf("rendering table: %w", err)
	}
	return sb.String(), nil
}

// ToMarkdown renders the table as a GitHub-flavored Markdown table. Markdown
// has no span syntax, so spanning cells occupy only their anchor position and
// the remaining covered positions render empty. The separator row follows the
// column-header rows, or the first row when no record is marked as a header.
func ToMarkdown(t *assemble.Table) string {
	g := layout(t)
	if g.rows == 0 || g.cols == 0 {
		return ""
	}

	headerRows := headerRowCount(t)

	var sb strings.Builder
	for row := 0; row < g.rows; row++ {
		sb.WriteString("|")
		for col := 0; col < g.cols; col++ {
			text := ""
			if r, ok := g.anchors[[2]int{row, col}]; ok {
				text = escapeMarkdown(cellText(r))
			}
			sb.WriteString(" ")
			sb.WriteString(text)
			sb.WriteString(" |")
		}
		sb.WriteString("\n")

		if row == headerRows-1 {
			sb.WriteString("|")
			for col := 0; col < g.cols; col++ {
				sb.WriteString("---|")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// headerRowCount reports how many leading rows hold column headers. Tables
// without any header records get a one-row header so the output stays valid
// Markdown.
func headerRowCount(t *assemble.Table) int {
	last := -1
	for i := range t.Records {
		r := &t.Records[i]
		if r.ColumnHeader && r.EndRowOffsetIdx-1 > last {
			last = r.EndRowOffsetIdx - 1
		}
	}
	if last < 0 {
		return 1
	}
	return last + 1
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

// sortedAnchors returns the anchored records in row-major order. It exists for
// callers that need a stable traversal, such as plain-text extraction.
func sortedAnchors(g *grid) []*assemble.Record {
	keys := make([][2]int, 0, len(g.anchors))
	for k := range g.anchors {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	records := make([]*assemble.Record, 0, len(keys))
	for _, k := range keys {
		records = append(records, g.anchors[k])
	}
	return records
}

// ToText renders the table as plain text, one row per line with cells
// separated by tabs.
func ToText(t *assemble.Table) string {
	g := layout(t)
	rows := make(map[int][]string)
	for _, r := range sortedAnchors(g) {
		row := r.StartRowOffsetIdx
		rows[row] = append(rows[row], cellText(r))
	}

	var sb strings.Builder
	for row := 0; row < g.rows; row++ {
		sb.WriteString(strings.Join(rows[row], "\t"))
		sb.WriteString("\n")
	}
	return sb.String()
}
