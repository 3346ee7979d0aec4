// Package parser converts a finalized structural token sequence into a grid
// of table cells with row/column spans. Cells absorbed into a span are marked
// linked (horizontal) or spanned (vertical) and carry no geometry downstream.
package parser

import (
	"github.com/tsawler/gridform/decoder"
	"github.com/tsawler/gridform/model"
)

// Result is the parsed grid: cells in creation order plus the row and column
// counts implied by the sequence. Kinds records the token that created each
// cell, index-aligned to Cells; relabeling (ched/rhed/srow) does not touch it.
type Result struct {
	Cells   []*model.TableCell
	Kinds   []string
	Rows    int
	Columns int
}

// Parse walks the token sequence and builds the cell grid. Parsing never
// fails: <end> and <pad> stop it, unrecognized tokens are skipped.
func Parse(tokens []string) *Result {
	var cells []*model.TableCell
	var kinds []string // originating token per cell, stable under relabeling

	row, col := 0, 0
	rowOpen := false
	anyRow := false
	nlCount := 0

	// lastCell returns the most recently appended cell of the open row, or
	// nil when the row has none yet.
	lastCell := func() *model.TableCell {
		if !rowOpen || len(cells) == 0 {
			return nil
		}
		last := cells[len(cells)-1]
		if last.RowID != row {
			return nil
		}
		return last
	}

	appendCell := func(label string) {
		if !rowOpen {
			if anyRow {
				row++
			}
			anyRow = true
			rowOpen = true
			col = 0
		}
		cells = append(cells, &model.TableCell{
			CellID:   len(cells),
			RowID:    row,
			ColumnID: col,
			Label:    label,
			ColSpan:  1,
			RowSpan:  1,
		})
		kinds = append(kinds, label)
		col++
	}

loop:
	for _, tok := range tokens {
		switch tok {
		case decoder.TokenEnd, decoder.TokenPad:
			break loop
		case decoder.TokenCell, decoder.TokenEmpty, decoder.TokenLinked,
			decoder.TokenSpanAnchor, decoder.TokenSpanned:
			appendCell(tok)
		case decoder.TokenColumnHeader:
			if c := lastCell(); c != nil {
				c.Label = model.LabelColumnHeader
			}
		case decoder.TokenRowHeader:
			if c := lastCell(); c != nil {
				c.Label = model.LabelRowHeader
			}
		case decoder.TokenSectionRow:
			if c := lastCell(); c != nil {
				c.Label = model.LabelSectionRow
				c.RowSpan = 2
			}
		case decoder.TokenNewline:
			rowOpen = false
			nlCount++
		default:
			// <start> and anything unrecognized.
		}
	}

	res := &Result{Cells: cells, Kinds: kinds}
	res.Rows = nlCount
	if rowOpen && lastCell() != nil {
		res.Rows++ // non-empty trailing row without a closing nl
	}
	for _, c := range cells {
		if c.ColumnID+1 > res.Columns {
			res.Columns = c.ColumnID + 1
		}
	}

	mergeHorizontal(cells, kinds)
	mergeVertical(cells, kinds)
	return res
}

// mergeHorizontal collapses each left-to-right run of lcel cells into the
// preceding anchor's colspan. A run of k lcels leaves the anchor with
// colspan k+1 and k cells marked linked.
func mergeHorizontal(cells []*model.TableCell, kinds []string) {
	var anchor *model.TableCell
	anchorRow := -1

	for i, c := range cells {
		if c.RowID != anchorRow {
			anchor = nil
			anchorRow = c.RowID
		}
		if kinds[i] == decoder.TokenLinked && anchor != nil {
			anchor.ColSpan++
			c.Linked = true
			continue
		}
		anchor = c
	}
}

// mergeVertical collapses each top-to-bottom run of xcel cells into the
// ucel anchor above it in the same column.
func mergeVertical(cells []*model.TableCell, kinds []string) {
	// Cells are in reading order, so per-column traversal just filters by
	// column id.
	maxCol := -1
	for _, c := range cells {
		if c.ColumnID > maxCol {
			maxCol = c.ColumnID
		}
	}

	for col := 0; col <= maxCol; col++ {
		var anchor *model.TableCell
		for i, c := range cells {
			if c.ColumnID != col {
				continue
			}
			switch {
			case kinds[i] == decoder.TokenSpanAnchor:
				anchor = c
			case kinds[i] == decoder.TokenSpanned && anchor != nil:
				anchor.RowSpan++
				c.Spanned = true
			default:
				anchor = nil
			}
		}
	}
}
