// Package assemble turns a post-processed matching snapshot into the flat,
// JSON-serializable record set consumed downstream: one record per matched
// text cell (or per table cell when no text was matched), with renumbered
// row/column offsets and duplicate records merged.
package assemble

import (
	"errors"
	"sort"

	"github.com/tsawler/gridform/decoder"
	"github.com/tsawler/gridform/model"
)

// ErrNoRowDelimiter is returned in non-renumbering mode when the decoded
// token sequence contains no nl token, leaving the row count undefined.
var ErrNoRowDelimiter = errors.New("assemble: token sequence contains no nl delimiter")

// BBoxAnnotation is a bounding box with its text, serialized with the fixed
// downstream keys.
type BBoxAnnotation struct {
	B     float64 `json:"b"`
	L     float64 `json:"l"`
	R     float64 `json:"r"`
	T     float64 `json:"t"`
	Token string  `json:"token"`
}

func annotate(b model.BBox, token string) BBoxAnnotation {
	return BBoxAnnotation{B: b.Bottom, L: b.Left, R: b.Right, T: b.Top, Token: token}
}

// Record is one cell of the final table description.
type Record struct {
	CellID            int              `json:"cell_id"`
	BBox              BBoxAnnotation   `json:"bbox"`
	RowSpan           int              `json:"row_span"`
	ColSpan           int              `json:"col_span"`
	StartRowOffsetIdx int              `json:"start_row_offset_idx"`
	EndRowOffsetIdx   int              `json:"end_row_offset_idx"`
	StartColOffsetIdx int              `json:"start_col_offset_idx"`
	EndColOffsetIdx   int              `json:"end_col_offset_idx"`
	IndentationLevel  int              `json:"indentation_level"`
	TextCellBBoxes    []BBoxAnnotation `json:"text_cell_bboxes"`
	ColumnHeader      bool             `json:"column_header"`
	RowHeader         bool             `json:"row_header"`
	RowSection        bool             `json:"row_section"`
}

// Table is the assembled record set with its final dimensions.
type Table struct {
	Records []Record `json:"table_cells"`
	NumRows int      `json:"num_rows"`
	NumCols int      `json:"num_cols"`
}

// Assembler builds the final record set.
type Assembler struct {
	// SortRowColIndexes densely renumbers row/column offsets by rank. When
	// false, table dimensions are taken from the decoded token sequence
	// instead.
	SortRowColIndexes bool
}

// New creates an assembler with renumbering enabled.
func New() *Assembler {
	return &Assembler{SortRowColIndexes: true}
}

// Assemble emits one record per matched PDF cell, falling back to one record
// per table cell when no matches exist at all. tokens is the decoded
// structural sequence; it is only consulted in non-renumbering mode.
func (a *Assembler) Assemble(d *model.MatchingDetails, tokens []string) (*Table, error) {
	records := a.buildRecords(d)

	table := &Table{Records: records}
	if a.SortRowColIndexes {
		a.renumber(table)
	} else {
		rows, cols, err := structuralCounts(tokens)
		if err != nil {
			return nil, err
		}
		table.NumRows = rows
		table.NumCols = cols
	}

	table.Records = mergeDuplicates(table.Records)
	return table, nil
}

// buildRecords emits the raw records in PDF-cell encounter order, or one per
// table cell when nothing matched.
func (a *Assembler) buildRecords(d *model.MatchingDetails) []Record {
	var records []Record

	if len(d.Matches) > 0 {
		for _, pdf := range d.PdfCells {
			list := d.Matches[pdf.ID]
			if len(list) == 0 {
				continue
			}
			cell, ok := d.FindTableCell(list[0].TableCellID)
			if !ok {
				continue
			}
			rec := recordFromCell(cell, pdf.Text)
			rec.TextCellBBoxes = []BBoxAnnotation{annotate(pdf.BBox, pdf.Text)}
			records = append(records, rec)
		}
		return records
	}

	// Geometric fallback: no text to anchor on, so the predicted cells are
	// the output.
	for _, cell := range d.TableCells {
		if cell.Linked || cell.Spanned {
			continue
		}
		records = append(records, recordFromCell(cell, ""))
	}
	return records
}

func recordFromCell(cell *model.TableCell, token string) Record {
	colSpan := cell.EffectiveColSpan()
	rowSpan := cell.EffectiveRowSpan()
	return Record{
		CellID:            cell.CellID,
		BBox:              annotate(cell.BBox, token),
		RowSpan:           rowSpan,
		ColSpan:           colSpan,
		StartRowOffsetIdx: cell.RowID,
		EndRowOffsetIdx:   cell.RowID + rowSpan,
		StartColOffsetIdx: cell.ColumnID,
		EndColOffsetIdx:   cell.ColumnID + colSpan,
		ColumnHeader:      cell.Label == model.LabelColumnHeader,
		RowHeader:         cell.Label == model.LabelRowHeader,
		RowSection:        cell.Label == model.LabelSectionRow,
	}
}

// renumber densely remaps start offsets to their rank among the distinct
// values present; end offsets keep each record's span. Table dimensions are
// the largest remapped end indexes.
func (a *Assembler) renumber(table *Table) {
	colRank := rankMap(table.Records, func(r Record) int { return r.StartColOffsetIdx })
	rowRank := rankMap(table.Records, func(r Record) int { return r.StartRowOffsetIdx })

	for i := range table.Records {
		rec := &table.Records[i]
		colSpan := rec.EndColOffsetIdx - rec.StartColOffsetIdx
		rowSpan := rec.EndRowOffsetIdx - rec.StartRowOffsetIdx

		rec.StartColOffsetIdx = colRank[rec.StartColOffsetIdx]
		rec.EndColOffsetIdx = rec.StartColOffsetIdx + colSpan
		rec.StartRowOffsetIdx = rowRank[rec.StartRowOffsetIdx]
		rec.EndRowOffsetIdx = rec.StartRowOffsetIdx + rowSpan

		if rec.EndColOffsetIdx > table.NumCols {
			table.NumCols = rec.EndColOffsetIdx
		}
		if rec.EndRowOffsetIdx > table.NumRows {
			table.NumRows = rec.EndRowOffsetIdx
		}
	}
}

// rankMap maps each distinct key value to its rank in sorted order.
func rankMap(records []Record, key func(Record) int) map[int]int {
	seen := make(map[int]bool)
	for _, r := range records {
		seen[key(r)] = true
	}
	values := make([]int, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Ints(values)

	ranks := make(map[int]int, len(values))
	for i, v := range values {
		ranks[v] = i
	}
	return ranks
}

// structuralCounts derives table dimensions from the decoded sequence: the
// column count is the number of cells before the first nl, the row count the
// number of nl occurrences. A sequence without nl is a hard error.
func structuralCounts(tokens []string) (rows, cols int, err error) {
	position := 0
	firstNl := -1
	for _, tok := range tokens {
		switch tok {
		case decoder.TokenCell, decoder.TokenEmpty, decoder.TokenLinked,
			decoder.TokenSpanAnchor, decoder.TokenSpanned:
			position++
		case decoder.TokenNewline:
			rows++
			if firstNl < 0 {
				firstNl = position
			}
		}
	}
	if firstNl < 0 {
		return 0, 0, ErrNoRowDelimiter
	}
	return rows, firstNl, nil
}

// mergeDuplicates collapses records that landed on the same remapped
// (column, row) start position. The first record wins; the rest only
// contribute their text-box annotations.
func mergeDuplicates(records []Record) []Record {
	type gridPos struct{ col, row int }

	keptAt := make(map[gridPos]int)
	out := records[:0]
	for _, rec := range records {
		pos := gridPos{rec.StartColOffsetIdx, rec.StartRowOffsetIdx}
		if i, ok := keptAt[pos]; ok {
			out[i].TextCellBBoxes = append(out[i].TextCellBBoxes, rec.TextCellBBoxes...)
			continue
		}
		keptAt[pos] = len(out)
		out = append(out, rec)
	}
	return out
}
