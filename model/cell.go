package model

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Structural labels carried by table cells. The decoder's token vocabulary
// uses the same names.
const (
	LabelBody         = "body"
	LabelCell         = "fcel"
	LabelEmpty        = "ecel"
	LabelLinked       = "lcel"
	LabelSpanAnchor   = "ucel"
	LabelSpanned      = "xcel"
	LabelColumnHeader = "ched"
	LabelRowHeader    = "rhed"
	LabelSectionRow   = "srow"
)

// TableCell is a single cell predicted by the structure model. Cells are
// created by the structural parser and repositioned by the matching
// post-processor; the matcher and assembler only read them.
type TableCell struct {
	CellID   int
	RowID    int
	ColumnID int
	BBox     BBox

	// CellClass is the discrete confidence/category code assigned from the
	// model's class logits. Cells with class <= 1 are treated as unreliable
	// by the post-processor.
	CellClass int

	// Label is the structural tag (fcel, ched, rhed, srow, body, ...).
	Label string

	// ColSpan and RowSpan come from structural parsing. ColSpanValue and
	// RowSpanValue, when non-zero, are overrides set during merging and take
	// precedence over the structural values.
	ColSpan      int
	RowSpan      int
	ColSpanValue int
	RowSpanValue int

	// Linked marks a cell absorbed into a horizontal span; Spanned marks a
	// cell absorbed into a vertical span. Neither carries geometry downstream.
	Linked  bool
	Spanned bool

	// HasGeometry reports whether BBox was anchored by a decoded prediction
	// box. Cells without geometry are repaired by the post-processor.
	HasGeometry bool
}

// EffectiveColSpan returns the override span when set, otherwise the
// structural span, otherwise 1.
func (c *TableCell) EffectiveColSpan() int {
	if c.ColSpanValue > 0 {
		return c.ColSpanValue
	}
	if c.ColSpan > 0 {
		return c.ColSpan
	}
	return 1
}

// EffectiveRowSpan returns the override span when set, otherwise the
// structural span, otherwise 1.
func (c *TableCell) EffectiveRowSpan() int {
	if c.RowSpanValue > 0 {
		return c.RowSpanValue
	}
	if c.RowSpan > 0 {
		return c.RowSpan
	}
	return 1
}

// Clone returns a copy of the cell.
func (c *TableCell) Clone() *TableCell {
	out := *c
	return &out
}

// PdfCell is a text box extracted from the document by an external preparer.
// It is immutable once created.
type PdfCell struct {
	// ID may be numeric-as-string or an opaque token. Use SameID to compare.
	ID   string
	Text string
	BBox BBox
}

// NewPdfCell creates a text cell with NFKC-normalized, whitespace-trimmed
// text. Normalization happens here so the empty-text drop rule sees
// compatibility forms and exotic spaces uniformly.
func NewPdfCell(id, text string, bbox BBox) PdfCell {
	return PdfCell{
		ID:   id,
		Text: strings.TrimSpace(norm.NFKC.String(text)),
		BBox: bbox,
	}
}

// NewPdfCellAutoID creates a text cell with a generated opaque id. Used by
// preparers (such as the OCR client) whose sources have no native cell ids.
func NewPdfCellAutoID(text string, bbox BBox) PdfCell {
	return NewPdfCell(uuid.NewString(), text, bbox)
}

// IsEmpty reports whether the cell has no usable text.
func (p PdfCell) IsEmpty() bool {
	return strings.TrimSpace(p.Text) == ""
}

// SameID reports whether two cell ids refer to the same cell. Ids are equal
// when byte-equal, or when both parse as integers with the same value
// ("07" and "7" match). Both the matcher and the assembler use this single
// comparison.
func SameID(a, b string) bool {
	if a == b {
		return true
	}
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	return aerr == nil && berr == nil && ai == bi
}

// Match records how strongly a predicted table cell covers a PDF text cell.
// Matches are grouped per PDF cell id and kept in descending score order.
type Match struct {
	TableCellID int

	// IntersectionOverPdfArea is the fraction of the PDF cell's area covered
	// by the table cell. Always populated.
	IntersectionOverPdfArea float64

	// IntersectionOverUnion and PostScore are optional refinements; zero
	// means unset.
	IntersectionOverUnion float64
	PostScore             float64
}

// Score returns the value used for ranking matches.
func (m Match) Score() float64 {
	return m.IntersectionOverPdfArea
}

// MatchingDetails is the aggregate snapshot produced by the matcher. The
// post-processor works on a Clone and re-freezes the result before assembly.
type MatchingDetails struct {
	IoUThreshold float64

	// TableBBox is the table region in page coordinates.
	TableBBox BBox

	// PredictionBoxes are the decoded cell boxes projected into page space,
	// index-aligned to decode order.
	PredictionBoxes []BBox

	TableCells []*TableCell
	PdfCells   []PdfCell

	// Matches groups candidate matches per PDF cell id, each list sorted by
	// descending score.
	Matches map[string][]Match

	PageWidth  float64
	PageHeight float64
}

// Clone returns a deep copy. The post-processor clones before mutating so
// callers keep their snapshot intact.
func (d *MatchingDetails) Clone() *MatchingDetails {
	out := &MatchingDetails{
		IoUThreshold: d.IoUThreshold,
		TableBBox:    d.TableBBox,
		PageWidth:    d.PageWidth,
		PageHeight:   d.PageHeight,
	}
	if d.PredictionBoxes != nil {
		out.PredictionBoxes = make([]BBox, len(d.PredictionBoxes))
		copy(out.PredictionBoxes, d.PredictionBoxes)
	}
	if d.TableCells != nil {
		out.TableCells = make([]*TableCell, len(d.TableCells))
		for i, c := range d.TableCells {
			out.TableCells[i] = c.Clone()
		}
	}
	if d.PdfCells != nil {
		out.PdfCells = make([]PdfCell, len(d.PdfCells))
		copy(out.PdfCells, d.PdfCells)
	}
	if d.Matches != nil {
		out.Matches = make(map[string][]Match, len(d.Matches))
		for id, list := range d.Matches {
			copied := make([]Match, len(list))
			copy(copied, list)
			out.Matches[id] = copied
		}
	}
	return out
}

// FindPdfCell returns the PDF cell with the given id, using SameID semantics.
func (d *MatchingDetails) FindPdfCell(id string) (PdfCell, bool) {
	for _, p := range d.PdfCells {
		if SameID(p.ID, id) {
			return p, true
		}
	}
	return PdfCell{}, false
}

// FindTableCell returns the table cell with the given id.
func (d *MatchingDetails) FindTableCell(id int) (*TableCell, bool) {
	for _, c := range d.TableCells {
		if c.CellID == id {
			return c, true
		}
	}
	return nil, false
}

// MaxCellID returns the largest cell id present, or -1 when there are no
// cells. Orphan insertion appends ids above this value.
func (d *MatchingDetails) MaxCellID() int {
	max := -1
	for _, c := range d.TableCells {
		if c.CellID > max {
			max = c.CellID
		}
	}
	return max
}
