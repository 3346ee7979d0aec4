// Package matcher projects decoded cell boxes into page space and scores
// them against externally extracted PDF text cells.
//
// The score is intersection-over-PDF-area (IoP): the fraction of a text
// box's area covered by a candidate table cell. Matches are grouped per PDF
// cell id and sorted by descending score. Candidate pairs are found through
// an R-tree over the PDF boxes, so scoring stays near-linear on dense pages.
package matcher

import (
	"sort"

	"github.com/tidwall/rtree"

	"github.com/tsawler/gridform/model"
)

// DefaultIoUThreshold is recorded on produced MatchingDetails. The matcher
// never filters on it; downstream consumers decide what is strong enough.
const DefaultIoUThreshold = 0.05

// Matcher scores table cells against PDF text cells.
type Matcher struct {
	// IoUThreshold is carried into the MatchingDetails snapshot for callers.
	IoUThreshold float64
}

// New creates a matcher with the default threshold.
func New() *Matcher {
	return &Matcher{IoUThreshold: DefaultIoUThreshold}
}

// ProjectBox maps a normalized (centerX, centerY, width, height) box into
// page coordinates within the table region, clamped to the table bounds.
func ProjectBox(table model.BBox, coords [4]float64) model.BBox {
	cx, cy, w, h := coords[0], coords[1], coords[2], coords[3]
	box := model.BBox{
		Left:   table.Left + (cx-w/2)*table.Width(),
		Top:    table.Top + (cy-h/2)*table.Height(),
		Right:  table.Left + (cx+w/2)*table.Width(),
		Bottom: table.Top + (cy+h/2)*table.Height(),
	}
	return box.Clamp(table)
}

// Match scores every geometric table cell against every overlapping PDF cell
// and returns the full matching snapshot. The cells' BBox fields must
// already be in page coordinates.
func (m *Matcher) Match(table model.BBox, cells []*model.TableCell, pdfCells []model.PdfCell, pageWidth, pageHeight float64) *model.MatchingDetails {
	return &model.MatchingDetails{
		IoUThreshold: m.IoUThreshold,
		TableBBox:    table,
		TableCells:   cells,
		PdfCells:     pdfCells,
		Matches:      m.Score(cells, pdfCells),
		PageWidth:    pageWidth,
		PageHeight:   pageHeight,
	}
}

// Score computes the per-PDF-id match lists against the cells' current
// geometry. Cells absorbed into spans and cells with empty boxes are
// skipped, as are PDF cells with no text or degenerate area.
func (m *Matcher) Score(cells []*model.TableCell, pdfCells []model.PdfCell) map[string][]model.Match {
	matches := make(map[string][]model.Match)

	var tr rtree.RTreeG[int]
	for i, p := range pdfCells {
		if p.IsEmpty() || p.BBox.Area() <= 0 {
			continue
		}
		tr.Insert(
			[2]float64{p.BBox.Left, p.BBox.Top},
			[2]float64{p.BBox.Right, p.BBox.Bottom},
			i,
		)
	}

	for _, cell := range cells {
		if cell.Linked || cell.Spanned || cell.BBox.IsEmpty() {
			continue
		}

		var candidates []int
		tr.Search(
			[2]float64{cell.BBox.Left, cell.BBox.Top},
			[2]float64{cell.BBox.Right, cell.BBox.Bottom},
			func(min, max [2]float64, i int) bool {
				candidates = append(candidates, i)
				return true
			},
		)
		// The tree reports candidates in traversal order; sort so scoring is
		// deterministic.
		sort.Ints(candidates)

		for _, i := range candidates {
			pdf := pdfCells[i]
			inter := cell.BBox.Intersection(pdf.BBox).Area()
			if inter <= 0 {
				continue
			}
			union := cell.BBox.Area() + pdf.BBox.Area() - inter
			match := model.Match{
				TableCellID:             cell.CellID,
				IntersectionOverPdfArea: inter / pdf.BBox.Area(),
			}
			if union > 0 {
				match.IntersectionOverUnion = inter / union
			}
			matches[pdf.ID] = append(matches[pdf.ID], match)
		}
	}

	// Per-id lists sorted by descending score; stable so equal scores keep
	// encounter order.
	for id := range matches {
		list := matches[id]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Score() > list[j].Score()
		})
		matches[id] = list
	}
	return matches
}
