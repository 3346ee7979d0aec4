// Package postprocess reconciles predicted table cells with extracted PDF
// text cells: per-column alignment inference, bad-cell geometry repair,
// duplicate-column removal, one-to-one match assignment, text alignment,
// and orphan insertion.
//
// The pass order is fixed and load-bearing; see Processor.Process. The
// processor never mutates its input: it clones the snapshot and returns the
// reworked copy.
package postprocess

import (
	"sort"

	"github.com/tsawler/gridform/matcher"
	"github.com/tsawler/gridform/model"
)

// columnOverlapThreshold is the matched-id overlap fraction above which two
// adjacent columns are considered duplicates. Empirically fixed; treat as a
// contract constant.
const columnOverlapThreshold = 0.6

// alignment is the horizontal alignment inferred for a column.
type alignment int

const (
	alignLeft alignment = iota
	alignCenter
	alignRight
)

// OverlapCorrector is the pluggable policy run by the optional final pass.
type OverlapCorrector interface {
	Correct(cells []*model.TableCell)
}

// Processor runs the matching post-processing passes.
type Processor struct {
	// FixOverlaps enables the optional overlap-correction pass after orphan
	// insertion. The pass is not required for correctness.
	FixOverlaps bool

	// Corrector is the policy used when FixOverlaps is set.
	Corrector OverlapCorrector

	matcher *matcher.Matcher
}

// New creates a processor with the overlap pass disabled and the default
// shrink corrector installed for callers that enable it.
func New() *Processor {
	return &Processor{
		Corrector: ShrinkOverlapCorrector{},
		matcher:   matcher.New(),
	}
}

// Process reworks a matching snapshot and returns the result plus the
// running maximum cell id (orphan insertion appends above it). The input is
// cloned, never mutated. Steps, in order:
//
//  1. Drop PDF cells with empty text.
//  2. Bootstrap matches if none were supplied.
//  3. Determine the column count.
//  4. Per column: split good/bad cells, infer alignment, repair bad geometry.
//  5. Re-sort cells by cell id.
//  6. Recompute matches against the adjusted geometry.
//  7. Drop duplicated adjacent columns.
//  8. Keep only the best match per PDF cell.
//  9. Align matched cells to their PDF cell's box.
//  10. Insert orphan PDF cells as new table cells.
//  11. Optional overlap correction.
func (p *Processor) Process(details *model.MatchingDetails) (*model.MatchingDetails, int) {
	d := details.Clone()
	if d.Matches == nil {
		d.Matches = make(map[string][]model.Match)
	}

	// Step 1: empty text boxes never participate in matching.
	kept := make([]model.PdfCell, 0, len(d.PdfCells))
	for _, pdf := range d.PdfCells {
		if !pdf.IsEmpty() {
			kept = append(kept, pdf)
		}
	}
	d.PdfCells = kept

	// Step 2: bootstrap when the caller supplied geometry but no matches.
	if len(d.Matches) == 0 && len(d.PdfCells) > 0 {
		d.Matches = p.matcher.Score(d.TableCells, d.PdfCells)
	}

	// Step 3.
	columns := 0
	for _, c := range d.TableCells {
		if c.ColumnID+1 > columns {
			columns = c.ColumnID + 1
		}
	}
	if columns < 1 {
		columns = 1
	}

	// Step 4.
	matched := matchedCellIDs(d.Matches)
	for col := 0; col < columns; col++ {
		p.repairColumn(d, col, matched)
	}

	// Step 5.
	sort.SliceStable(d.TableCells, func(i, j int) bool {
		return d.TableCells[i].CellID < d.TableCells[j].CellID
	})

	// Step 6.
	d.Matches = p.matcher.Score(d.TableCells, d.PdfCells)

	// Step 7.
	p.dedupColumns(d, columns)

	// Step 8.
	for id, list := range d.Matches {
		if len(list) > 1 {
			d.Matches[id] = list[:1]
		}
	}

	// Step 9.
	p.alignToPdf(d)

	// Step 10.
	p.insertOrphans(d)

	// Step 11.
	if p.FixOverlaps && p.Corrector != nil {
		p.Corrector.Correct(d.TableCells)
	}

	return d, d.MaxCellID()
}

// matchedCellIDs returns the set of table cell ids referenced by any match.
func matchedCellIDs(matches map[string][]model.Match) map[int]bool {
	out := make(map[int]bool)
	for _, list := range matches {
		for _, m := range list {
			out[m.TableCellID] = true
		}
	}
	return out
}

// columnStats holds the medians computed over a column's good cells.
type columnStats struct {
	align    alignment
	position float64 // median aligned position (left, center or right edge)
	width    float64
	height   float64
}

// repairColumn infers the column's alignment from its trustworthy cells and
// rewrites every bad cell's geometry from the column medians.
func (p *Processor) repairColumn(d *model.MatchingDetails, col int, matched map[int]bool) {
	var good, bad []*model.TableCell
	for _, c := range d.TableCells {
		if c.ColumnID != col || c.Linked || c.Spanned {
			continue
		}
		if c.CellClass > 1 && matched[c.CellID] {
			good = append(good, c)
		} else {
			bad = append(bad, c)
		}
	}
	if len(bad) == 0 {
		return
	}

	stats := computeColumnStats(good)
	for _, c := range bad {
		cy := c.BBox.CenterY()
		var left, right float64
		switch stats.align {
		case alignLeft:
			left = stats.position
			right = stats.position + stats.width
		case alignCenter:
			left = stats.position - stats.width/2
			right = stats.position + stats.width/2
		case alignRight:
			left = stats.position - stats.width
			right = stats.position
		}
		c.BBox = model.BBox{
			Left:   left,
			Top:    cy - stats.height/2,
			Right:  right,
			Bottom: cy + stats.height/2,
		}
	}
}

// computeColumnStats infers alignment and medians over the good cells. With
// no good cells everything defaults to zero.
func computeColumnStats(good []*model.TableCell) columnStats {
	var lefts, centers, rights, widths, heights []float64
	for _, c := range good {
		lefts = append(lefts, c.BBox.Left)
		centers = append(centers, c.BBox.CenterX())
		rights = append(rights, c.BBox.Right)
		widths = append(widths, c.BBox.Width())
		heights = append(heights, c.BBox.Height())
	}

	// Smallest spread wins; the order left > center > right only yields on a
	// strictly smaller range.
	align := alignLeft
	best := spread(lefts)
	if s := spread(centers); s < best {
		align, best = alignCenter, s
	}
	if s := spread(rights); s < best {
		align = alignRight
	}

	stats := columnStats{
		align:  align,
		width:  median(widths),
		height: median(heights),
	}
	switch align {
	case alignLeft:
		stats.position = median(lefts)
	case alignCenter:
		stats.position = median(centers)
	case alignRight:
		stats.position = median(rights)
	}
	return stats
}

// spread returns max-min over the values, or 0 for an empty slice.
func spread(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return max - min
}

// median returns the middle value; for an even count it averages the two
// middle values. Returns 0 for an empty slice.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// dedupColumns drops a column of each adjacent pair whose matched PDF-id
// sets overlap by more than columnOverlapThreshold. The column with the
// lower total match score loses; ties drop the later column.
func (p *Processor) dedupColumns(d *model.MatchingDetails, columns int) {
	type colStat struct {
		ids   map[string]bool
		total float64
	}

	colOf := make(map[int]int, len(d.TableCells))
	for _, c := range d.TableCells {
		colOf[c.CellID] = c.ColumnID
	}

	stats := make([]colStat, columns)
	for i := range stats {
		stats[i].ids = make(map[string]bool)
	}
	for id, list := range d.Matches {
		for _, m := range list {
			col, ok := colOf[m.TableCellID]
			if !ok || col < 0 || col >= columns {
				continue
			}
			stats[col].ids[id] = true
			stats[col].total += m.Score()
		}
	}

	dropped := make(map[int]bool)
	for c := 0; c+1 < columns; c++ {
		if dropped[c] || dropped[c+1] {
			continue
		}
		sa, sb := stats[c], stats[c+1]
		if len(sa.ids) == 0 {
			continue
		}
		inter := 0
		for id := range sa.ids {
			if sb.ids[id] {
				inter++
			}
		}
		if float64(inter)/float64(len(sa.ids)) > columnOverlapThreshold {
			if sa.total < sb.total {
				dropped[c] = true
			} else {
				dropped[c+1] = true
			}
		}
	}
	if len(dropped) == 0 {
		return
	}

	removed := make(map[int]bool)
	cells := d.TableCells[:0]
	for _, c := range d.TableCells {
		if dropped[c.ColumnID] {
			removed[c.CellID] = true
			continue
		}
		cells = append(cells, c)
	}
	d.TableCells = cells

	for id, list := range d.Matches {
		filtered := list[:0]
		for _, m := range list {
			if !removed[m.TableCellID] {
				filtered = append(filtered, m)
			}
		}
		if len(filtered) == 0 {
			delete(d.Matches, id)
		} else {
			d.Matches[id] = filtered
		}
	}
}

// alignToPdf snaps every matched table cell onto its assigned PDF cell's
// box. Unmatched cells keep their repaired geometry.
func (p *Processor) alignToPdf(d *model.MatchingDetails) {
	for _, pdf := range d.PdfCells {
		list := d.Matches[pdf.ID]
		if len(list) == 0 {
			continue
		}
		if cell, ok := d.FindTableCell(list[0].TableCellID); ok {
			cell.BBox = pdf.BBox
			cell.HasGeometry = true
		}
	}
}

// insertOrphans appends a new table cell for every PDF cell that ended up
// with no match, with a synthetic full-confidence match.
func (p *Processor) insertOrphans(d *model.MatchingDetails) {
	maxID := d.MaxCellID()
	for _, pdf := range d.PdfCells {
		if len(d.Matches[pdf.ID]) > 0 {
			continue
		}
		maxID++
		d.TableCells = append(d.TableCells, &model.TableCell{
			CellID:      maxID,
			RowID:       0,
			ColumnID:    0,
			BBox:        pdf.BBox,
			CellClass:   2,
			Label:       model.LabelBody,
			ColSpan:     1,
			RowSpan:     1,
			HasGeometry: true,
		})
		d.Matches[pdf.ID] = []model.Match{{
			TableCellID:             maxID,
			IntersectionOverPdfArea: 1.0,
			PostScore:               1.0,
		}}
	}
}
