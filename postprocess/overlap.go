package postprocess

import (
	"sort"

	"github.com/tsawler/gridform/model"
)

// ShrinkOverlapCorrector resolves horizontal overlap between cells that
// share a row by moving the later cell's left edge to the earlier cell's
// right edge. A cell is never shrunk past zero width.
type ShrinkOverlapCorrector struct{}

// Correct applies the policy in place.
func (ShrinkOverlapCorrector) Correct(cells []*model.TableCell) {
	rows := make(map[int][]*model.TableCell)
	for _, c := range cells {
		if c.Linked || c.Spanned || c.BBox.IsEmpty() {
			continue
		}
		rows[c.RowID] = append(rows[c.RowID], c)
	}

	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool {
			return row[i].BBox.Left < row[j].BBox.Left
		})
		for i := 1; i < len(row); i++ {
			prev, cur := row[i-1], row[i]
			if cur.BBox.Left < prev.BBox.Right && prev.BBox.Right < cur.BBox.Right {
				cur.BBox.Left = prev.BBox.Right
			}
		}
	}
}
