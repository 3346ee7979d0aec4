package gridform

import (
	"context"
	"testing"

	"github.com/tsawler/gridform/decoder"
	"github.com/tsawler/gridform/model"
)

func testVocab(t *testing.T) *decoder.Vocabulary {
	t.Helper()
	v, err := decoder.NewVocabulary(map[string]int{
		decoder.TokenStart: 0, decoder.TokenEnd: 1, decoder.TokenPad: 2,
		decoder.TokenCell: 3, decoder.TokenEmpty: 4, decoder.TokenLinked: 5,
		decoder.TokenSpanAnchor: 6, decoder.TokenSpanned: 7,
		decoder.TokenColumnHeader: 8, decoder.TokenRowHeader: 9,
		decoder.TokenSectionRow: 10, decoder.TokenNewline: 11,
	})
	if err != nil {
		t.Fatalf("NewVocabulary failed: %v", err)
	}
	return v
}

// scriptedPredictor replays a fixed token script and finalizes captured
// hidden states into the provided normalized boxes.
type scriptedPredictor struct {
	vocab  *decoder.Vocabulary
	script []string
	boxes  []decoder.BoxCoords
	step   int
}

func (s *scriptedPredictor) Step(history []int) decoder.StepResult {
	logits := make([]float64, s.vocab.Size())
	tok := decoder.TokenEnd
	if s.step < len(s.script) {
		tok = s.script[s.step]
	}
	id, _ := s.vocab.ID(tok)
	logits[id] = 1.0
	s.step++
	return decoder.StepResult{Logits: logits, Hidden: []float64{float64(s.step)}}
}

func (s *scriptedPredictor) Finalize(hidden [][]float64) ([][]float64, []decoder.BoxCoords) {
	classes := make([][]float64, len(hidden))
	coords := make([]decoder.BoxCoords, len(hidden))
	for i := range hidden {
		classes[i] = []float64{0, 0, 1} // class 2: trustworthy
		if i < len(s.boxes) {
			coords[i] = s.boxes[i]
		}
	}
	return classes, coords
}

// twoByTwo builds a predictor and input for a clean 2x2 table on a
// 100x100-point table region with one text cell per predicted cell.
func twoByTwo(t *testing.T) (*scriptedPredictor, TableInput) {
	t.Helper()
	pred := &scriptedPredictor{
		script: []string{"fcel", "fcel", "nl", "fcel", "fcel", "nl", decoder.TokenEnd},
		boxes: []decoder.BoxCoords{
			{0.25, 0.25, 0.5, 0.5},
			{0.75, 0.25, 0.5, 0.5},
			{0.25, 0.75, 0.5, 0.5},
			{0.75, 0.75, 0.5, 0.5},
		},
	}

	table, err := model.NewBBox(0, 0, 100, 100)
	if err != nil {
		t.Fatalf("NewBBox failed: %v", err)
	}
	box := func(l, top, r, b float64) model.BBox {
		bb, err := model.NewBBox(l, top, r, b)
		if err != nil {
			t.Fatalf("NewBBox failed: %v", err)
		}
		return bb
	}
	input := TableInput{
		TableBBox:  table,
		PageWidth:  612,
		PageHeight: 792,
		PdfCells: []model.PdfCell{
			model.NewPdfCell("1", "Name", box(5, 5, 45, 45)),
			model.NewPdfCell("2", "Age", box(55, 5, 95, 45)),
			model.NewPdfCell("3", "Alice", box(5, 55, 45, 95)),
			model.NewPdfCell("4", "30", box(55, 55, 95, 95)),
		},
	}
	return pred, input
}

func TestPipelineEndToEnd(t *testing.T) {
	pred, input := twoByTwo(t)
	pred.vocab = testVocab(t)

	result, warnings, err := New(pred, pred.vocab).Process(input)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", warnings)
	}

	table := result.Table
	if table.NumRows != 2 || table.NumCols != 2 {
		t.Errorf("Expected 2x2 table, got %dx%d", table.NumRows, table.NumCols)
	}
	if len(table.Records) != 4 {
		t.Fatalf("Expected 4 records, got %d", len(table.Records))
	}

	wantTokens := []string{"Name", "Age", "Alice", "30"}
	for i, rec := range table.Records {
		if rec.BBox.Token != wantTokens[i] {
			t.Errorf("Record %d: expected token %q, got %q", i, wantTokens[i], rec.BBox.Token)
		}
	}

	// Matched cells snap onto their text boxes.
	first := table.Records[0]
	if first.BBox.L != 5 || first.BBox.T != 5 || first.BBox.R != 45 || first.BBox.B != 45 {
		t.Errorf("Expected record aligned to text box, got %+v", first.BBox)
	}
}

func TestPipelineRowOpeningMergeRun(t *testing.T) {
	// A table whose first row is one colspan-2 merged cell: the run's anchor
	// keeps the merged geometry and the second row's cell keeps its own box.
	pred := &scriptedPredictor{
		vocab:  testVocab(t),
		script: []string{"lcel", "lcel", "nl", "fcel", "nl", decoder.TokenEnd},
		boxes: []decoder.BoxCoords{
			{0.25, 0.25, 0.5, 0.5},
			{0.75, 0.25, 0.5, 0.5},
			{0.5, 0.75, 1.0, 0.5},
		},
	}
	table, err := model.NewBBox(0, 0, 100, 100)
	if err != nil {
		t.Fatalf("NewBBox failed: %v", err)
	}
	input := TableInput{TableBBox: table, PageWidth: 612, PageHeight: 792}

	result, warnings, err := New(pred, pred.vocab).Process(input)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", warnings)
	}

	cells := result.Details.TableCells
	if len(cells) != 3 {
		t.Fatalf("Expected 3 cells, got %d", len(cells))
	}

	anchor := cells[0]
	if anchor.ColSpan != 2 || anchor.Linked {
		t.Errorf("Expected unlinked colspan-2 anchor, got colspan %d linked %v", anchor.ColSpan, anchor.Linked)
	}
	if !anchor.HasGeometry {
		t.Fatal("Expected the run's anchor to carry the merged geometry")
	}
	if anchor.BBox.Left != 0 || anchor.BBox.Top != 0 || anchor.BBox.Right != 100 || anchor.BBox.Bottom != 50 {
		t.Errorf("Expected merged box [0 0 100 50], got %v", anchor.BBox)
	}

	second := cells[2]
	if !second.HasGeometry {
		t.Fatal("Expected the second row's cell to carry geometry")
	}
	if second.BBox.Top != 50 || second.BBox.Bottom != 100 {
		t.Errorf("Expected second row's own box [0 50 100 100], got %v", second.BBox)
	}
}

func TestPipelineStepCapWarning(t *testing.T) {
	pred, input := twoByTwo(t)
	pred.vocab = testVocab(t)

	_, warnings, err := New(pred, pred.vocab).MaxSteps(3).Process(input)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(warnings) == 0 {
		t.Fatal("Expected a step-cap warning")
	}
	if warnings[0].Stage != "decoder" {
		t.Errorf("Expected decoder warning, got %+v", warnings[0])
	}
}

func TestPipelineInvalidConfiguration(t *testing.T) {
	pred, input := twoByTwo(t)
	pred.vocab = testVocab(t)

	if _, _, err := New(pred, pred.vocab).Threshold(-1).Process(input); err == nil {
		t.Error("Expected error for negative threshold")
	}
	if _, _, err := New(pred, pred.vocab).MaxSteps(0).Process(input); err == nil {
		t.Error("Expected error for non-positive step cap")
	}
}

func TestPipelineConfigurationIsImmutable(t *testing.T) {
	pred, _ := twoByTwo(t)
	pred.vocab = testVocab(t)

	base := New(pred, pred.vocab)
	derived := base.SortIndexes(false).MaxSteps(16)

	if base.options.sortIndexes != true || base.options.maxSteps != decoder.DefaultMaxSteps {
		t.Error("Configuring a derived pipeline mutated the base")
	}
	if derived.options.sortIndexes != false || derived.options.maxSteps != 16 {
		t.Error("Derived pipeline lost its configuration")
	}
}

func TestProcessAll(t *testing.T) {
	vocab := testVocab(t)

	jobs := make([]TableJob, 3)
	for i := range jobs {
		pred, input := twoByTwo(t)
		pred.vocab = vocab
		jobs[i] = TableJob{Predictor: pred, Input: input}
	}

	// Any job's predictor works for the template pipeline; each job brings
	// its own.
	template := New(jobs[0].Predictor, vocab)
	results, err := template.ProcessAll(context.Background(), jobs, 2)
	if err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res == nil || len(res.Table.Records) != 4 {
			t.Errorf("Result %d incomplete: %+v", i, res)
		}
	}
}

func TestPipelineEmptyPdfCells(t *testing.T) {
	pred, input := twoByTwo(t)
	pred.vocab = testVocab(t)
	input.PdfCells = nil

	result, _, err := New(pred, pred.vocab).Process(input)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	// Geometric fallback: one record per predicted cell.
	if len(result.Table.Records) != 4 {
		t.Errorf("Expected 4 fallback records, got %d", len(result.Table.Records))
	}
	if result.Table.Records[0].BBox.Token != "" {
		t.Errorf("Expected empty tokens in fallback mode, got %q", result.Table.Records[0].BBox.Token)
	}
}
