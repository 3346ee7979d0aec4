package gridform

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tsawler/gridform/assemble"
	"github.com/tsawler/gridform/decoder"
	"github.com/tsawler/gridform/matcher"
	"github.com/tsawler/gridform/model"
	"github.com/tsawler/gridform/parser"
	"github.com/tsawler/gridform/postprocess"
)

// Pipeline runs the decode-parse-match-postprocess-assemble stages for one
// table at a time. Configuration methods return a new instance; a configured
// pipeline is immutable and safe for concurrent use.
type Pipeline struct {
	pred    decoder.Predictor
	vocab   *decoder.Vocabulary
	options Options

	// Accumulated configuration error (fail-fast at Process).
	err error
}

// TableInput is everything the pipeline needs for one table: the table
// region in page coordinates, the page dimensions, and the text cells an
// external preparer extracted for that region.
type TableInput struct {
	TableBBox  model.BBox
	PageWidth  float64
	PageHeight float64
	PdfCells   []model.PdfCell
}

// Result is the outcome for one table.
type Result struct {
	// Table is the assembled record set.
	Table *assemble.Table

	// Details is the post-processed matching snapshot behind the records.
	Details *model.MatchingDetails

	// Tokens is the corrected structural sequence the decoder produced.
	Tokens []string

	// MaxCellID is the running maximum cell id after orphan insertion.
	MaxCellID int

	// Warnings collects the non-fatal issues hit while processing. Process
	// also returns them directly.
	Warnings []Warning
}

// clone creates a copy of the pipeline with copied options.
func (p *Pipeline) clone() *Pipeline {
	return &Pipeline{
		pred:    p.pred,
		vocab:   p.vocab,
		options: p.options.clone(),
		err:     p.err,
	}
}

// SortIndexes controls dense renumbering of row/column offsets in the
// assembled output. Enabled by default; when disabled, table dimensions are
// derived from the decoded token sequence instead.
func (p *Pipeline) SortIndexes(enabled bool) *Pipeline {
	out := p.clone()
	out.options.sortIndexes = enabled
	return out
}

// Threshold sets the IoU/IoP threshold recorded in the matching snapshot.
// The pipeline itself never filters on it.
func (p *Pipeline) Threshold(threshold float64) *Pipeline {
	out := p.clone()
	if threshold < 0 {
		out.err = fmt.Errorf("gridform: threshold must be non-negative, got %v", threshold)
		return out
	}
	out.options.iouThreshold = threshold
	return out
}

// MaxSteps caps the decode loop. Reaching the cap is not an error; the
// pipeline continues with whatever was decoded.
func (p *Pipeline) MaxSteps(steps int) *Pipeline {
	out := p.clone()
	if steps <= 0 {
		out.err = fmt.Errorf("gridform: max steps must be positive, got %d", steps)
		return out
	}
	out.options.maxSteps = steps
	return out
}

// FixOverlaps enables the optional overlap-correction pass after orphan
// insertion, using the default shrink policy unless Corrector was set.
func (p *Pipeline) FixOverlaps(enabled bool) *Pipeline {
	out := p.clone()
	out.options.fixOverlaps = enabled
	return out
}

// Corrector installs a custom overlap-correction policy. Only consulted when
// FixOverlaps is enabled.
func (p *Pipeline) Corrector(c postprocess.OverlapCorrector) *Pipeline {
	out := p.clone()
	out.options.corrector = c
	return out
}

// Logger attaches a zap logger for stage-level debug logging. The default is
// a no-op logger.
func (p *Pipeline) Logger(logger *zap.Logger) *Pipeline {
	out := p.clone()
	if logger == nil {
		logger = zap.NewNop()
	}
	out.options.logger = logger
	return out
}

// Process runs all stages for one table. It returns the assembled result,
// any non-fatal warnings, and an error only for the fatal cases: an invalid
// configuration, or a token sequence without row delimiters when index
// renumbering is disabled.
func (p *Pipeline) Process(input TableInput) (*Result, []Warning, error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	log := p.options.logger

	var warnings []Warning
	warn := func(stage, format string, args ...any) {
		warnings = append(warnings, Warning{Stage: stage, Message: fmt.Sprintf(format, args...)})
	}

	// Stage 1: decode the token stream.
	dec := decoder.New(p.vocab)
	dec.MaxSteps = p.options.maxSteps
	decoded := dec.Decode(p.pred)
	if decoded.CapReached {
		warn("decoder", "step cap %d reached before <end>; result may be truncated", p.options.maxSteps)
	}
	log.Debug("decoded token stream",
		zap.Int("tokens", len(decoded.Tokens)),
		zap.Int("boxes", len(decoded.Boxes)),
		zap.Bool("capReached", decoded.CapReached))

	// Stage 2: parse the structural sequence into a grid.
	parsed := parser.Parse(decoded.Tokens)
	log.Debug("parsed structural sequence",
		zap.Int("cells", len(parsed.Cells)),
		zap.Int("rows", parsed.Rows),
		zap.Int("columns", parsed.Columns))

	// Project the decoded boxes into page space and attach them to the cells
	// that anchor them, in decode order.
	boxes := make([]model.BBox, len(decoded.Boxes))
	for i, c := range decoded.Boxes {
		boxes[i] = matcher.ProjectBox(input.TableBBox, [4]float64(c))
	}
	attached := attachGeometry(parsed, boxes, decoded.Classes)
	if attached != len(boxes) {
		warn("parser", "prediction boxes (%d) and box-anchoring cells (%d) disagree", len(boxes), attached)
	}

	// Stage 3: score cells against the extracted text boxes.
	m := matcher.New()
	m.IoUThreshold = p.options.iouThreshold
	details := m.Match(input.TableBBox, parsed.Cells, input.PdfCells, input.PageWidth, input.PageHeight)
	details.PredictionBoxes = boxes
	log.Debug("matched text cells",
		zap.Int("pdfCells", len(input.PdfCells)),
		zap.Int("matchedIds", len(details.Matches)))

	// Stage 4: post-process the matching snapshot. With no text cells there
	// is nothing to reconcile against; the decoded geometry goes straight to
	// the geometric fallback.
	processed := details
	maxCellID := details.MaxCellID()
	if len(input.PdfCells) > 0 {
		pp := postprocess.New()
		pp.FixOverlaps = p.options.fixOverlaps
		if p.options.corrector != nil {
			pp.Corrector = p.options.corrector
		}
		processed, maxCellID = pp.Process(details)
	}
	log.Debug("post-processed matches",
		zap.Int("cells", len(processed.TableCells)),
		zap.Int("maxCellID", maxCellID))

	// Stage 5: assemble the record set.
	asm := assemble.New()
	asm.SortRowColIndexes = p.options.sortIndexes
	table, err := asm.Assemble(processed, decoded.Tokens)
	if err != nil {
		return nil, warnings, fmt.Errorf("assembling table: %w", err)
	}
	log.Debug("assembled table",
		zap.Int("records", len(table.Records)),
		zap.Int("numRows", table.NumRows),
		zap.Int("numCols", table.NumCols))

	return &Result{
		Table:     table,
		Details:   processed,
		Tokens:    decoded.Tokens,
		MaxCellID: maxCellID,
		Warnings:  warnings,
	}, warnings, nil
}

// attachGeometry zips the projected boxes onto the cells that anchor them, in
// creation order: fcel and ecel cells, plus lcel cells that open a merge run
// at the start of a row (those stay unlinked and keep the run's merged box).
// Linked, spanned and vertical-span cells never anchor a box. Returns how
// many boxes were consumed.
func attachGeometry(parsed *parser.Result, boxes []model.BBox, classes [][]float64) int {
	next := 0
	for i, cell := range parsed.Cells {
		kind := parsed.Kinds[i]
		if kind != decoder.TokenCell && kind != decoder.TokenEmpty && kind != decoder.TokenLinked {
			continue
		}
		if cell.Linked || cell.Spanned {
			continue
		}
		if next >= len(boxes) {
			break
		}
		cell.BBox = boxes[next]
		cell.HasGeometry = true
		if next < len(classes) {
			cell.CellClass = argmaxClass(classes[next])
		}
		next++
	}
	return next
}

// argmaxClass returns the index of the largest class logit; the first
// maximum wins.
func argmaxClass(logits []float64) int {
	best := 0
	for i := 1; i < len(logits); i++ {
		if logits[i] > logits[best] {
			best = i
		}
	}
	return best
}
