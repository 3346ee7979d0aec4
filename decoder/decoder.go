package decoder

import "math"

// DefaultMaxSteps is the decode loop's step cap. Reaching it terminates the
// loop with whatever was captured; it is not an error.
const DefaultMaxSteps = 1024

// BoxCoords holds a normalized cell box as (centerX, centerY, width, height)
// relative to the table region.
type BoxCoords [4]float64

// StepResult is one step of the model: logits over the vocabulary for the
// next token, plus the hidden state produced at this step.
type StepResult struct {
	Logits []float64
	Hidden []float64
}

// Predictor is the opaque neural model driven by the decoder. Step maps a
// token-id history to the next-token logits and hidden state; Finalize maps
// the hidden states the decoder chose to capture to per-box class logits and
// normalized coordinates, index-aligned with its input.
type Predictor interface {
	Step(history []int) StepResult
	Finalize(hidden [][]float64) (classes [][]float64, coords []BoxCoords)
}

// Result is the outcome of a decode: the corrected token sequence (including
// <start> and, when reached, <end>), the finalized boxes before and after
// horizontal-span merging, and class logits aligned to the merged boxes.
type Result struct {
	Tokens     []string
	RawBoxes   []BoxCoords
	Boxes      []BoxCoords
	Classes    [][]float64
	CapReached bool
}

// decodeState is the loop's explicit state. Transitions replace the loose
// skip/first-lcel/prev-ucel booleans so every rule reads off the current
// state and the incoming token.
type decodeState int

const (
	stateDefault decodeState = iota
	stateAfterNl
	stateAfterUcel
	stateInChain
)

// chain tracks one horizontal merge run. target is the capture index the run
// merges into (the box captured just before the run started in the same row,
// or the first lcel's own box when the run opens a row); feeders are the
// capture indexes contributed by the run's lcel steps.
type chain struct {
	target  int
	feeders []int
}

// Decoder runs the greedy autoregressive decode loop.
type Decoder struct {
	// MaxSteps caps the number of decode steps. Defaults to DefaultMaxSteps.
	MaxSteps int

	vocab *Vocabulary
}

// New creates a decoder over the given vocabulary.
func New(vocab *Vocabulary) *Decoder {
	return &Decoder{MaxSteps: DefaultMaxSteps, vocab: vocab}
}

// Vocabulary returns the vocabulary the decoder was built with.
func (d *Decoder) Vocabulary() *Vocabulary {
	return d.vocab
}

// Decode runs the greedy loop: start from <start>, take the argmax token each
// step, apply the two structural corrections, and stop on <end> or the step
// cap. Hidden states are captured for box-anchoring tokens only; horizontal
// merge runs collapse their boxes into the run's target after Finalize.
func (d *Decoder) Decode(p Predictor) *Result {
	maxSteps := d.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	startID, _ := d.vocab.ID(TokenStart)
	history := []int{startID}
	tokens := []string{TokenStart}

	var captured [][]float64
	var chains []chain
	var open *chain

	closeChain := func() {
		if open != nil {
			chains = append(chains, *open)
			open = nil
		}
	}

	state := stateDefault
	result := &Result{CapReached: true}
	emitted := 0
	rowHasCapture := false

	for step := 0; step < maxSteps; step++ {
		res := p.Step(history)
		id := argmax(res.Logits)
		tok := d.vocab.Name(id)

		// R1: a table cannot open with a vertical continuation.
		if emitted == 0 && tok == TokenSpanned {
			tok = TokenLinked
			id, _ = d.vocab.ID(tok)
		}
		// R2: an lcel straight after ucel is an ambiguous horizontal link.
		if state == stateAfterUcel && tok == TokenLinked {
			tok = TokenCell
			id, _ = d.vocab.ID(tok)
		}

		if tok == TokenEnd {
			tokens = append(tokens, TokenEnd)
			result.CapReached = false
			break
		}

		switch tok {
		case TokenNewline:
			closeChain()
			state = stateAfterNl
			rowHasCapture = false
		case TokenSpanAnchor:
			closeChain()
			state = stateAfterUcel
		case TokenSpanned:
			closeChain()
			state = stateDefault
		case TokenLinked:
			captured = append(captured, res.Hidden)
			idx := len(captured) - 1
			if state == stateInChain {
				open.feeders = append(open.feeders, idx)
			} else {
				// First lcel of a run. The run merges into the box captured
				// just before it in the same row; when the run opens a row
				// the first lcel is its own anchor, so the run's first box
				// becomes the target. Merging across the row boundary would
				// fold the run into the previous row's last cell.
				target := idx - 1
				if !rowHasCapture {
					target = idx
				}
				open = &chain{target: target}
				if target != idx {
					open.feeders = append(open.feeders, idx)
				}
			}
			state = stateInChain
			rowHasCapture = true
		case TokenCell, TokenEmpty:
			closeChain()
			captured = append(captured, res.Hidden)
			state = stateDefault
			rowHasCapture = true
		default:
			// ched/rhed/srow modify the previous cell; unknown tokens are the
			// parser's problem. Neither anchors a box.
			closeChain()
			state = stateDefault
		}

		tokens = append(tokens, tok)
		history = append(history, id)
		emitted++
	}
	closeChain()

	result.Tokens = tokens

	classes, coords := p.Finalize(captured)
	result.RawBoxes = append([]BoxCoords(nil), coords...)
	result.Boxes, result.Classes = applyMerges(coords, classes, chains)
	return result
}

// applyMerges collapses each chain's feeder boxes into its target and drops
// the feeders from the final arrays.
func applyMerges(coords []BoxCoords, classes [][]float64, chains []chain) ([]BoxCoords, [][]float64) {
	merged := append([]BoxCoords(nil), coords...)
	drop := make(map[int]bool)

	for _, ch := range chains {
		if ch.target >= len(merged) {
			continue
		}
		for _, f := range ch.feeders {
			if f >= len(merged) || f == ch.target {
				continue
			}
			merged[ch.target] = mergeBoxes(merged[ch.target], merged[f])
			drop[f] = true
		}
	}

	var outBoxes []BoxCoords
	var outClasses [][]float64
	for i, box := range merged {
		if drop[i] {
			continue
		}
		outBoxes = append(outBoxes, box)
		if i < len(classes) {
			outClasses = append(outClasses, classes[i])
		} else {
			outClasses = append(outClasses, nil)
		}
	}
	return outBoxes, outClasses
}

// mergeBoxes combines two boxes into the minimal enclosing box: leftmost left
// edge, lowest top, extended to the later box's right and bottom.
func mergeBoxes(first, later BoxCoords) BoxCoords {
	fl, ft := first[0]-first[2]/2, first[1]-first[3]/2
	ll, lt := later[0]-later[2]/2, later[1]-later[3]/2
	lr, lb := later[0]+later[2]/2, later[1]+later[3]/2

	left := math.Min(fl, ll)
	top := math.Min(ft, lt)
	right := lr
	bottom := lb

	return BoxCoords{
		(left + right) / 2,
		(top + bottom) / 2,
		right - left,
		bottom - top,
	}
}

// argmax returns the index of the largest logit; the first maximum wins so
// decoding stays deterministic.
func argmax(logits []float64) int {
	best := 0
	for i := 1; i < len(logits); i++ {
		if logits[i] > logits[best] {
			best = i
		}
	}
	return best
}
