package gridform

import (
	"go.uber.org/zap"

	"github.com/tsawler/gridform/decoder"
	"github.com/tsawler/gridform/matcher"
	"github.com/tsawler/gridform/postprocess"
)

// Options holds the pipeline configuration.
type Options struct {
	// sortIndexes enables dense renumbering of row/column offsets.
	sortIndexes bool

	// iouThreshold is recorded in the matching snapshot for consumers.
	iouThreshold float64

	// maxSteps caps the decode loop.
	maxSteps int

	// fixOverlaps enables the optional overlap-correction pass.
	fixOverlaps bool
	corrector   postprocess.OverlapCorrector

	// logger receives stage-level debug logging. Never nil.
	logger *zap.Logger
}

// defaultOptions returns the default pipeline options.
func defaultOptions() Options {
	return Options{
		sortIndexes:  true,
		iouThreshold: matcher.DefaultIoUThreshold,
		maxSteps:     decoder.DefaultMaxSteps,
		fixOverlaps:  false,
		logger:       zap.NewNop(),
	}
}

// clone creates a copy of the options.
func (o Options) clone() Options {
	return o
}
