// Package gridform turns the raw output of a table-structure-recognition
// model into a validated, text-aligned table description merged with
// independently extracted document text boxes.
//
// The pipeline has five stages, run in order with no shared mutable state:
//
//  1. decoder - greedy autoregressive decoding of the model's token stream
//  2. parser - structural tokens to a row/column grid with spans
//  3. matcher - geometric scoring of predicted cells against text boxes
//  4. postprocess - alignment repair, deduplication, final assignment
//  5. assemble - the flat, JSON-serializable record set
//
// Basic usage:
//
//	pipe := gridform.New(pred, vocab)
//	result, warnings, err := pipe.Process(gridform.TableInput{
//	    TableBBox:  tableRegion,
//	    PageWidth:  612,
//	    PageHeight: 792,
//	    PdfCells:   textCells,
//	})
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", gridform.FormatWarnings(warnings))
//	}
//
// With options:
//
//	result, _, err := gridform.New(pred, vocab).
//	    SortIndexes(false).
//	    MaxSteps(512).
//	    Process(input)
//
// Each table is processed independently over immutable inputs, so callers
// may run tables in parallel; ProcessAll does this with bounded concurrency.
package gridform

import (
	"github.com/tsawler/gridform/decoder"
)

// New creates a Pipeline for the given predictor and vocabulary with default
// options. Configuration methods return a new Pipeline instance, so a
// configured pipeline is safe to share across goroutines.
func New(pred decoder.Predictor, vocab *decoder.Vocabulary) *Pipeline {
	return &Pipeline{
		pred:    pred,
		vocab:   vocab,
		options: defaultOptions(),
	}
}

// NewFromTokens builds the vocabulary from a name-to-id map and creates a
// Pipeline. It fails when a required structural token is missing.
func NewFromTokens(pred decoder.Predictor, tokens map[string]int) (*Pipeline, error) {
	vocab, err := decoder.NewVocabulary(tokens)
	if err != nil {
		return nil, err
	}
	return New(pred, vocab), nil
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
