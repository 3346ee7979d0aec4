// Package model provides the shared data types for table-structure
// recognition: bounding boxes, predicted table cells, extracted PDF text
// cells, and the matching snapshot exchanged between pipeline stages.
//
// All geometry uses a top-left origin: x grows right, y grows down, so a
// valid box satisfies Right >= Left and Bottom >= Top. Boxes are validated
// at construction; the rest of the pipeline assumes they are well formed.
//
// # Cells
//
// Two cell types flow through the pipeline:
//
//   - [TableCell] - a cell predicted by the structure model. Created by the
//     structural parser, repositioned by the matching post-processor.
//   - [PdfCell] - a text box extracted from the document. Immutable once
//     created; cells with empty text are dropped before matching.
//
// # Matching
//
// [MatchingDetails] is the aggregate snapshot produced by the cell matcher
// and consumed by the post-processor and assembler. It is treated as
// immutable by convention; stages that need to mutate it call
// [MatchingDetails.Clone] first.
package model
