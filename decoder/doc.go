// Package decoder drives a table-structure model's step function in a
// greedy autoregressive loop and turns the captured hidden states into an
// ordered list of cell bounding boxes.
//
// The model itself is opaque: the caller supplies a [Predictor] whose Step
// method maps a token history to next-token logits plus a hidden state, and
// whose Finalize method maps the captured hidden states to class logits and
// normalized box coordinates. The decoder owns everything else: argmax token
// selection, the two structural correction rules, the step cap, and the
// bookkeeping that decides which steps anchor a box and which belong to a
// horizontal merge chain.
//
// Decoding is fully deterministic given identical predictor outputs.
package decoder
