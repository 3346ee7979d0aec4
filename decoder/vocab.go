package decoder

import "fmt"

// Token names the decoder and parser rely on. The vocabulary is OTSL: a
// compact token set describing table layout cell by cell in reading order,
// where lcel/xcel denote spans instead of explicit integers.
const (
	TokenStart = "<start>"
	TokenEnd   = "<end>"
	TokenPad   = "<pad>"

	TokenCell         = "fcel" // full cell
	TokenEmpty        = "ecel" // empty cell
	TokenLinked       = "lcel" // horizontal span continuation
	TokenSpanAnchor   = "ucel" // vertical span anchor
	TokenSpanned      = "xcel" // vertical span continuation
	TokenColumnHeader = "ched"
	TokenRowHeader    = "rhed"
	TokenSectionRow   = "srow"
	TokenNewline      = "nl"
)

// requiredTokens must all be present in a vocabulary. A missing entry is a
// construction-time error, never a mid-decode one.
var requiredTokens = []string{
	TokenStart, TokenEnd,
	TokenCell, TokenEmpty, TokenLinked, TokenSpanned, TokenSpanAnchor,
	TokenColumnHeader, TokenRowHeader, TokenSectionRow, TokenNewline,
}

// Vocabulary maps token names to the logit indexes the model emits.
type Vocabulary struct {
	idOf   map[string]int
	nameOf map[int]string
}

// NewVocabulary validates and wraps a name-to-id mapping. Every required
// structural token must be present.
func NewVocabulary(tokens map[string]int) (*Vocabulary, error) {
	for _, name := range requiredTokens {
		if _, ok := tokens[name]; !ok {
			return nil, fmt.Errorf("vocabulary is missing required token %q", name)
		}
	}

	v := &Vocabulary{
		idOf:   make(map[string]int, len(tokens)),
		nameOf: make(map[int]string, len(tokens)),
	}
	for name, id := range tokens {
		v.idOf[name] = id
		v.nameOf[id] = name
	}
	return v, nil
}

// ID returns the logit index for a token name.
func (v *Vocabulary) ID(name string) (int, bool) {
	id, ok := v.idOf[name]
	return id, ok
}

// Name returns the token name for a logit index, or "" if unknown.
func (v *Vocabulary) Name(id int) string {
	return v.nameOf[id]
}

// Size returns the number of tokens in the vocabulary.
func (v *Vocabulary) Size() int {
	return len(v.idOf)
}
