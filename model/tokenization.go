package model

import (
	"strings"

	"github.com/google/uuid"
)

// Tokenization owns the tokens of one sentence and every annotation layer
// built over them. Layers are only ever added.
type Tokenization struct {
	ID               uuid.UUID         `json:"id"`
	Tokens           []Token           `json:"tokens"`
	Taggings         []TokenTagging    `json:"taggings,omitempty"`
	Parse            *Parse            `json:"parse,omitempty"`
	DependencyParses []DependencyParse `json:"dependency_parses,omitempty"`
}

// NewTokenization creates a tokenization with a fresh id.
func NewTokenization(tokens []Token) *Tokenization {
	if tokens == nil {
		tokens = []Token{}
	}
	return &Tokenization{
		ID:     uuid.New(),
		Tokens: tokens,
	}
}

// KnownIndices returns the set of token indices of the tokenization.
func (t *Tokenization) KnownIndices() map[int]struct{} {
	known := make(map[int]struct{}, len(t.Tokens))
	for _, token := range t.Tokens {
		known[token.Index] = struct{}{}
	}
	return known
}

// MissingIndex returns the first index not known to the tokenization.
func (t *Tokenization) MissingIndex(indices []int) (int, bool) {
	known := t.KnownIndices()
	for _, i := range indices {
		if _, ok := known[i]; !ok {
			return i, true
		}
	}
	return 0, false
}

// Text joins the token texts with single spaces, the processed form of the sentence.
func (t *Tokenization) Text() string {
	texts := make([]string, len(t.Tokens))
	for i, token := range t.Tokens {
		texts[i] = token.Text
	}
	return strings.Join(texts, " ")
}

// Tagging returns the first tagging of the given kind.
func (t *Tokenization) Tagging(kind TaggingKind) *TokenTagging {
	for i := range t.Taggings {
		if t.Taggings[i].Kind == kind {
			return &t.Taggings[i]
		}
	}
	return nil
}

// AddTaggings appends taggings.
func (t *Tokenization) AddTaggings(taggings ...TokenTagging) {
	t.Taggings = append(t.Taggings, taggings...)
}

// SetParse attaches the parse if none is attached yet and reports whether it did.
func (t *Tokenization) SetParse(parse *Parse) bool {
	if t.Parse != nil || parse == nil {
		return false
	}
	t.Parse = parse
	return true
}

// AddDependencyParses appends dependency parses.
func (t *Tokenization) AddDependencyParses(parses ...DependencyParse) {
	t.DependencyParses = append(t.DependencyParses, parses...)
}

// DependencyParse returns the dependency parse of the given variant.
func (t *Tokenization) DependencyParse(variant DependencyVariant) *DependencyParse {
	for i := range t.DependencyParses {
		if t.DependencyParses[i].Variant == variant {
			return &t.DependencyParses[i]
		}
	}
	return nil
}

// Clone returns a deep copy.
func (t *Tokenization) Clone() *Tokenization {
	if t == nil {
		return nil
	}
	c := &Tokenization{
		ID:     t.ID,
		Tokens: append([]Token{}, t.Tokens...),
	}
	for _, tagging := range t.Taggings {
		tagging.Tagged = append([]TaggedToken{}, tagging.Tagged...)
		c.Taggings = append(c.Taggings, tagging)
	}
	if t.Parse != nil {
		p := &Parse{ID: t.Parse.ID, Constituents: make([]Constituent, len(t.Parse.Constituents))}
		for i, constituent := range t.Parse.Constituents {
			constituent.Children = append([]int{}, constituent.Children...)
			if constituent.HeadChildIndex != nil {
				head := *constituent.HeadChildIndex
				constituent.HeadChildIndex = &head
			}
			p.Constituents[i] = constituent
		}
		c.Parse = p
	}
	for _, dp := range t.DependencyParses {
		edges := make([]DependencyEdge, len(dp.Edges))
		for i, edge := range dp.Edges {
			if edge.Governor != nil {
				governor := *edge.Governor
				edge.Governor = &governor
			}
			edges[i] = edge
		}
		dp.Edges = edges
		c.DependencyParses = append(c.DependencyParses, dp)
	}
	return c
}
