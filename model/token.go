package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Token is one word of a tokenization with its position in the original
// text (RawSpan) and in the processed text (ProcessedSpan).
type Token struct {
	Index         int      `json:"index"`
	Text          string   `json:"text"`
	RawSpan       TextSpan `json:"raw_span"`
	ProcessedSpan TextSpan `json:"processed_span"`
}

// TaggingKind is the kind of a token tagging.
type TaggingKind int

const (
	TaggingPOS TaggingKind = iota
	TaggingNER
	TaggingLemma
)

// AllTaggingKinds lists every tagging kind in canonical order.
var AllTaggingKinds = []TaggingKind{TaggingPOS, TaggingNER, TaggingLemma}

func (k TaggingKind) String() string {
	switch k {
	case TaggingPOS:
		return "POS"
	case TaggingNER:
		return "NER"
	case TaggingLemma:
		return "LEMMA"
	}
	return fmt.Sprintf("TaggingKind(%d)", int(k))
}

// ParseTaggingKind parses the names returned by String, case insensitive.
func ParseTaggingKind(s string) (TaggingKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "POS":
		return TaggingPOS, nil
	case "NER":
		return TaggingNER, nil
	case "LEMMA":
		return TaggingLemma, nil
	}
	return 0, fmt.Errorf("unknown tagging kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k TaggingKind) MarshalText() ([]byte, error) {
	switch k {
	case TaggingPOS, TaggingNER, TaggingLemma:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("unknown tagging kind %d", int(k))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *TaggingKind) UnmarshalText(text []byte) error {
	kind, err := ParseTaggingKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// TaggedToken is the tag of a single token.
type TaggedToken struct {
	TokenIndex int    `json:"token_index"`
	Tag        string `json:"tag"`
}

// TokenTagging is a tag sequence of one kind over a tokenization.
// Tokens without a tag are absent.
type TokenTagging struct {
	ID     uuid.UUID     `json:"id"`
	Kind   TaggingKind   `json:"kind"`
	Tagged []TaggedToken `json:"tagged"`
}

// Tag returns the tag of the token with the given index.
// A nil tagging has no tags.
func (t *TokenTagging) Tag(tokenIndex int) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, tt := range t.Tagged {
		if tt.TokenIndex == tokenIndex {
			return tt.Tag, true
		}
	}
	return "", false
}
