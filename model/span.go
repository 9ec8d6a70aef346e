package model

import (
	"unicode/utf8"

	"github.com/siherrmann/annomerge/helper"
)

// TextSpan is a half-open byte range [Start, End) into a text.
type TextSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewTextSpan returns the span [start, end). It fails with InvalidSpan
// unless 0 <= start < end.
func NewTextSpan(start, end int) (TextSpan, error) {
	if start < 0 {
		return TextSpan{}, helper.NewMergeError(helper.KindInvalidSpan, "negative start %d", start)
	}
	if end <= start {
		return TextSpan{}, helper.NewMergeError(helper.KindInvalidSpan, "end %d <= start %d", end, start)
	}
	return TextSpan{Start: start, End: end}, nil
}

// NewEmptySpan returns a zero-width span at offset. Only empty coreference
// mentions carry such a span.
func NewEmptySpan(offset int) TextSpan {
	return TextSpan{Start: offset, End: offset}
}

// Shift moves the span into a frame whose origin is base.
func (s TextSpan) Shift(base int) TextSpan {
	return TextSpan{Start: s.Start + base, End: s.End + base}
}

// Len is the width of the span.
func (s TextSpan) Len() int {
	return s.End - s.Start
}

// IsEmpty reports whether the span has zero width.
func (s TextSpan) IsEmpty() bool {
	return s.End <= s.Start
}

// CheckBounds fails with InvalidSpan if the span is malformed or exceeds textLen.
func (s TextSpan) CheckBounds(textLen int) error {
	if s.Start < 0 || s.End <= s.Start {
		return helper.NewMergeError(helper.KindInvalidSpan, "malformed span [%d, %d)", s.Start, s.End)
	}
	if s.End > textLen {
		return helper.NewMergeError(helper.KindInvalidSpan, "span [%d, %d) exceeds text length %d", s.Start, s.End, textLen)
	}
	return nil
}

// Slice returns text[s.Start:s.End] after a bounds check.
func (s TextSpan) Slice(text string) (string, error) {
	if err := s.CheckBounds(len(text)); err != nil {
		return "", err
	}
	return text[s.Start:s.End], nil
}

// OffsetUnit is the unit an annotator reports offsets in.
type OffsetUnit string

const (
	OffsetUnitByte OffsetUnit = "byte"
	OffsetUnitRune OffsetUnit = "rune"
)

// OffsetIndex maps rune offsets of a text to byte offsets.
// A nil *OffsetIndex treats offsets as byte offsets already.
type OffsetIndex struct {
	byteOffsets []int
}

// NewOffsetIndex indexes text. The index has one entry per rune plus one
// for the end of the text.
func NewOffsetIndex(text string) *OffsetIndex {
	offsets := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))
	return &OffsetIndex{byteOffsets: offsets}
}

// ByteOffset converts a rune offset to a byte offset.
func (x *OffsetIndex) ByteOffset(runeOffset int) (int, error) {
	if x == nil {
		return runeOffset, nil
	}
	if runeOffset < 0 || runeOffset >= len(x.byteOffsets) {
		return 0, helper.NewMergeError(helper.KindInvalidSpan, "character offset %d outside text of %d characters", runeOffset, len(x.byteOffsets)-1)
	}
	return x.byteOffsets[runeOffset], nil
}

// RuneOffset converts a byte offset to a rune offset. The byte offset must
// fall on a rune boundary.
func (x *OffsetIndex) RuneOffset(byteOffset int) (int, error) {
	if x == nil {
		return byteOffset, nil
	}
	lo, hi := 0, len(x.byteOffsets)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case x.byteOffsets[mid] == byteOffset:
			return mid, nil
		case x.byteOffsets[mid] < byteOffset:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return 0, helper.NewMergeError(helper.KindInvalidSpan, "byte offset %d is not a character boundary", byteOffset)
}
