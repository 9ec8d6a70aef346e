package merge

import (
	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
)

// Frame holds the bases that move annotator-local offsets into document
// coordinates.
type Frame struct {
	// Start of the annotated text in Document.Text
	RawBase int
	// Start of the section in Document.ProcessedText
	ProcessedBase int
	// Converts annotator character offsets to byte offsets, nil for bytes
	Offsets *model.OffsetIndex
}

// AlignToken converts one annotated token into a Token with the given index.
// The raw span comes from the annotator's original offsets, the processed
// span starts at offset. The returned offset is the start of the next token,
// assuming a single separator after this one.
func AlignToken(token *model.AnnotatedToken, index int, offset int, f Frame) (model.Token, int, error) {
	if token == nil || token.Text == "" {
		return model.Token{}, offset, helper.NewMergeError(helper.KindMissingAnnotation, "token %d has no text", index)
	}
	if token.OriginalBegin == nil || token.OriginalEnd == nil {
		return model.Token{}, offset, helper.NewMergeError(helper.KindMissingAnnotation, "token %d (%q) has no original offsets", index, token.Text)
	}

	begin, err := f.Offsets.ByteOffset(*token.OriginalBegin)
	if err != nil {
		return model.Token{}, offset, helper.NewError("original begin", err)
	}
	end, err := f.Offsets.ByteOffset(*token.OriginalEnd)
	if err != nil {
		return model.Token{}, offset, helper.NewError("original end", err)
	}

	raw, err := model.NewTextSpan(begin, end)
	if err != nil {
		return model.Token{}, offset, helper.NewError("raw span", err)
	}
	processed, err := model.NewTextSpan(offset, offset+len(token.Text))
	if err != nil {
		return model.Token{}, offset, helper.NewError("processed span", err)
	}

	return model.Token{
		Index:         index,
		Text:          token.Text,
		RawSpan:       raw.Shift(f.RawBase),
		ProcessedSpan: processed.Shift(f.ProcessedBase),
	}, offset + len(token.Text) + 1, nil
}
