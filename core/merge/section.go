package merge

import (
	"fmt"
	"strings"

	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
)

const (
	sentenceSeparator = "\n"
	sectionSeparator  = "\n\n"
)

// mergeSection merges the sentences of section in order and returns the
// section's processed text. base is the length of the processed document
// text before this section.
func (e *Engine) mergeSection(text string, section *model.Section, annotated []*model.AnnotatedSentence, base int) (string, error) {
	for i, sentence := range section.Sentences {
		if sentence == nil {
			return "", helper.NewMergeError(helper.KindMissingAnnotation, "section %v sentence %d is nil", section.ID, i)
		}
	}
	tokenized, err := sectionBranch(section)
	if err != nil {
		return "", err
	}
	if !tokenized && annotated == nil {
		return "", helper.NewMergeError(helper.KindMissingAnnotation, "no annotation for section %v", section.ID)
	}
	if annotated != nil && len(section.Sentences) > 0 && len(annotated) != len(section.Sentences) {
		return "", helper.NewMergeError(
			helper.KindMissingAnnotation,
			"section %v has %d sentences, annotation has %d",
			section.ID, len(section.Sentences), len(annotated),
		)
	}

	frame := Frame{RawBase: section.RawSpan.Start, ProcessedBase: base}
	if e.config.OffsetUnit == model.OffsetUnitRune {
		frame.Offsets = model.NewOffsetIndex(text[section.RawSpan.Start:section.RawSpan.End])
	}
	m := &sentenceMerger{
		config:   e.config,
		headFind: e.headFind,
		logger:   e.log,
		text:     text,
		frame:    frame,
	}

	count := len(section.Sentences)
	if count == 0 {
		count = len(annotated)
	}
	if count == 0 {
		return "", helper.NewMergeError(helper.KindMissingAnnotation, "section %v has no sentences", section.ID)
	}

	sentences := make([]*model.Sentence, 0, count)
	var buffer strings.Builder
	offset := 0
	for i := 0; i < count; i++ {
		var sentence *model.Sentence
		if i < len(section.Sentences) {
			sentence = section.Sentences[i]
		}
		var annotatedSentence *model.AnnotatedSentence
		if annotated != nil {
			annotatedSentence = annotated[i]
		}

		var merged *model.Sentence
		if tokenized {
			merged, offset, err = m.mergeTokenized(sentence, annotatedSentence, offset)
		} else {
			merged, offset, err = m.mergeBare(sentence, annotatedSentence, offset)
		}
		if err != nil {
			return "", helper.NewError(fmt.Sprintf("sentence %d", i), err)
		}

		if i > 0 {
			buffer.WriteString(sentenceSeparator)
		}
		buffer.WriteString(merged.Tokenization.Text())
		if err := checkProcessed(merged.Tokenization, buffer.String(), base); err != nil {
			return "", helper.NewError(fmt.Sprintf("sentence %d", i), err)
		}
		sentences = append(sentences, merged)
	}

	processed := buffer.String()
	section.Sentences = sentences
	section.ProcessedSpan = &model.TextSpan{Start: base, End: base + len(processed)}

	return processed, nil
}

// sectionBranch reports whether all sentences of section are tokenized.
// A section without sentences counts as bare.
func sectionBranch(section *model.Section) (bool, error) {
	tokenized := 0
	for _, sentence := range section.Sentences {
		if sentence.IsTokenized() {
			tokenized++
		}
	}
	if tokenized > 0 && tokenized < len(section.Sentences) {
		return false, helper.NewMergeError(
			helper.KindMixedTokenizationBranch,
			"section %v has %d tokenized and %d bare sentences",
			section.ID, tokenized, len(section.Sentences)-tokenized,
		)
	}
	return tokenized > 0, nil
}

// checkProcessed verifies every token against the section text built so far.
func checkProcessed(tokenization *model.Tokenization, sectionText string, base int) error {
	for _, token := range tokenization.Tokens {
		covered, err := token.ProcessedSpan.Shift(-base).Slice(sectionText)
		if err != nil {
			return helper.NewError("processed span", err)
		}
		if covered != token.Text {
			return helper.NewMergeError(
				helper.KindOffsetReconciliationFailure,
				"processed span [%d, %d) covers %q, token is %q",
				token.ProcessedSpan.Start, token.ProcessedSpan.End, covered, token.Text,
			)
		}
	}
	return nil
}
