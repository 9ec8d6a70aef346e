package merge

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
)

// sentenceMerger merges annotated sentences of one section.
type sentenceMerger struct {
	config   model.MergeConfig
	headFind HeadFindFunc
	logger   *slog.Logger
	// Untouched document text, for raw span checks
	text  string
	frame Frame
}

// mergeBare builds a fresh tokenization for a sentence that has none.
// sentence may be nil. offset is the section-local processed offset of the
// first token; the offset after the sentence separator is returned.
func (m *sentenceMerger) mergeBare(sentence *model.Sentence, annotated *model.AnnotatedSentence, offset int) (*model.Sentence, int, error) {
	if annotated == nil {
		return nil, offset, helper.NewMergeError(helper.KindMissingAnnotation, "no annotation for bare sentence")
	}
	if len(annotated.Tokens) == 0 {
		return nil, offset, helper.NewMergeError(helper.KindMissingAnnotation, "annotation has no tokens")
	}

	tokens := make([]model.Token, 0, len(annotated.Tokens))
	next := offset
	for i, annotatedToken := range annotated.Tokens {
		token, n, err := AlignToken(annotatedToken, i, next, m.frame)
		if err != nil {
			return nil, offset, helper.NewError(fmt.Sprintf("token %d", i), err)
		}
		if err := m.checkRaw(token); err != nil {
			return nil, offset, helper.NewError(fmt.Sprintf("token %d", i), err)
		}
		tokens = append(tokens, token)
		next = n
	}

	merged := &model.Sentence{ID: uuid.New()}
	if sentence != nil && sentence.ID != uuid.Nil {
		merged.ID = sentence.ID
	}
	merged.Tokenization = model.NewTokenization(tokens)
	merged.RawSpan, merged.ProcessedSpan = coveringSpans(tokens)

	if err := m.addLayers(merged.Tokenization, annotated); err != nil {
		return nil, offset, err
	}

	return merged, next, nil
}

// mergeTokenized augments a sentence that already carries a tokenization.
// No token is created. The processed span rebuilt from the tokens must match
// the stored one exactly. annotated may be nil, then only spans are checked.
func (m *sentenceMerger) mergeTokenized(sentence *model.Sentence, annotated *model.AnnotatedSentence, offset int) (*model.Sentence, int, error) {
	tokenization := sentence.Tokenization
	if len(tokenization.Tokens) == 0 {
		return nil, offset, helper.NewMergeError(helper.KindMissingAnnotation, "tokenization %v has no tokens", tokenization.ID)
	}
	if annotated != nil && len(annotated.Tokens) != len(tokenization.Tokens) {
		return nil, offset, helper.NewMergeError(
			helper.KindOffsetReconciliationFailure,
			"annotation has %d tokens, tokenization %v has %d",
			len(annotated.Tokens), tokenization.ID, len(tokenization.Tokens),
		)
	}

	next := offset
	for i := range tokenization.Tokens {
		token := &tokenization.Tokens[i]
		if token.Index != i {
			return nil, offset, helper.NewMergeError(helper.KindInvalidSpan, "token at position %d has index %d", i, token.Index)
		}
		if token.Text == "" {
			return nil, offset, helper.NewMergeError(helper.KindMissingAnnotation, "token %d has no text", i)
		}

		processed := model.TextSpan{Start: next, End: next + len(token.Text)}.Shift(m.frame.ProcessedBase)
		if token.ProcessedSpan == (model.TextSpan{}) {
			token.ProcessedSpan = processed
		} else if token.ProcessedSpan != processed {
			return nil, offset, helper.NewMergeError(
				helper.KindOffsetReconciliationFailure,
				"token %d stored processed span [%d, %d), rebuilt [%d, %d)",
				i, token.ProcessedSpan.Start, token.ProcessedSpan.End, processed.Start, processed.End,
			)
		}
		if err := m.checkRaw(*token); err != nil {
			return nil, offset, helper.NewError(fmt.Sprintf("token %d", i), err)
		}
		next += len(token.Text) + 1
	}

	raw, processed := coveringSpans(tokenization.Tokens)
	if sentence.ProcessedSpan == nil {
		sentence.ProcessedSpan = processed
	} else if *sentence.ProcessedSpan != *processed {
		return nil, offset, helper.NewMergeError(
			helper.KindOffsetReconciliationFailure,
			"sentence %v stored processed span [%d, %d), rebuilt [%d, %d)",
			sentence.ID, sentence.ProcessedSpan.Start, sentence.ProcessedSpan.End, processed.Start, processed.End,
		)
	}
	if sentence.RawSpan == nil {
		sentence.RawSpan = raw
	}

	if annotated != nil {
		if err := m.addLayers(tokenization, annotated); err != nil {
			return nil, offset, err
		}
	}

	return sentence, next, nil
}

// addLayers attaches taggings, the constituency parse and the dependency
// parses of annotated to tokenization.
func (m *sentenceMerger) addLayers(tokenization *model.Tokenization, annotated *model.AnnotatedSentence) error {
	tokenCount := len(tokenization.Tokens)

	tokenization.AddTaggings(BuildTaggings(annotated.Tokens, m.config.TaggingKinds, m.logger)...)

	parse, err := FlattenTree(annotated.Tree, tokenCount, m.headFind, m.logger)
	if err != nil {
		return helper.NewError("constituency parse", err)
	}
	if !tokenization.SetParse(parse) {
		m.logger.Debug("Tokenization already has a parse", slog.String("tokenization", tokenization.ID.String()))
	}

	dependencies, err := ExtractDependencies(annotated, tokenCount, m.config.DependencyVariants, m.logger)
	if err != nil {
		return err
	}
	tokenization.AddDependencyParses(dependencies...)

	return nil
}

// checkRaw bounds-checks the raw span of token and, if configured, compares
// the covered text with the token text.
func (m *sentenceMerger) checkRaw(token model.Token) error {
	covered, err := token.RawSpan.Slice(m.text)
	if err != nil {
		return helper.NewError("raw span", err)
	}
	if m.config.VerifyRawText && covered != token.Text {
		return helper.NewMergeError(
			helper.KindInvalidSpan,
			"raw span [%d, %d) covers %q, token is %q",
			token.RawSpan.Start, token.RawSpan.End, covered, token.Text,
		)
	}
	return nil
}

// coveringSpans returns the spans from the first to the last token.
func coveringSpans(tokens []model.Token) (*model.TextSpan, *model.TextSpan) {
	first, last := tokens[0], tokens[len(tokens)-1]
	raw := model.TextSpan{Start: first.RawSpan.Start, End: last.RawSpan.End}
	processed := model.TextSpan{Start: first.ProcessedSpan.Start, End: last.ProcessedSpan.End}
	return &raw, &processed
}
