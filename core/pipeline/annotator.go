package pipeline

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/siherrmann/annomerge/model"
)

// sentenceEnders end a sentence when followed by whitespace or the end of text.
const sentenceEnders = ".!?"

// RuleAnnotator creates an annotator that splits text into sentences at
// terminal punctuation followed by whitespace and into tokens at whitespace
// and punctuation. It produces no tags, trees or dependencies.
// Offsets are byte offsets into the section text.
func RuleAnnotator() AnnotateFunc {
	return func(ctx context.Context, text string) ([]*model.AnnotatedSentence, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sentences := []*model.AnnotatedSentence{}
		current := &model.AnnotatedSentence{}

		flush := func() {
			if len(current.Tokens) > 0 {
				sentences = append(sentences, current)
			}
			current = &model.AnnotatedSentence{}
		}

		for _, span := range tokenSpans(text) {
			word := text[span[0]:span[1]]
			current.Tokens = append(current.Tokens, newAnnotatedToken(word, span[0], span[1], current))

			if len(word) == 1 && strings.Contains(sentenceEnders, word) && endsSentence(text, span[1]) {
				flush()
			}
		}
		flush()

		return sentences, nil
	}
}

func newAnnotatedToken(word string, begin, end int, sentence *model.AnnotatedSentence) *model.AnnotatedToken {
	sentenceStart := begin
	if len(sentence.Tokens) > 0 {
		sentenceStart = *sentence.Tokens[0].OriginalBegin
	}
	originalBegin, originalEnd := begin, end
	return &model.AnnotatedToken{
		Text:          word,
		Begin:         begin - sentenceStart,
		End:           end - sentenceStart,
		OriginalBegin: &originalBegin,
		OriginalEnd:   &originalEnd,
	}
}

// tokenSpans returns [start, end) byte ranges of words and single
// punctuation characters.
func tokenSpans(text string) [][2]int {
	var spans [][2]int
	start := -1
	for i, r := range text {
		switch {
		case unicode.IsSpace(r):
			if start >= 0 {
				spans = append(spans, [2]int{start, i})
				start = -1
			}
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			if start >= 0 && isWordInternal(text, i, r) {
				continue
			}
			if start >= 0 {
				spans = append(spans, [2]int{start, i})
				start = -1
			}
			spans = append(spans, [2]int{i, i + utf8.RuneLen(r)})
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(text)})
	}
	return spans
}

// isWordInternal keeps apostrophes, hyphens and decimal points between
// letters or digits inside the word.
func isWordInternal(text string, i int, r rune) bool {
	if r != '\'' && r != '-' && r != '.' && r != ',' {
		return false
	}
	next, _ := utf8.DecodeRuneInString(text[i+utf8.RuneLen(r):])
	prev, _ := utf8.DecodeLastRuneInString(text[:i])
	if r == '.' || r == ',' {
		return unicode.IsDigit(prev) && unicode.IsDigit(next)
	}
	return (unicode.IsLetter(prev) || unicode.IsDigit(prev)) && (unicode.IsLetter(next) || unicode.IsDigit(next))
}

func endsSentence(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return unicode.IsSpace(r)
}
