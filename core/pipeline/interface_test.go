package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock TagFunc that tags every token as a noun
func mockNounTagger(text string, sentences []*model.AnnotatedSentence) error {
	for _, sentence := range sentences {
		for _, token := range sentence.Tokens {
			token.SetTag(model.TaggingPOS, "NN")
		}
	}
	return nil
}

// Mock CorefFunc that records the sentences it was given
func mockCoref(seen *[]*model.AnnotatedSentence) CorefFunc {
	return func(sentences []*model.AnnotatedSentence) (model.CorefTable, error) {
		*seen = sentences
		return model.CorefTable{1: {ID: 1, Mentions: []model.CorefMention{{SentNum: 1, StartIndex: 1, EndIndex: 2, HeadIndex: 1}}}}, nil
	}
}

func mockAnnotateError(ctx context.Context, text string) ([]*model.AnnotatedSentence, error) {
	return nil, errors.New("annotator down")
}

func testLogger() *slog.Logger {
	return helper.NewPrettyLogger(io.Discard, slog.LevelDebug)
}

func testDocument(text string) *model.Document {
	return &model.Document{
		RID:      uuid.New(),
		DocID:    "doc-1",
		Text:     text,
		Sections: model.SectionsFromParagraphs(text),
	}
}

func TestNewPipeline(t *testing.T) {
	t.Run("Create new pipeline", func(t *testing.T) {
		pipeline := NewPipeline(RuleAnnotator())

		require.NotNil(t, pipeline, "Expected NewPipeline to return a non-nil instance")
		assert.NotNil(t, pipeline.Annotator, "Expected pipeline to have an annotator")
		assert.Empty(t, pipeline.Taggers)
		assert.Nil(t, pipeline.CorefResolver)
		assert.Nil(t, pipeline.HeadFinder)
		assert.Nil(t, pipeline.Embedder)
	})

	t.Run("Setters fill optional steps", func(t *testing.T) {
		pipeline := NewPipeline(RuleAnnotator())
		pipeline.SetTagger(mockNounTagger)
		pipeline.SetTagger(mockNounTagger)
		pipeline.SetCorefResolver(StringMatchCoref())
		pipeline.SetHeadFinder(CollinsHeadFinder())
		pipeline.SetEmbedder(func(text string) ([]float32, error) { return []float32{1}, nil })

		assert.Len(t, pipeline.Taggers, 2)
		assert.NotNil(t, pipeline.CorefResolver)
		assert.NotNil(t, pipeline.HeadFinder)
		assert.NotNil(t, pipeline.Embedder)
	})
}

func TestPipelineAnnotate(t *testing.T) {
	t.Run("Annotates every kept section", func(t *testing.T) {
		doc := testDocument("Hi there. Bye.\n\n   \n\nSecond part.")
		var seen []*model.AnnotatedSentence
		pipeline := NewPipeline(RuleAnnotator())
		pipeline.SetTagger(mockNounTagger)
		pipeline.SetCorefResolver(mockCoref(&seen))

		ann, err := pipeline.Annotate(context.Background(), doc)
		require.NoError(t, err)
		require.Len(t, ann.Sections, len(doc.Sections))
		assert.Len(t, ann.Sections[0], 2)
		assert.Len(t, ann.Sections[len(doc.Sections)-1], 1)
		assert.Len(t, seen, 3, "Coreference should see all sentences in order")
		assert.Len(t, ann.Coref, 1)

		pos, ok := ann.Sections[0][0].Tokens[0].Tag(model.TaggingPOS)
		assert.True(t, ok)
		assert.Equal(t, "NN", pos)
	})

	t.Run("Offsets are relative to the section", func(t *testing.T) {
		doc := testDocument("First.\n\nSecond.")
		ann, err := NewPipeline(RuleAnnotator()).Annotate(context.Background(), doc)
		require.NoError(t, err)

		token := ann.Sections[1][0].Tokens[0]
		assert.Equal(t, "Second", token.Text)
		assert.Equal(t, 0, *token.OriginalBegin)
	})

	t.Run("Skips tokenized sections and coreference", func(t *testing.T) {
		doc := testDocument("Hi.\n\nBye.")
		tokens := []model.Token{{Index: 0, Text: "Hi", RawSpan: model.TextSpan{Start: 0, End: 2}}}
		doc.Sections[0].Sentences = []*model.Sentence{{ID: uuid.New(), Tokenization: model.NewTokenization(tokens)}}
		var seen []*model.AnnotatedSentence
		pipeline := NewPipeline(RuleAnnotator())
		pipeline.SetCorefResolver(mockCoref(&seen))

		ann, err := pipeline.Annotate(context.Background(), doc)
		require.NoError(t, err)
		assert.Nil(t, ann.Sections[0])
		assert.Len(t, ann.Sections[1], 1)
		assert.Nil(t, ann.Coref)
		assert.Nil(t, seen)
	})

	t.Run("Wraps annotator errors", func(t *testing.T) {
		_, err := NewPipeline(mockAnnotateError).Annotate(context.Background(), testDocument("Hi."))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "annotate section 0: annotator down")
	})

	t.Run("Fails without annotator", func(t *testing.T) {
		_, err := NewPipeline(nil).Annotate(context.Background(), testDocument("Hi."))
		assert.Error(t, err)
	})

	t.Run("Stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewPipeline(RuleAnnotator()).Annotate(ctx, testDocument("Hi."))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
