package merge

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// annotateSection annotates one section text split into the given sentences.
func annotateSection(t *testing.T, text string, sentences ...[]string) []*model.AnnotatedSentence {
	t.Helper()
	words := []string{}
	for _, sentence := range sentences {
		words = append(words, sentence...)
	}
	tokens := annotateWords(t, text, words...)

	annotated := make([]*model.AnnotatedSentence, 0, len(sentences))
	for _, sentence := range sentences {
		annotated = append(annotated, &model.AnnotatedSentence{Tokens: tokens[:len(sentence)]})
		tokens = tokens[len(sentence):]
	}
	return annotated
}

func testDocument(text string) *model.Document {
	return &model.Document{
		RID:      uuid.New(),
		DocID:    "doc-1",
		Text:     text,
		Sections: model.SectionsFromParagraphs(text),
	}
}

func processedSpans(sentence *model.Sentence) []model.TextSpan {
	spans := []model.TextSpan{}
	for _, token := range sentence.Tokenization.Tokens {
		spans = append(spans, token.ProcessedSpan)
	}
	return spans
}

func TestMergeBareSections(t *testing.T) {
	t.Run("Builds processed spans across sentences", func(t *testing.T) {
		doc := testDocument("Hi. Bye.")
		ann := &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{
			annotateSection(t, doc.Text, []string{"Hi", "."}, []string{"Bye", "."}),
		}}

		merged, err := NewEngine(model.DefaultMergeConfig(), testLogger()).Merge(doc, ann)
		require.NoError(t, err)
		require.Len(t, merged.Sections, 1)
		sentences := merged.Sections[0].Sentences
		require.Len(t, sentences, 2)

		assert.Equal(t, []model.TextSpan{{Start: 0, End: 2}, {Start: 3, End: 4}}, processedSpans(sentences[0]))
		assert.Equal(t, []model.TextSpan{{Start: 5, End: 8}, {Start: 9, End: 10}}, processedSpans(sentences[1]))
		assert.Equal(t, "Hi .\nBye .\n\n", merged.ProcessedText)
		assert.Equal(t, &model.TextSpan{Start: 0, End: 10}, merged.Sections[0].ProcessedSpan)
		assert.Equal(t, &model.TextSpan{Start: 4, End: 8}, sentences[1].RawSpan)
		assert.Equal(t, &model.TextSpan{Start: 5, End: 10}, sentences[1].ProcessedSpan)

		for i, token := range sentences[1].Tokenization.Tokens {
			assert.Equal(t, i, token.Index, "Token indices should restart per sentence")
		}
		require.NoError(t, ValidateDocument(merged, true))
	})

	t.Run("Shifts later sections into document frames", func(t *testing.T) {
		doc := testDocument("Hi there.\n\nBye now.")
		require.Len(t, doc.Sections, 2)
		second := doc.Text[doc.Sections[1].RawSpan.Start:doc.Sections[1].RawSpan.End]
		ann := &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{
			annotateSection(t, "Hi there.", []string{"Hi", "there", "."}),
			annotateSection(t, second, []string{"Bye", "now", "."}),
		}}

		merged, err := NewEngine(model.DefaultMergeConfig(), testLogger()).Merge(doc, ann)
		require.NoError(t, err)
		assert.Equal(t, "Hi there .\n\nBye now .\n\n", merged.ProcessedText)

		tokens := merged.Sections[1].Sentences[0].Tokenization.Tokens
		assert.Equal(t, model.TextSpan{Start: 11, End: 14}, tokens[0].RawSpan)
		assert.Equal(t, model.TextSpan{Start: 12, End: 15}, tokens[0].ProcessedSpan)
		assert.Equal(t, &model.TextSpan{Start: 12, End: 21}, merged.Sections[1].ProcessedSpan)
		require.NoError(t, ValidateDocument(merged, true))
	})

	t.Run("Converts character offsets of multi-byte text", func(t *testing.T) {
		doc := testDocument("Grüße, Welt.")
		sentence := &model.AnnotatedSentence{}
		for _, tok := range []struct {
			text       string
			begin, end int
		}{{"Grüße", 0, 5}, {",", 5, 6}, {"Welt", 7, 11}, {".", 11, 12}} {
			sentence.Tokens = append(sentence.Tokens, &model.AnnotatedToken{Text: tok.text, OriginalBegin: intPtr(tok.begin), OriginalEnd: intPtr(tok.end)})
		}
		config := model.DefaultMergeConfig()
		config.OffsetUnit = model.OffsetUnitRune

		merged, err := NewEngine(config, testLogger()).Merge(doc, &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{{sentence}}})
		require.NoError(t, err)

		tokens := merged.Sections[0].Sentences[0].Tokenization.Tokens
		assert.Equal(t, model.TextSpan{Start: 0, End: 7}, tokens[0].RawSpan)
		assert.Equal(t, model.TextSpan{Start: 9, End: 13}, tokens[2].RawSpan)
		assert.Equal(t, model.TextSpan{Start: 0, End: 7}, tokens[0].ProcessedSpan)
		require.NoError(t, ValidateDocument(merged, true))
	})

	t.Run("Attaches taggings parse and dependencies", func(t *testing.T) {
		doc := testDocument("John sees Mary")
		sentences := annotateSection(t, doc.Text, []string{"John", "sees", "Mary"})
		for i, pos := range []string{"NNP", "VBZ", "NNP"} {
			sentences[0].Tokens[i].SetTag(model.TaggingPOS, pos)
		}
		sentences[0].Tree = johnSeesMary()
		sentences[0].Dependencies = map[model.DependencyVariant]*model.DependencyGraph{
			model.DependencyBasic: {Roots: []int{2}, Arcs: []model.DependencyArc{{Source: 2, Target: 1, Relation: "nsubj"}, {Source: 2, Target: 3, Relation: "dobj"}}},
		}

		merged, err := NewEngine(model.DefaultMergeConfig(), testLogger()).Merge(doc, &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{sentences}})
		require.NoError(t, err)

		tokenization := merged.Sections[0].Sentences[0].Tokenization
		require.Len(t, tokenization.Taggings, 3, "One tagging per configured kind")
		assert.Len(t, tokenization.Tagging(model.TaggingPOS).Tagged, 3)
		assert.Empty(t, tokenization.Tagging(model.TaggingNER).Tagged)
		require.NotNil(t, tokenization.Parse)
		assert.Len(t, tokenization.Parse.Constituents, 8)
		require.Len(t, tokenization.DependencyParses, 1)
		assert.Len(t, tokenization.DependencyParse(model.DependencyBasic).Edges, 3)

		assert.True(t, model.HasTokenizations(merged))
		assert.True(t, model.HasParses(merged))
		assert.True(t, model.HasDependencyParses(merged))
		assert.True(t, model.HasMentions(merged))
		require.NoError(t, ValidateDocument(merged, true))
	})

	t.Run("Sentence without tree gets an empty parse", func(t *testing.T) {
		doc := testDocument("Hi")
		merged, err := NewEngine(model.DefaultMergeConfig(), testLogger()).Merge(doc, &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{
			annotateSection(t, doc.Text, []string{"Hi"}),
		}})
		require.NoError(t, err)

		parse := merged.Sections[0].Sentences[0].Tokenization.Parse
		require.NotNil(t, parse)
		assert.NotNil(t, parse.Constituents)
		assert.Empty(t, parse.Constituents)
	})

	t.Run("Keeps ids of bare input sentences", func(t *testing.T) {
		doc := testDocument("Hi. Bye.")
		ids := []uuid.UUID{uuid.New(), uuid.New()}
		doc.Sections[0].Sentences = []*model.Sentence{{ID: ids[0]}, {ID: ids[1]}}

		merged, err := NewEngine(model.DefaultMergeConfig(), testLogger()).Merge(doc, &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{
			annotateSection(t, doc.Text, []string{"Hi", "."}, []string{"Bye", "."}),
		}})
		require.NoError(t, err)
		assert.Equal(t, ids[0], merged.Sections[0].Sentences[0].ID)
		assert.Equal(t, ids[1], merged.Sections[0].Sentences[1].ID)
	})
}

func TestMergeTokenizedSections(t *testing.T) {
	tokenizedDocument := func() *model.Document {
		doc := testDocument("Hi.")
		tokens := []model.Token{
			{Index: 0, Text: "Hi", RawSpan: model.TextSpan{Start: 0, End: 2}},
			{Index: 1, Text: ".", RawSpan: model.TextSpan{Start: 2, End: 3}},
		}
		doc.Sections[0].Sentences = []*model.Sentence{{ID: uuid.New(), Tokenization: model.NewTokenization(tokens)}}
		return doc
	}

	t.Run("Augments without creating tokens", func(t *testing.T) {
		doc := tokenizedDocument()
		original := doc.Sections[0].Sentences[0].Tokenization
		sentences := annotateSection(t, doc.Text, []string{"Hi", "."})
		sentences[0].Tokens[0].SetTag(model.TaggingLemma, "hi")
		sentences[0].Tree = node("ROOT", leaf("Hi"), leaf("."))

		merged, err := NewEngine(model.DefaultMergeConfig(), testLogger()).Merge(doc, &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{sentences}})
		require.NoError(t, err)

		sentence := merged.Sections[0].Sentences[0]
		assert.Equal(t, original.ID, sentence.Tokenization.ID, "Tokenization should be kept")
		assert.Len(t, sentence.Tokenization.Tokens, 2)
		assert.Equal(t, []model.TextSpan{{Start: 0, End: 2}, {Start: 3, End: 4}}, processedSpans(sentence))
		assert.Equal(t, &model.TextSpan{Start: 0, End: 4}, sentence.ProcessedSpan)
		assert.Equal(t, &model.TextSpan{Start: 0, End: 3}, sentence.RawSpan)
		assert.Equal(t, []model.TaggedToken{{TokenIndex: 0, Tag: "hi"}}, sentence.Tokenization.Tagging(model.TaggingLemma).Tagged)
		assert.Len(t, sentence.Tokenization.Parse.Constituents, 3)

		assert.Empty(t, original.Taggings, "Input tokenization should not be modified")
		assert.Nil(t, doc.Sections[0].Sentences[0].ProcessedSpan)
	})

	t.Run("Passes through without annotation", func(t *testing.T) {
		merged, err := NewEngine(model.DefaultMergeConfig(), testLogger()).Merge(tokenizedDocument(), nil)
		require.NoError(t, err)

		sentence := merged.Sections[0].Sentences[0]
		assert.Equal(t, &model.TextSpan{Start: 0, End: 4}, sentence.ProcessedSpan)
		assert.Empty(t, sentence.Tokenization.Taggings)
		assert.Equal(t, "Hi .\n\n", merged.ProcessedText)
		require.Len(t, merged.MentionSets, 1)
		assert.Empty(t, merged.MentionSets[0].Mentions)
	})

	t.Run("Accepts matching stored spans", func(t *testing.T) {
		doc := tokenizedDocument()
		doc.Sections[0].Sentences[0].ProcessedSpan = &model.TextSpan{Start: 0, End: 4}
		doc.Sections[0].Sentences[0].Tokenization.Tokens[1].ProcessedSpan = model.TextSpan{Start: 3, End: 4}

		_, err := NewEngine(model.DefaultMergeConfig(), testLogger()).Merge(doc, nil)
		require.NoError(t, err)
	})

	t.Run("Fails on stored sentence span mismatch", func(t *testing.T) {
		doc := tokenizedDocument()
		doc.Sections[0].Sentences[0].ProcessedSpan = &model.TextSpan{Start: 0, End: 3}

		merged, err := NewEngine(model.DefaultMergeConfig(), testLogger()).Merge(doc, nil)
		assert.ErrorIs(t, err, helper.ErrOffsetReconciliationFailure)
		assert.Nil(t, merged, "No partial document should be returned")
	})

	t.Run("Fails on stored token span mismatch", func(t *testing.T) {
		doc := tokenizedDocument()
		doc.Sections[0].Sentences[0].Tokenization.Tokens[1].ProcessedSpan = model.TextSpan{Start: 2, End: 3}

		_, err := NewEngine(model.DefaultMergeConfig(), testLogger()).Merge(doc, nil)
		assert.ErrorIs(t, err, helper.ErrOffsetReconciliationFailure)
	})

	t.Run("Fails on token count mismatch", func(t *testing.T) {
		doc := tokenizedDocument()
		ann := &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{
			annotateSection(t, doc.Text, []string{"Hi."}),
		}}

		_, err := NewEngine(model.DefaultMergeConfig(), testLogger()).Merge(doc, ann)
		assert.ErrorIs(t, err, helper.ErrOffsetReconciliationFailure)
	})

	t.Run("Fails on mixed section", func(t *testing.T) {
		doc := testDocument("Hi. Bye.")
		tokens := []model.Token{{Index: 0, Text: "Hi", RawSpan: model.TextSpan{Start: 0, End: 2}}}
		doc.Sections[0].Sentences = []*model.Sentence{
			{ID: uuid.New(), Tokenization: model.NewTokenization(tokens)},
			{ID: uuid.New()},
		}
		ann := &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{
			annotateSection(t, doc.Text, []string{"Hi", "."}, []string{"Bye", "."}),
		}}

		_, err := NewEngine(model.DefaultMergeConfig(), testLogger()).Merge(doc, ann)
		assert.ErrorIs(t, err, helper.ErrMixedTokenizationBranch)
		kind, ok := helper.KindOf(err)
		assert.True(t, ok)
		assert.Equal(t, helper.KindMixedTokenizationBranch, kind)
		assert.Contains(t, err.Error(), "document doc-1")
	})
}

func TestMergeFailures(t *testing.T) {
	engine := NewEngine(model.DefaultMergeConfig(), testLogger())

	t.Run("Fails without annotation for bare section", func(t *testing.T) {
		_, err := engine.Merge(testDocument("Hi."), nil)
		assert.ErrorIs(t, err, helper.ErrMissingAnnotation)

		_, err = engine.Merge(testDocument("Hi."), &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{{}}})
		assert.ErrorIs(t, err, helper.ErrMissingAnnotation)
	})

	t.Run("Fails on sentence without tokens", func(t *testing.T) {
		_, err := engine.Merge(testDocument("Hi."), &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{{{}}}})
		assert.ErrorIs(t, err, helper.ErrMissingAnnotation)
	})

	t.Run("Fails on sentence count mismatch", func(t *testing.T) {
		doc := testDocument("Hi. Bye.")
		doc.Sections[0].Sentences = []*model.Sentence{{ID: uuid.New()}}
		ann := &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{
			annotateSection(t, doc.Text, []string{"Hi", "."}, []string{"Bye", "."}),
		}}

		_, err := engine.Merge(doc, ann)
		assert.ErrorIs(t, err, helper.ErrMissingAnnotation)
	})

	t.Run("Fails on raw text mismatch", func(t *testing.T) {
		doc := testDocument("(Hi)")
		sentence := &model.AnnotatedSentence{Tokens: []*model.AnnotatedToken{
			{Text: "-LRB-", OriginalBegin: intPtr(0), OriginalEnd: intPtr(1)},
			{Text: "Hi", OriginalBegin: intPtr(1), OriginalEnd: intPtr(3)},
			{Text: "-RRB-", OriginalBegin: intPtr(3), OriginalEnd: intPtr(4)},
		}}
		ann := &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{{sentence}}}

		_, err := engine.Merge(doc, ann)
		assert.ErrorIs(t, err, helper.ErrInvalidSpan)

		config := model.DefaultMergeConfig()
		config.VerifyRawText = false
		merged, err := NewEngine(config, testLogger()).Merge(doc, ann)
		require.NoError(t, err)
		assert.Equal(t, "-LRB- Hi -RRB-\n\n", merged.ProcessedText)
	})

	t.Run("Fails on raw span outside the document", func(t *testing.T) {
		doc := testDocument("Hi")
		sentence := &model.AnnotatedSentence{Tokens: []*model.AnnotatedToken{
			{Text: "Hi", OriginalBegin: intPtr(1), OriginalEnd: intPtr(3)},
		}}

		_, err := engine.Merge(doc, &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{{sentence}}})
		assert.ErrorIs(t, err, helper.ErrInvalidSpan)
	})

	t.Run("Fails on section outside the document", func(t *testing.T) {
		doc := testDocument("Hi")
		doc.Sections[0].RawSpan = model.TextSpan{Start: 0, End: 5}

		_, err := engine.Merge(doc, nil)
		assert.ErrorIs(t, err, helper.ErrInvalidSpan)
	})

	t.Run("Fails on leaf count mismatch", func(t *testing.T) {
		doc := testDocument("Hi.")
		sentences := annotateSection(t, doc.Text, []string{"Hi", "."})
		sentences[0].Tree = node("ROOT", leaf("Hi"))

		_, err := engine.Merge(doc, &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{sentences}})
		assert.ErrorIs(t, err, helper.ErrLeafCountMismatch)
		assert.Contains(t, err.Error(), "section 0: sentence 0: constituency parse")
	})

	t.Run("Fails without document", func(t *testing.T) {
		_, err := engine.Merge(nil, nil)
		assert.ErrorIs(t, err, helper.ErrMissingAnnotation)
	})

	t.Run("Fails on nil sentence", func(t *testing.T) {
		doc := testDocument("Hi.")
		doc.Sections[0].Sentences = []*model.Sentence{nil}
		ann := &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{
			annotateSection(t, doc.Text, []string{"Hi", "."}),
		}}

		assert.NotPanics(t, func() {
			_, err := engine.Merge(doc, ann)
			assert.ErrorIs(t, err, helper.ErrMissingAnnotation)
			assert.Contains(t, err.Error(), "sentence 0 is nil")
		})
	})
}

func TestMergeDropsEmptySections(t *testing.T) {
	text := "Hi.\n\n&nbsp;\n\nBye."
	doc := &model.Document{
		RID:   uuid.New(),
		DocID: "doc-1",
		Text:  text,
		Sections: []*model.Section{
			{ID: uuid.New(), RawSpan: model.TextSpan{Start: 0, End: 3}},
			{ID: uuid.New(), RawSpan: model.TextSpan{Start: 5, End: 11}},
			{ID: uuid.New(), RawSpan: model.TextSpan{Start: 13, End: 17}},
			{ID: uuid.New(), RawSpan: model.TextSpan{Start: 17, End: 17}},
			nil,
		},
	}
	ann := &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{
		annotateSection(t, "Hi.", []string{"Hi", "."}),
		nil,
		annotateSection(t, "Bye.", []string{"Bye", "."}),
	}}

	var buf bytes.Buffer
	var merged *model.Document
	var err error
	require.NotPanics(t, func() {
		merged, err = NewEngine(model.DefaultMergeConfig(), helper.NewPrettyLogger(&buf, slog.LevelDebug)).Merge(doc, ann)
	})
	require.NoError(t, err)

	require.Len(t, merged.Sections, 2)
	assert.Equal(t, doc.Sections[0].ID, merged.Sections[0].ID)
	assert.Equal(t, doc.Sections[2].ID, merged.Sections[1].ID)
	assert.Equal(t, "Hi .\n\nBye .\n\n", merged.ProcessedText)
	assert.Contains(t, buf.String(), "Dropped empty sections")
	assert.Contains(t, buf.String(), `"count": 3`)
	require.NoError(t, ValidateDocument(merged, true))
	assert.Len(t, doc.Sections, 5, "Input sections should be kept")
}

func TestIsBlank(t *testing.T) {
	tests := []struct {
		text     string
		expected bool
	}{
		{"", true},
		{" \n\t", true},
		{"&nbsp;", true},
		{"&#160;\n&nbsp; ", true},
		{"&amp;", false},
		{" a ", false},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("%q", test.text), func(t *testing.T) {
			assert.Equal(t, test.expected, IsBlank(test.text))
		})
	}
}

func TestMergeCoreference(t *testing.T) {
	doc := testDocument("John sees Mary. He likes her.")
	ann := &model.DocumentAnnotation{
		Sections: [][]*model.AnnotatedSentence{
			annotateSection(t, doc.Text, []string{"John", "sees", "Mary", "."}, []string{"He", "likes", "her", "."}),
		},
		Coref: model.CorefTable{
			1: {ID: 1, Mentions: []model.CorefMention{
				{SentNum: 2, StartIndex: 1, EndIndex: 2, HeadIndex: 1, Text: "He"},
				{SentNum: 1, StartIndex: 1, EndIndex: 2, HeadIndex: 1, Text: "John", EntityType: "PERSON"},
			}},
			2: {ID: 2, Mentions: []model.CorefMention{
				{SentNum: 1, StartIndex: 3, EndIndex: 4, HeadIndex: 3, Text: "Mary"},
				{SentNum: 2, StartIndex: 3, EndIndex: 4, HeadIndex: 3, Text: "her"},
			}},
		},
	}
	config := model.DefaultMergeConfig()
	config.Validate = true

	merged, err := NewEngine(config, testLogger()).Merge(doc, ann)
	require.NoError(t, err)
	require.Len(t, merged.MentionSets, 1)
	require.Len(t, merged.EntitySets, 1)

	mentions := merged.MentionSets[0]
	entities := merged.EntitySets[0]
	assert.Equal(t, mentions.ID, entities.MentionSetID)
	assert.Equal(t, "annomerge", mentions.Tool)
	assert.Len(t, mentions.Mentions, 4)
	require.Len(t, entities.Entities, 2)

	john := entities.Entities[0]
	assert.Equal(t, "John", john.CanonicalName)
	assert.Equal(t, "PERSON", john.Type)
	assert.Equal(t, merged.RID, john.DocumentRID)
	require.Len(t, john.MentionIDs, 2)
	he := mentions.Mention(john.MentionIDs[1])
	require.NotNil(t, he)
	assert.Equal(t, merged.Sections[0].Sentences[1].Tokenization.ID, he.Tokens.TokenizationID)
	assert.Equal(t, []int{0}, he.Tokens.TokenIndices)
	assert.True(t, model.HasEntities(merged))
	assert.Empty(t, doc.MentionSets, "Input document should not get mention sets")
}

func TestEngineConcurrentMerges(t *testing.T) {
	engine := NewEngine(model.DefaultMergeConfig(), testLogger())

	var wg sync.WaitGroup
	errs := make([]error, 8)
	results := make([]*model.Document, 8)
	for i := range errs {
		doc := testDocument(fmt.Sprintf("Doc %d.", i))
		ann := &model.DocumentAnnotation{Sections: [][]*model.AnnotatedSentence{
			annotateSection(t, doc.Text, []string{"Doc", fmt.Sprint(i), "."}),
		}}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.Merge(doc, ann)
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("Doc %d .\n\n", i), results[i].ProcessedText)
	}
}
