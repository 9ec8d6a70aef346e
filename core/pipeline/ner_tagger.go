package pipeline

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
)

// OutsideTag is the NER value of tokens outside every entity.
const OutsideTag = "O"

// EntitySpan is an entity found by a token classification model.
// Start and End are byte offsets into the classified text.
type EntitySpan struct {
	Label string
	Start int
	End   int
	Score float32
}

// DefaultNERTagger creates a tagger using a NER model
// Uses distilbert-NER for named entity recognition
// Detects: PER, ORG, LOC, MISC entities
func DefaultNERTagger() (TagFunc, error) {
	// Using KnightsAnalytics optimized distilbert-NER model
	modelName := "KnightsAnalytics/distilbert-NER"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-tagger",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{OutsideTag}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return func(text string, sentences []*model.AnnotatedSentence) error {
		if strings.TrimSpace(text) == "" {
			return nil
		}

		result, err := nerPipeline.RunPipeline([]string{text})
		if err != nil {
			return fmt.Errorf("failed to run NER: %w", err)
		}

		var spans []EntitySpan
		if len(result.Entities) > 0 {
			for _, entity := range result.Entities[0] {
				spans = append(spans, EntitySpan{
					Label: normalizeEntityType(entity.Entity),
					Start: int(entity.Start),
					End:   int(entity.End),
					Score: entity.Score,
				})
			}
		}

		AssignEntityTags(sentences, spans)
		return nil
	}, nil
}

// AssignEntityTags sets the NER value of every token with original offsets
// to the label of the first span overlapping it, or OutsideTag.
func AssignEntityTags(sentences []*model.AnnotatedSentence, spans []EntitySpan) {
	for _, sentence := range sentences {
		if sentence == nil {
			continue
		}
		for _, token := range sentence.Tokens {
			if token == nil || token.OriginalBegin == nil || token.OriginalEnd == nil {
				continue
			}
			tag := OutsideTag
			for _, span := range spans {
				if span.Start < *token.OriginalEnd && *token.OriginalBegin < span.End {
					tag = span.Label
					break
				}
			}
			token.SetTag(model.TaggingNER, tag)
		}
	}
}

// normalizeEntityType removes B- and I- prefixes from NER labels
func normalizeEntityType(label string) string {
	if strings.HasPrefix(label, "B-") || strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}
