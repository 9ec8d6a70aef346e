package merge

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/siherrmann/annomerge/model"
)

// BuildTaggings builds one tagging per requested kind in a single scan over
// the tokens. Tokens without a value for a kind are left out of its tagging.
func BuildTaggings(tokens []*model.AnnotatedToken, kinds []model.TaggingKind, logger *slog.Logger) []model.TokenTagging {
	kinds = uniqueKinds(kinds)
	taggings := make([]model.TokenTagging, len(kinds))
	for i, kind := range kinds {
		taggings[i] = model.TokenTagging{
			ID:     uuid.New(),
			Kind:   kind,
			Tagged: []model.TaggedToken{},
		}
	}

	for index, token := range tokens {
		if token == nil {
			continue
		}
		for i, kind := range kinds {
			if value, ok := token.Tag(kind); ok {
				taggings[i].Tagged = append(taggings[i].Tagged, model.TaggedToken{TokenIndex: index, Tag: value})
			}
		}
	}

	for _, tagging := range taggings {
		if len(tagging.Tagged) != len(tokens) {
			logger.Warn(
				"Tagging does not cover every token",
				slog.String("kind", tagging.Kind.String()),
				slog.Int("tagged", len(tagging.Tagged)),
				slog.Int("tokens", len(tokens)),
			)
		}
	}

	return taggings
}

func uniqueKinds(kinds []model.TaggingKind) []model.TaggingKind {
	seen := make(map[model.TaggingKind]bool, len(kinds))
	unique := make([]model.TaggingKind, 0, len(kinds))
	for _, kind := range kinds {
		if !seen[kind] {
			seen[kind] = true
			unique = append(unique, kind)
		}
	}
	return unique
}
