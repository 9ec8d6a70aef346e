package merge

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
)

// ValidateDocument checks a merged document: token spans against both texts,
// dense token indices, constituent ranges, dependency indices and the token
// indices of every mention. With verifyRawText unset raw spans are only
// bounds-checked.
func ValidateDocument(doc *model.Document, verifyRawText bool) error {
	tokenizations := map[uuid.UUID]*model.Tokenization{}
	for i, section := range doc.Sections {
		if section == nil {
			return helper.NewMergeError(helper.KindMissingAnnotation, "section %d is nil", i)
		}
		for j, sentence := range section.Sentences {
			if !sentence.IsTokenized() {
				return helper.NewMergeError(helper.KindMissingAnnotation, "section %d sentence %d has no tokenization", i, j)
			}
			if err := validateTokenization(doc, sentence.Tokenization, verifyRawText); err != nil {
				return helper.NewError(fmt.Sprintf("section %d sentence %d", i, j), err)
			}
			tokenizations[sentence.Tokenization.ID] = sentence.Tokenization
		}
	}

	for _, mentionSet := range doc.MentionSets {
		for _, mention := range mentionSet.Mentions {
			tokenization, ok := tokenizations[mention.Tokens.TokenizationID]
			if !ok {
				return helper.NewMergeError(helper.KindSubsetViolation, "mention %v references unknown tokenization %v", mention.ID, mention.Tokens.TokenizationID)
			}
			if missing, ok := tokenization.MissingIndex(mention.Tokens.TokenIndices); ok {
				return helper.NewMergeError(helper.KindSubsetViolation, "mention %v references token %d of tokenization %v", mention.ID, missing, tokenization.ID)
			}
			if anchor := mention.Tokens.AnchorIndex; anchor != nil {
				if _, ok := tokenization.MissingIndex([]int{*anchor}); ok {
					return helper.NewMergeError(helper.KindSubsetViolation, "mention %v anchors token %d of tokenization %v", mention.ID, *anchor, tokenization.ID)
				}
			}
		}
	}

	for _, entitySet := range doc.EntitySets {
		var mentionSet *model.MentionSet
		for _, candidate := range doc.MentionSets {
			if candidate.ID == entitySet.MentionSetID {
				mentionSet = candidate
			}
		}
		if mentionSet == nil {
			return helper.NewMergeError(helper.KindInvalidMention, "entity set %v references unknown mention set %v", entitySet.ID, entitySet.MentionSetID)
		}
		for _, entity := range entitySet.Entities {
			for _, id := range entity.MentionIDs {
				if mentionSet.Mention(id) == nil {
					return helper.NewMergeError(helper.KindInvalidMention, "entity %v references unknown mention %v", entity.ID, id)
				}
			}
		}
	}

	return nil
}

func validateTokenization(doc *model.Document, tokenization *model.Tokenization, verifyRawText bool) error {
	for i, token := range tokenization.Tokens {
		if token.Index != i {
			return helper.NewMergeError(helper.KindInvalidSpan, "token at position %d has index %d", i, token.Index)
		}
		raw, err := token.RawSpan.Slice(doc.Text)
		if err != nil {
			return helper.NewError(fmt.Sprintf("token %d raw span", i), err)
		}
		if verifyRawText && raw != token.Text {
			return helper.NewMergeError(helper.KindInvalidSpan, "token %d raw text %q, token is %q", i, raw, token.Text)
		}
		processed, err := token.ProcessedSpan.Slice(doc.ProcessedText)
		if err != nil {
			return helper.NewError(fmt.Sprintf("token %d processed span", i), err)
		}
		if processed != token.Text {
			return helper.NewMergeError(helper.KindOffsetReconciliationFailure, "token %d processed text %q, token is %q", i, processed, token.Text)
		}
	}

	if tokenization.Parse != nil {
		if err := validateParse(tokenization.Parse, len(tokenization.Tokens)); err != nil {
			return helper.NewError("parse", err)
		}
	}

	for _, dependencies := range tokenization.DependencyParses {
		for _, edge := range dependencies.Edges {
			if edge.Dependent < 0 || edge.Dependent >= len(tokenization.Tokens) {
				return helper.NewMergeError(helper.KindInvalidSpan, "%s dependent %d out of range", dependencies.Variant, edge.Dependent)
			}
			if edge.Governor != nil && (*edge.Governor < 0 || *edge.Governor >= len(tokenization.Tokens)) {
				return helper.NewMergeError(helper.KindInvalidSpan, "%s governor %d out of range", dependencies.Variant, *edge.Governor)
			}
		}
	}

	return nil
}

// validateParse checks that the root spans all tokens and every constituent
// is exactly covered by its children, left to right.
func validateParse(parse *model.Parse, tokenCount int) error {
	if len(parse.Constituents) == 0 {
		return nil
	}
	root := parse.Constituents[0]
	if root.Start != 0 || root.End != tokenCount {
		return helper.NewMergeError(helper.KindLeafCountMismatch, "root spans [%d, %d) of %d tokens", root.Start, root.End, tokenCount)
	}

	for i, c := range parse.Constituents {
		if c.ID != i {
			return helper.NewMergeError(helper.KindInvalidSpan, "constituent at position %d has id %d", i, c.ID)
		}
		if len(c.Children) == 0 {
			if c.End-c.Start != 1 {
				return helper.NewMergeError(helper.KindLeafCountMismatch, "leaf %d spans %d tokens", c.ID, c.End-c.Start)
			}
			continue
		}

		next := c.Start
		for _, childID := range c.Children {
			if childID <= c.ID || childID >= len(parse.Constituents) {
				return helper.NewMergeError(helper.KindInvalidSpan, "constituent %d has child %d", c.ID, childID)
			}
			child := parse.Constituents[childID]
			if child.Start != next {
				return helper.NewMergeError(helper.KindLeafCountMismatch, "constituent %d child %d starts at %d, expected %d", c.ID, childID, child.Start, next)
			}
			next = child.End
		}
		if next != c.End {
			return helper.NewMergeError(helper.KindLeafCountMismatch, "constituent %d children end at %d, expected %d", c.ID, next, c.End)
		}
		if c.HeadChildIndex != nil && (*c.HeadChildIndex < 0 || *c.HeadChildIndex >= len(c.Children)) {
			return helper.NewMergeError(helper.KindInvalidSpan, "constituent %d head %d of %d children", c.ID, *c.HeadChildIndex, len(c.Children))
		}
	}

	return nil
}
