package merge

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
)

// ResolveCoref converts the coreference chains of table into one mention set
// and one entity set. tokenizations are the document's tokenizations in
// section and sentence order; mention sentence numbers index into them.
// A nil table gives an empty pair.
func ResolveCoref(tokenizations []*model.Tokenization, table model.CorefTable, tool string, logger *slog.Logger) (*model.MentionSet, *model.EntitySet, error) {
	mentionSet := &model.MentionSet{
		ID:       uuid.New(),
		Tool:     tool,
		Mentions: []model.EntityMention{},
	}
	entitySet := &model.EntitySet{
		ID:           uuid.New(),
		Tool:         tool,
		MentionSetID: mentionSet.ID,
		Entities:     []model.Entity{},
	}

	chainIDs := make([]int, 0, len(table))
	for id := range table {
		chainIDs = append(chainIDs, id)
	}
	sort.Ints(chainIDs)

	for _, chainID := range chainIDs {
		chain := table[chainID]
		if chain == nil || len(chain.Mentions) == 0 {
			logger.Warn("Skipping coreference chain without mentions", slog.Int("chain", chainID))
			continue
		}

		mentions, entity, err := resolveChain(tokenizations, chain, logger)
		if err != nil {
			return nil, nil, helper.NewError(fmt.Sprintf("chain %d", chainID), err)
		}
		mentionSet.Mentions = append(mentionSet.Mentions, mentions...)
		entitySet.Entities = append(entitySet.Entities, entity)
	}

	return mentionSet, entitySet, nil
}

// resolveChain builds the representative mention first, then the remaining
// mentions in textual order.
func resolveChain(tokenizations []*model.Tokenization, chain *model.CorefChain, logger *slog.Logger) ([]model.EntityMention, model.Entity, error) {
	ordered := append([]model.CorefMention{}, chain.Mentions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.SentNum != b.SentNum {
			return a.SentNum < b.SentNum
		}
		if a.StartIndex != b.StartIndex {
			return a.StartIndex < b.StartIndex
		}
		return a.EndIndex < b.EndIndex
	})

	representative := ordered[0]
	if chain.Representative != nil {
		representative = *chain.Representative
	}

	head, err := buildMention(tokenizations, representative, true, logger)
	if err != nil {
		return nil, model.Entity{}, helper.NewError("representative", err)
	}
	mentions := []model.EntityMention{head}
	entity := model.Entity{
		ID:            uuid.New(),
		CanonicalName: head.Text,
		Type:          representative.EntityType,
		MentionIDs:    []uuid.UUID{head.ID},
	}

	skipped := false
	for i, m := range ordered {
		if !skipped && m.SamePosition(representative) {
			skipped = true
			continue
		}
		mention, err := buildMention(tokenizations, m, false, logger)
		if err != nil {
			return nil, model.Entity{}, helper.NewError(fmt.Sprintf("mention %d", i), err)
		}
		mentions = append(mentions, mention)
		entity.MentionIDs = append(entity.MentionIDs, mention.ID)
	}

	return mentions, entity, nil
}

// buildMention converts the 1-based token range of m into token indices of
// its sentence's tokenization. An empty range gives a mention without
// indices and a warning. Only the representative gets an anchor.
func buildMention(tokenizations []*model.Tokenization, m model.CorefMention, representative bool, logger *slog.Logger) (model.EntityMention, error) {
	sentence := m.SentNum - 1
	if sentence < 0 || sentence >= len(tokenizations) {
		return model.EntityMention{}, helper.NewMergeError(
			helper.KindOutOfRangeSentence,
			"sentence %d outside 1..%d", m.SentNum, len(tokenizations),
		)
	}
	tokenization := tokenizations[sentence]

	start, end, head := m.StartIndex-1, m.EndIndex-1, m.HeadIndex-1
	if end < start {
		return model.EntityMention{}, helper.NewMergeError(helper.KindInvalidMention, "end %d before start %d", m.EndIndex, m.StartIndex)
	}

	indices := make([]int, 0, end-start)
	var anchor *int
	if end == start {
		logger.Warn(
			"Empty coreference mention",
			slog.Int("sentence", m.SentNum),
			slog.Int("start", m.StartIndex),
			slog.String("text", m.Text),
		)
		if representative && head >= 0 && head < len(tokenization.Tokens) {
			anchor = &head
		}
	} else {
		for i := start; i < end; i++ {
			indices = append(indices, i)
		}
		if representative && head >= start && head < end {
			anchor = &head
		}
	}

	if missing, ok := tokenization.MissingIndex(indices); ok {
		return model.EntityMention{}, helper.NewMergeError(
			helper.KindSubsetViolation,
			"token index %d not in tokenization %v of %d tokens", missing, tokenization.ID, len(tokenization.Tokens),
		)
	}

	text := m.Text
	if text == "" {
		text = joinTokens(tokenization, indices)
	}

	return model.EntityMention{
		ID: uuid.New(),
		Tokens: model.TokenRefSequence{
			TokenizationID: tokenization.ID,
			TokenIndices:   indices,
			AnchorIndex:    anchor,
		},
		Text:       text,
		PhraseType: m.MentionType,
		EntityType: m.EntityType,
	}, nil
}

func joinTokens(tokenization *model.Tokenization, indices []int) string {
	wanted := make(map[int]bool, len(indices))
	for _, i := range indices {
		wanted[i] = true
	}
	texts := make([]string, 0, len(indices))
	for _, token := range tokenization.Tokens {
		if wanted[token.Index] {
			texts = append(texts, token.Text)
		}
	}
	return strings.Join(texts, " ")
}
