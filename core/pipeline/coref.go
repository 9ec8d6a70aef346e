package pipeline

import (
	"strings"

	"github.com/siherrmann/annomerge/model"
)

// StringMatchCoref creates a coreference resolver that chains named entity
// mentions with the same type and the same case-insensitive surface text.
// A mention is a maximal run of tokens sharing one NER value other than
// OutsideTag. The chain's first mention is its representative.
func StringMatchCoref() CorefFunc {
	return func(sentences []*model.AnnotatedSentence) (model.CorefTable, error) {
		table := model.CorefTable{}
		chains := map[string]*model.CorefChain{}

		for s, sentence := range sentences {
			if sentence == nil {
				continue
			}
			for _, mention := range entityMentions(sentence, s+1) {
				key := mention.EntityType + "\x00" + strings.ToLower(mention.Text)
				chain, ok := chains[key]
				if !ok {
					chain = &model.CorefChain{ID: len(table) + 1}
					chains[key] = chain
					table[chain.ID] = chain
				}
				chain.Mentions = append(chain.Mentions, mention)
			}
		}

		return table, nil
	}
}

// entityMentions returns the NER runs of sentence with 1-based token positions.
func entityMentions(sentence *model.AnnotatedSentence, sentNum int) []model.CorefMention {
	var mentions []model.CorefMention
	start := -1
	tag := ""

	closeRun := func(end int) {
		if start < 0 {
			return
		}
		words := make([]string, 0, end-start)
		for _, token := range sentence.Tokens[start:end] {
			words = append(words, token.Text)
		}
		mentions = append(mentions, model.CorefMention{
			SentNum:     sentNum,
			StartIndex:  start + 1,
			EndIndex:    end + 1,
			HeadIndex:   end,
			Text:        strings.Join(words, " "),
			MentionType: "PROPER",
			EntityType:  tag,
		})
		start = -1
	}

	for i, token := range sentence.Tokens {
		value := OutsideTag
		if token != nil {
			if v, ok := token.Tag(model.TaggingNER); ok {
				value = v
			}
		}
		if start >= 0 && value != tag {
			closeRun(i)
		}
		if value != OutsideTag && start < 0 {
			start = i
			tag = value
		}
	}
	closeRun(len(sentence.Tokens))

	return mentions
}
