package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/annomerge/core/merge"
	"github.com/siherrmann/annomerge/core/pipeline"
	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
)

const sampleText = `Ada Lovelace wrote notes on the engine. Ada Lovelace is remembered today.

Charles Babbage designed it.`

// personTagger marks the two names of the sample text as persons
func personTagger(text string, sentences []*model.AnnotatedSentence) error {
	var spans []pipeline.EntitySpan
	for _, name := range []string{"Ada Lovelace", "Charles Babbage"} {
		for offset := 0; offset < len(text); {
			i := strings.Index(text[offset:], name)
			if i < 0 {
				break
			}
			spans = append(spans, pipeline.EntitySpan{Label: "PER", Start: offset + i, End: offset + i + len(name)})
			offset += i + len(name)
		}
	}
	pipeline.AssignEntityTags(sentences, spans)
	return nil
}

func main() {
	logger := helper.NewPrettyLogger(os.Stdout, slog.LevelInfo)

	doc := &model.Document{
		RID:      uuid.New(),
		DocID:    "lovelace",
		Title:    "Analytical Engine",
		Text:     sampleText,
		Sections: model.SectionsFromParagraphs(sampleText),
	}

	p := pipeline.NewPipeline(pipeline.RuleAnnotator())
	p.SetTagger(personTagger)
	p.SetCorefResolver(pipeline.StringMatchCoref())

	ann, err := p.Annotate(context.Background(), doc)
	if err != nil {
		log.Fatalf("Failed to annotate document: %v", err)
	}

	config := model.DefaultMergeConfig()
	config.Validate = true
	engine := merge.NewEngine(config, logger)

	merged, err := engine.Merge(doc, ann)
	if err != nil {
		kind, _ := helper.KindOf(err)
		log.Fatalf("Failed to merge document (%s): %v", kind, err)
	}

	fmt.Printf("Processed text:\n%s", merged.ProcessedText)

	for i, section := range merged.Sections {
		fmt.Printf("\n--- Section %d (raw %v, processed %v) ---\n", i+1, section.RawSpan, *section.ProcessedSpan)
		for _, sentence := range section.Sentences {
			tagging := sentence.Tokenization.Tagging(model.TaggingNER)
			for _, token := range sentence.Tokenization.Tokens {
				tag, _ := tagging.Tag(token.Index)
				fmt.Printf("%-10s raw %-8v processed %-8v %s\n", token.Text, token.RawSpan, token.ProcessedSpan, tag)
			}
		}
	}

	fmt.Println("\nEntities:")
	for _, entity := range merged.EntitySets[0].Entities {
		fmt.Printf("- %s (%s), %d mentions\n", entity.CanonicalName, entity.Type, len(entity.MentionIDs))
	}

	fmt.Println("\nBasic example completed successfully!")
}
