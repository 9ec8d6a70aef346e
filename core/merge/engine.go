package merge

import (
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
)

// Engine merges external annotations into canonical documents.
// An Engine keeps no state between merges and can be shared between
// goroutines merging different documents.
type Engine struct {
	config   model.MergeConfig
	headFind HeadFindFunc
	log      *slog.Logger
}

// NewEngine creates an engine with the given configuration and logger.
func NewEngine(config model.MergeConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		config: config,
		log:    logger,
	}
}

// SetHeadFinder sets the head finder used for constituency parses.
// Without one the rightmost child is the head of every constituent.
func (e *Engine) SetHeadFinder(headFind HeadFindFunc) {
	e.headFind = headFind
}

// Config returns the engine's merge configuration.
func (e *Engine) Config() model.MergeConfig {
	return e.config
}

// Merge merges ann into a copy of doc and returns the copy. doc is never
// modified. Sections whose span is empty or whose text is whitespace are
// dropped. ann.Sections is indexed like doc.Sections. On error no document
// is returned and the error carries the document id.
func (e *Engine) Merge(doc *model.Document, ann *model.DocumentAnnotation) (*model.Document, error) {
	if doc == nil {
		return nil, helper.NewMergeError(helper.KindMissingAnnotation, "no document")
	}

	merged, err := e.merge(doc, ann)
	if err != nil {
		return nil, helper.WithDocument(err, doc.DocID)
	}
	return merged, nil
}

func (e *Engine) merge(doc *model.Document, ann *model.DocumentAnnotation) (*model.Document, error) {
	out := doc.Clone()

	kept, err := KeptSections(out)
	if err != nil {
		return nil, err
	}
	if dropped := len(out.Sections) - len(kept); dropped > 0 {
		e.log.Warn("Dropped empty sections", slog.String("document", doc.DocID), slog.Int("count", dropped))
	}

	sections := make([]*model.Section, 0, len(kept))
	var processed strings.Builder
	for _, i := range kept {
		section := out.Sections[i]
		var annotated []*model.AnnotatedSentence
		if ann != nil && i < len(ann.Sections) {
			annotated = ann.Sections[i]
		}

		text, err := e.mergeSection(out.Text, section, annotated, processed.Len())
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("section %d", i), err)
		}
		processed.WriteString(text)
		processed.WriteString(sectionSeparator)
		sections = append(sections, section)
	}
	out.Sections = sections
	out.ProcessedText = processed.String()

	var table model.CorefTable
	if ann != nil {
		table = ann.Coref
	}
	mentions, entities, err := ResolveCoref(out.Tokenizations(), table, e.config.Tool, e.log)
	if err != nil {
		return nil, helper.NewError("coreference", err)
	}
	for i := range entities.Entities {
		entities.Entities[i].DocumentRID = out.RID
	}
	out.MentionSets = append(append([]*model.MentionSet{}, doc.MentionSets...), mentions)
	out.EntitySets = append(append([]*model.EntitySet{}, doc.EntitySets...), entities)

	if e.config.Validate {
		if err := ValidateDocument(out, e.config.VerifyRawText); err != nil {
			return nil, helper.NewError("validate", err)
		}
	}

	return out, nil
}

// KeptSections returns the positions of the sections of doc that are merged.
// Sections with a zero-width span or whitespace-only text are left out.
func KeptSections(doc *model.Document) ([]int, error) {
	kept := make([]int, 0, len(doc.Sections))
	for i, section := range doc.Sections {
		if section == nil || section.RawSpan.IsEmpty() {
			continue
		}
		text, err := section.RawSpan.Slice(doc.Text)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("section %d", i), err)
		}
		if IsBlank(text) {
			continue
		}
		kept = append(kept, i)
	}
	return kept, nil
}

// IsBlank reports whether text is empty or whitespace once HTML entities
// such as &nbsp; are decoded.
func IsBlank(text string) bool {
	return strings.TrimSpace(html.UnescapeString(text)) == ""
}
