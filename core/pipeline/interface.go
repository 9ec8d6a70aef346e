package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/siherrmann/annomerge/core/merge"
	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
)

// AnnotateFunc tokenizes and sentence-splits the text of one section.
// Original offsets of the returned tokens are relative to text.
type AnnotateFunc func(ctx context.Context, text string) ([]*model.AnnotatedSentence, error)

// TagFunc adds tag values to the tokens of the sentences of one section.
// text is the section text the token offsets refer to.
type TagFunc func(text string, sentences []*model.AnnotatedSentence) error

// CorefFunc resolves coreference over all annotated sentences of a document
// in document order. Mention sentence numbers are 1-based positions in sentences.
type CorefFunc func(sentences []*model.AnnotatedSentence) (model.CorefTable, error)

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(text string) ([]float32, error)

// Pipeline combines the external annotation steps run before a merge
type Pipeline struct {
	Annotator     AnnotateFunc
	Taggers       []TagFunc          // Optional
	CorefResolver CorefFunc          // Optional
	HeadFinder    merge.HeadFindFunc // Optional - rightmost child is used without one
	Embedder      EmbedFunc          // Optional - embeds canonical entity names
}

// NewPipeline creates a new annotation pipeline
func NewPipeline(annotator AnnotateFunc) *Pipeline {
	return &Pipeline{
		Annotator: annotator,
	}
}

// SetTagger adds a tagger. Taggers run in the order they were added.
func (p *Pipeline) SetTagger(tagger TagFunc) {
	p.Taggers = append(p.Taggers, tagger)
}

// SetCorefResolver sets the coreference resolver
func (p *Pipeline) SetCorefResolver(resolver CorefFunc) {
	p.CorefResolver = resolver
}

// SetHeadFinder sets the head finder handed to the merge engine
func (p *Pipeline) SetHeadFinder(headFinder merge.HeadFindFunc) {
	p.HeadFinder = headFinder
}

// SetEmbedder sets the embedding function
func (p *Pipeline) SetEmbedder(embedder EmbedFunc) {
	p.Embedder = embedder
}

// Annotate runs the annotator and taggers over every section the merge
// engine keeps and the coreference resolver over all resulting sentences.
// Sections whose sentences are all tokenized are not annotated; coreference
// is then skipped as well, since sentence numbers would not match.
func (p *Pipeline) Annotate(ctx context.Context, doc *model.Document) (*model.DocumentAnnotation, error) {
	if p.Annotator == nil {
		return nil, errors.New("pipeline has no annotator")
	}

	kept, err := merge.KeptSections(doc)
	if err != nil {
		return nil, helper.NewError("sections", err)
	}

	ann := &model.DocumentAnnotation{
		Sections: make([][]*model.AnnotatedSentence, len(doc.Sections)),
	}
	var sentences []*model.AnnotatedSentence
	complete := true
	for _, i := range kept {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		section := doc.Sections[i]
		if isTokenized(section) {
			complete = false
			continue
		}

		text := doc.Text[section.RawSpan.Start:section.RawSpan.End]
		annotated, err := p.Annotator(ctx, text)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("annotate section %d", i), err)
		}
		for _, tagger := range p.Taggers {
			if err := tagger(text, annotated); err != nil {
				return nil, helper.NewError(fmt.Sprintf("tag section %d", i), err)
			}
		}

		ann.Sections[i] = annotated
		sentences = append(sentences, annotated...)
	}

	if p.CorefResolver != nil && complete {
		table, err := p.CorefResolver(sentences)
		if err != nil {
			return nil, helper.NewError("coreference", err)
		}
		ann.Coref = table
	}

	return ann, nil
}

func isTokenized(section *model.Section) bool {
	if len(section.Sentences) == 0 {
		return false
	}
	for _, sentence := range section.Sentences {
		if !sentence.IsTokenized() {
			return false
		}
	}
	return true
}
