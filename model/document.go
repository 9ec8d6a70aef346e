package model

import (
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Sentence is one sentence of a section. RawSpan and ProcessedSpan are
// optional on input and always set on merged output.
type Sentence struct {
	ID            uuid.UUID     `json:"id"`
	RawSpan       *TextSpan     `json:"raw_span,omitempty"`
	ProcessedSpan *TextSpan     `json:"processed_span,omitempty"`
	Tokenization  *Tokenization `json:"tokenization,omitempty"`
}

// IsTokenized reports whether the sentence already carries a tokenization.
func (s *Sentence) IsTokenized() bool {
	return s != nil && s.Tokenization != nil
}

// Clone returns a deep copy. A nil sentence clones to nil.
func (s *Sentence) Clone() *Sentence {
	if s == nil {
		return nil
	}
	c := &Sentence{
		ID:           s.ID,
		Tokenization: s.Tokenization.Clone(),
	}
	if s.RawSpan != nil {
		span := *s.RawSpan
		c.RawSpan = &span
	}
	if s.ProcessedSpan != nil {
		span := *s.ProcessedSpan
		c.ProcessedSpan = &span
	}
	return c
}

// Section is a contiguous part of the document text.
type Section struct {
	ID            uuid.UUID   `json:"id"`
	Kind          string      `json:"kind,omitempty"`
	Label         string      `json:"label,omitempty"`
	RawSpan       TextSpan    `json:"raw_span"`
	ProcessedSpan *TextSpan   `json:"processed_span,omitempty"`
	Sentences     []*Sentence `json:"sentences,omitempty"`
}

// Clone returns a deep copy. A nil section clones to nil.
func (s *Section) Clone() *Section {
	if s == nil {
		return nil
	}
	c := &Section{
		ID:      s.ID,
		Kind:    s.Kind,
		Label:   s.Label,
		RawSpan: s.RawSpan,
	}
	if s.ProcessedSpan != nil {
		span := *s.ProcessedSpan
		c.ProcessedSpan = &span
	}
	for _, sentence := range s.Sentences {
		c.Sentences = append(c.Sentences, sentence.Clone())
	}
	return c
}

// Document is the canonical document. Text is the untouched original text,
// ProcessedText the normalized text rebuilt during a merge.
type Document struct {
	ID            int64         `json:"id"`
	RID           uuid.UUID     `json:"rid"`
	DocID         string        `json:"doc_id"`
	Title         string        `json:"title"`
	Source        string        `json:"source,omitempty"`
	Text          string        `json:"text"`
	ProcessedText string        `json:"processed_text,omitempty"`
	Sections      []*Section    `json:"sections,omitempty"`
	MentionSets   []*MentionSet `json:"mention_sets,omitempty"`
	EntitySets    []*EntitySet  `json:"entity_sets,omitempty"`
	Metadata      Metadata      `json:"metadata,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// NewDocumentFromFile reads a file and creates a Document with one section
// per paragraph. The title defaults to the filename, and source to the file path.
func NewDocumentFromFile(filePath string, metadata Metadata) (*Document, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(filePath)
	title := filename[:len(filename)-len(filepath.Ext(filename))]
	if title == "" {
		title = filename
	}

	doc := &Document{
		RID:      uuid.New(),
		DocID:    title,
		Title:    title,
		Source:   filePath,
		Text:     string(content),
		Metadata: metadata,
	}
	doc.Sections = SectionsFromParagraphs(doc.Text)

	return doc, nil
}

// SectionsFromParagraphs creates one bare section per blank-line separated
// paragraph of text.
func SectionsFromParagraphs(text string) []*Section {
	var sections []*Section
	start := 0
	for _, brk := range paragraphBreak.FindAllStringIndex(text, -1) {
		if brk[0] > start {
			sections = append(sections, &Section{ID: uuid.New(), Kind: "passage", RawSpan: TextSpan{Start: start, End: brk[0]}})
		}
		start = brk[1]
	}
	if start < len(text) {
		sections = append(sections, &Section{ID: uuid.New(), Kind: "passage", RawSpan: TextSpan{Start: start, End: len(text)}})
	}
	return sections
}

// Clone returns a deep copy of the document without its mention and entity
// sets. Nil sections stay in place so section positions are kept.
func (d *Document) Clone() *Document {
	c := *d
	c.Sections = nil
	c.MentionSets = nil
	c.EntitySets = nil
	for _, section := range d.Sections {
		c.Sections = append(c.Sections, section.Clone())
	}
	return &c
}

// Tokenizations returns the tokenizations of all sentences in section and
// sentence order.
func (d *Document) Tokenizations() []*Tokenization {
	var tokenizations []*Tokenization
	for _, section := range d.Sections {
		if section == nil {
			continue
		}
		for _, sentence := range section.Sentences {
			if sentence.IsTokenized() {
				tokenizations = append(tokenizations, sentence.Tokenization)
			}
		}
	}
	return tokenizations
}

// HasSections reports whether the document has at least one section.
func HasSections(d *Document) bool {
	return d != nil && len(d.Sections) > 0
}

// HasSentences reports whether every section has at least one sentence.
func HasSentences(d *Document) bool {
	if !HasSections(d) {
		return false
	}
	for _, section := range d.Sections {
		if section == nil || len(section.Sentences) == 0 {
			return false
		}
	}
	return true
}

// HasTokenizations reports whether every sentence carries a tokenization.
func HasTokenizations(d *Document) bool {
	return everySentence(d, func(s *Sentence) bool { return s.Tokenization != nil })
}

// HasTaggings reports whether every tokenization carries a tagging of kind.
func HasTaggings(d *Document, kind TaggingKind) bool {
	return everySentence(d, func(s *Sentence) bool {
		return s.Tokenization != nil && s.Tokenization.Tagging(kind) != nil
	})
}

// HasParses reports whether every tokenization carries a constituency parse.
func HasParses(d *Document) bool {
	return everySentence(d, func(s *Sentence) bool {
		return s.Tokenization != nil && s.Tokenization.Parse != nil
	})
}

// HasDependencyParses reports whether every tokenization carries at least one dependency parse.
func HasDependencyParses(d *Document) bool {
	return everySentence(d, func(s *Sentence) bool {
		return s.Tokenization != nil && len(s.Tokenization.DependencyParses) > 0
	})
}

// HasMentions reports whether the document has a mention set.
func HasMentions(d *Document) bool {
	return d != nil && len(d.MentionSets) > 0
}

// HasEntities reports whether the document has an entity set.
func HasEntities(d *Document) bool {
	return d != nil && len(d.EntitySets) > 0
}

func everySentence(d *Document, ok func(*Sentence) bool) bool {
	if !HasSentences(d) {
		return false
	}
	for _, section := range d.Sections {
		for _, sentence := range section.Sentences {
			if sentence == nil || !ok(sentence) {
				return false
			}
		}
	}
	return true
}
