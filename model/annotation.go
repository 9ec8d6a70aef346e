package model

// AnnotatedToken is a token as returned by the external annotator.
// Begin/End are sentence-local, OriginalBegin/OriginalEnd are offsets into
// the text handed to the annotator before any normalization.
type AnnotatedToken struct {
	Text          string  `json:"text"`
	Begin         int     `json:"begin"`
	End           int     `json:"end"`
	OriginalBegin *int    `json:"original_begin,omitempty"`
	OriginalEnd   *int    `json:"original_end,omitempty"`
	POS           *string `json:"pos,omitempty"`
	NER           *string `json:"ner,omitempty"`
	Lemma         *string `json:"lemma,omitempty"`
}

// Tag returns the value the annotator assigned for kind, if any.
func (t *AnnotatedToken) Tag(kind TaggingKind) (string, bool) {
	var value *string
	switch kind {
	case TaggingPOS:
		value = t.POS
	case TaggingNER:
		value = t.NER
	case TaggingLemma:
		value = t.Lemma
	}
	if value == nil {
		return "", false
	}
	return *value, true
}

// SetTag assigns value for kind.
func (t *AnnotatedToken) SetTag(kind TaggingKind, value string) {
	switch kind {
	case TaggingPOS:
		t.POS = &value
	case TaggingNER:
		t.NER = &value
	case TaggingLemma:
		t.Lemma = &value
	}
}

// Tree is a constituency tree. Leaves have no children.
type Tree struct {
	Label    string  `json:"label"`
	Children []*Tree `json:"children,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (t *Tree) IsLeaf() bool {
	return len(t.Children) == 0
}

// LeafCount counts the leaves under the node.
func (t *Tree) LeafCount() int {
	if t == nil {
		return 0
	}
	if t.IsLeaf() {
		return 1
	}
	n := 0
	for _, child := range t.Children {
		n += child.LeafCount()
	}
	return n
}

// DependencyArc is an edge between 1-based token positions.
type DependencyArc struct {
	Source   int    `json:"source"`
	Target   int    `json:"target"`
	Relation string `json:"relation"`
}

// DependencyGraph is one dependency representation of a sentence with
// 1-based node indices.
type DependencyGraph struct {
	Roots []int           `json:"roots"`
	Arcs  []DependencyArc `json:"arcs"`
}

// AnnotatedSentence is one sentence as returned by the external annotator.
type AnnotatedSentence struct {
	Tokens       []*AnnotatedToken                      `json:"tokens"`
	Tree         *Tree                                  `json:"tree,omitempty"`
	Dependencies map[DependencyVariant]*DependencyGraph `json:"dependencies,omitempty"`
}

// CorefMention is a mention as reported by the coreference resolver.
// SentNum, StartIndex, EndIndex and HeadIndex are 1-based; EndIndex is exclusive.
type CorefMention struct {
	SentNum     int    `json:"sent_num"`
	StartIndex  int    `json:"start_index"`
	EndIndex    int    `json:"end_index"`
	HeadIndex   int    `json:"head_index"`
	Text        string `json:"text"`
	MentionType string `json:"mention_type,omitempty"`
	EntityType  string `json:"entity_type,omitempty"`
}

// SamePosition reports whether both mentions cover the same tokens.
func (m CorefMention) SamePosition(o CorefMention) bool {
	return m.SentNum == o.SentNum && m.StartIndex == o.StartIndex && m.EndIndex == o.EndIndex && m.HeadIndex == o.HeadIndex
}

// CorefChain is one coreference chain. If Representative is nil the first
// mention in textual order represents the chain.
type CorefChain struct {
	ID             int            `json:"id"`
	Representative *CorefMention  `json:"representative,omitempty"`
	Mentions       []CorefMention `json:"mentions"`
}

// CorefTable maps chain ids to chains.
type CorefTable map[int]*CorefChain

// DocumentAnnotation is everything the annotator produced for one document.
// Sections is aligned with Document.Sections; entries of sections dropped
// before merging are ignored.
type DocumentAnnotation struct {
	Sections [][]*AnnotatedSentence `json:"sections"`
	Coref    CorefTable             `json:"coref,omitempty"`
}
