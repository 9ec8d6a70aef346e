package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenRefSequence points at tokens of one tokenization.
type TokenRefSequence struct {
	TokenizationID uuid.UUID `json:"tokenization_id"`
	TokenIndices   []int     `json:"token_indices"`
	AnchorIndex    *int      `json:"anchor_index,omitempty"`
}

// EntityMention is one mention of an entity. TokenIndices may be empty for
// zero-width mentions.
type EntityMention struct {
	ID         uuid.UUID        `json:"id"`
	Tokens     TokenRefSequence `json:"tokens"`
	Text       string           `json:"text"`
	PhraseType string           `json:"phrase_type,omitempty"`
	EntityType string           `json:"entity_type,omitempty"`
}

// MentionSet is the set of mentions produced by one coreference pass.
type MentionSet struct {
	ID       uuid.UUID       `json:"id"`
	Tool     string          `json:"tool,omitempty"`
	Mentions []EntityMention `json:"mentions"`
}

// Mention returns the mention with the given id.
func (s *MentionSet) Mention(id uuid.UUID) *EntityMention {
	for i := range s.Mentions {
		if s.Mentions[i].ID == id {
			return &s.Mentions[i]
		}
	}
	return nil
}

// Entity represents one coreference chain.
type Entity struct {
	ID            uuid.UUID   `json:"id"`
	DocumentRID   uuid.UUID   `json:"document_rid"`
	CanonicalName string      `json:"canonical_name"`
	Type          string      `json:"entity_type"`
	MentionIDs    []uuid.UUID `json:"mention_ids"`
	Embedding     []float32   `json:"embedding,omitempty"`
	Metadata      Metadata    `json:"metadata,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`

	// Similarity is only set by similarity searches.
	Similarity float64 `json:"similarity,omitempty"`
}

// EntitySet is the set of entities of one coreference pass.
type EntitySet struct {
	ID           uuid.UUID `json:"id"`
	Tool         string    `json:"tool,omitempty"`
	MentionSetID uuid.UUID `json:"mention_set_id"`
	Entities     []Entity  `json:"entities"`
}
