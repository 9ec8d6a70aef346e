package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/siherrmann/annomerge/helper"
)

// Metadata is free-form JSONB metadata.
type Metadata map[string]interface{}

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	if s, ok := value.(Metadata); ok {
		*m = s
		return nil
	}
	return scanJSONB(value, m)
}

// DocumentBody is the structural part of a merged document, stored as one
// JSONB column next to the document row.
type DocumentBody struct {
	Sections    []*Section    `json:"sections"`
	MentionSets []*MentionSet `json:"mention_sets,omitempty"`
	EntitySets  []*EntitySet  `json:"entity_sets,omitempty"`
}

// BodyOf extracts the body of a document.
func BodyOf(doc *Document) DocumentBody {
	return DocumentBody{
		Sections:    doc.Sections,
		MentionSets: doc.MentionSets,
		EntitySets:  doc.EntitySets,
	}
}

// Apply sets the body on doc.
func (b DocumentBody) Apply(doc *Document) {
	doc.Sections = b.Sections
	doc.MentionSets = b.MentionSets
	doc.EntitySets = b.EntitySets
}

// Value implements driver.Valuer.
func (b DocumentBody) Value() (driver.Value, error) {
	return json.Marshal(b)
}

// Scan implements sql.Scanner.
func (b *DocumentBody) Scan(value interface{}) error {
	if value == nil {
		*b = DocumentBody{}
		return nil
	}
	return scanJSONB(value, b)
}

func scanJSONB(value interface{}, target interface{}) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}
	return json.Unmarshal(b, target)
}
