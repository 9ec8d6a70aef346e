package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Constituent is a node of a flattened constituency tree. Start and End
// are token indices, End exclusive. HeadChildIndex is a position in Children.
type Constituent struct {
	ID             int    `json:"id"`
	Label          string `json:"label"`
	Start          int    `json:"start"`
	End            int    `json:"end"`
	Children       []int  `json:"children"`
	HeadChildIndex *int   `json:"head_child_index,omitempty"`
}

// Parse is a flattened constituency tree. Constituents is never nil.
type Parse struct {
	ID           uuid.UUID     `json:"id"`
	Constituents []Constituent `json:"constituents"`
}

// Root returns the root constituent, or nil for an empty parse.
func (p *Parse) Root() *Constituent {
	if p == nil || len(p.Constituents) == 0 {
		return nil
	}
	return &p.Constituents[0]
}

// DependencyVariant names one dependency representation.
type DependencyVariant string

const (
	DependencyBasic       DependencyVariant = "basic"
	DependencyCollapsed   DependencyVariant = "collapsed"
	DependencyCollapsedCC DependencyVariant = "collapsed-cc"
)

// AllDependencyVariants lists the supported variants in extraction order.
var AllDependencyVariants = []DependencyVariant{DependencyBasic, DependencyCollapsed, DependencyCollapsedCC}

// ParseDependencyVariant validates a variant name.
func ParseDependencyVariant(s string) (DependencyVariant, error) {
	switch v := DependencyVariant(s); v {
	case DependencyBasic, DependencyCollapsed, DependencyCollapsedCC:
		return v, nil
	}
	return "", fmt.Errorf("unknown dependency variant %q", s)
}

// DependencyEdge links a governor token to a dependent token.
// A nil Governor marks the root edge.
type DependencyEdge struct {
	Relation  string `json:"relation"`
	Governor  *int   `json:"governor,omitempty"`
	Dependent int    `json:"dependent"`
}

// IsRoot reports whether the edge is a root edge.
func (e DependencyEdge) IsRoot() bool {
	return e.Governor == nil
}

// DependencyParse is the edge list of one dependency variant. Edges is never nil.
type DependencyParse struct {
	ID      uuid.UUID         `json:"id"`
	Variant DependencyVariant `json:"variant"`
	Edges   []DependencyEdge  `json:"edges"`
}
