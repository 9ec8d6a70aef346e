package model

// MergeConfig configures a merge pass.
type MergeConfig struct {
	// Tagging kinds to build, in order
	TaggingKinds []TaggingKind `json:"tagging_kinds"`
	// Dependency variants to extract, in order
	DependencyVariants []DependencyVariant `json:"dependency_variants"`

	// Unit of the offsets reported by the annotator
	OffsetUnit OffsetUnit `json:"offset_unit"`
	// Require Document.Text[token.RawSpan] == token.Text
	VerifyRawText bool `json:"verify_raw_text"`
	// Run ValidateDocument on every merged document
	Validate bool `json:"validate"`

	// Tool name stamped on mention and entity sets
	Tool string `json:"tool,omitempty"`
}

// DefaultMergeConfig returns the configuration used when none is given.
func DefaultMergeConfig() MergeConfig {
	return MergeConfig{
		TaggingKinds:       []TaggingKind{TaggingPOS, TaggingNER, TaggingLemma},
		DependencyVariants: []DependencyVariant{DependencyBasic, DependencyCollapsed, DependencyCollapsedCC},
		OffsetUnit:         OffsetUnitByte,
		VerifyRawText:      true,
		Validate:           false,
		Tool:               "annomerge",
	}
}
