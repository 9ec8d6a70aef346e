package pipeline

import (
	"testing"

	"github.com/siherrmann/annomerge/core/merge"
	"github.com/siherrmann/annomerge/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tree(label string, children ...*model.Tree) *model.Tree {
	return &model.Tree{Label: label, Children: children}
}

// preterminal returns (tag word)
func preterminal(tag, word string) *model.Tree {
	return tree(tag, tree(word))
}

func TestCollinsHeadFinder(t *testing.T) {
	headFind := CollinsHeadFinder()

	tests := []struct {
		name     string
		node     *model.Tree
		expected int
	}{
		{"S picks the verb phrase", tree("S", tree("NP"), tree("VP"), preterminal(".", ".")), 1},
		{"VP picks the verb", tree("VP", preterminal("VBZ", "sees"), tree("NP")), 0},
		{"PP searches right to left", tree("PP", preterminal("IN", "of"), tree("NP")), 0},
		{"NP picks the rightmost noun", tree("NP", preterminal("DT", "the"), preterminal("JJ", "old"), preterminal("NN", "man")), 2},
		{"NP with possessive picks it", tree("NP", tree("NP"), preterminal("POS", "'s")), 1},
		{"NP falls back to leftmost NP", tree("NP", tree("NP"), tree("PP")), 0},
		{"NP falls back to number", tree("NP", preterminal("DT", "the"), preterminal("CD", "two")), 1},
		{"Function tags are ignored", tree("S-TPC", tree("NP-SBJ"), tree("VP")), 1},
		{"Single child is the head", tree("XYZ", tree("NP")), 0},
		{"Missing label uses the rule default", tree("ADVP", tree("PP"), tree("SBAR")), 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			head, err := headFind(test.node)
			require.NoError(t, err)
			assert.Equal(t, test.expected, head)
		})
	}

	t.Run("Fails on unknown label", func(t *testing.T) {
		_, err := headFind(tree("XYZ", tree("NP"), tree("VP")))
		assert.Error(t, err)
	})

	t.Run("Fails on leaf", func(t *testing.T) {
		_, err := headFind(tree("John"))
		assert.Error(t, err)
	})

	t.Run("Drives the merge engine's head choice", func(t *testing.T) {
		sentence := tree("ROOT", tree("S",
			tree("NP", preterminal("NNP", "John")),
			tree("VP", preterminal("VBZ", "sees"), tree("NP", preterminal("NNP", "Mary"))),
		))

		parse, err := merge.FlattenTree(sentence, 3, headFind, testLogger())
		require.NoError(t, err)
		s := parse.Constituents[1]
		require.NotNil(t, s.HeadChildIndex)
		assert.Equal(t, 1, *s.HeadChildIndex, "S should be headed by VP")
		vp := parse.Constituents[5]
		assert.Equal(t, "VP", vp.Label)
		require.NotNil(t, vp.HeadChildIndex)
		assert.Equal(t, 0, *vp.HeadChildIndex, "VP should be headed by VBZ")
	})
}

func TestBasicCategory(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NP", "NP"},
		{"NP-SBJ-1", "NP"},
		{"S=2", "S"},
		{"-NONE-", "-NONE-"},
		{"-LRB-", "-LRB-"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			assert.Equal(t, test.expected, basicCategory(test.input))
		})
	}
}
