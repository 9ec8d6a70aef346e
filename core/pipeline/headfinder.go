package pipeline

import (
	"fmt"
	"strings"

	"github.com/siherrmann/annomerge/core/merge"
	"github.com/siherrmann/annomerge/model"
)

type direction int

const (
	leftToRight direction = iota
	rightToLeft
)

// headRule searches the children in one direction for the first label of
// the priority list.
type headRule struct {
	dir    direction
	labels []string
}

// collinsRules are the head rules of Collins (1999), appendix A.
var collinsRules = map[string]headRule{
	"ADJP":   {leftToRight, []string{"NNS", "QP", "NN", "$", "ADVP", "JJ", "VBN", "VBG", "ADJP", "JJR", "NP", "JJS", "DT", "FW", "RBR", "RBS", "SBAR", "RB"}},
	"ADVP":   {rightToLeft, []string{"RB", "RBR", "RBS", "FW", "ADVP", "TO", "CD", "JJR", "JJ", "IN", "NP", "JJS", "NN"}},
	"CONJP":  {rightToLeft, []string{"CC", "RB", "IN"}},
	"FRAG":   {rightToLeft, nil},
	"INTJ":   {leftToRight, nil},
	"LST":    {rightToLeft, []string{"LS", ":"}},
	"NAC":    {leftToRight, []string{"NN", "NNS", "NNP", "NNPS", "NP", "NAC", "EX", "$", "CD", "QP", "PRP", "VBG", "JJ", "JJS", "JJR", "ADJP", "FW"}},
	"NX":     {leftToRight, nil},
	"PP":     {rightToLeft, []string{"IN", "TO", "VBG", "VBN", "RP", "FW"}},
	"PRN":    {leftToRight, nil},
	"PRT":    {rightToLeft, []string{"RP"}},
	"QP":     {leftToRight, []string{"$", "IN", "NNS", "NN", "JJ", "RB", "DT", "CD", "NCD", "QP", "JJR", "JJS"}},
	"ROOT":   {leftToRight, []string{"S", "SQ", "SINV", "SBARQ", "FRAG"}},
	"RRC":    {rightToLeft, []string{"VP", "NP", "ADVP", "ADJP", "PP"}},
	"S":      {leftToRight, []string{"TO", "IN", "VP", "S", "SBAR", "ADJP", "UCP", "NP"}},
	"SBAR":   {leftToRight, []string{"WHNP", "WHPP", "WHADVP", "WHADJP", "IN", "DT", "S", "SQ", "SINV", "SBAR", "FRAG"}},
	"SBARQ":  {leftToRight, []string{"SQ", "S", "SINV", "SBARQ", "FRAG"}},
	"SINV":   {leftToRight, []string{"VBZ", "VBD", "VBP", "VB", "MD", "VP", "S", "SINV", "ADJP", "NP"}},
	"SQ":     {leftToRight, []string{"VBZ", "VBD", "VBP", "VB", "MD", "VP", "SQ"}},
	"UCP":    {rightToLeft, nil},
	"VP":     {leftToRight, []string{"TO", "VBD", "VBN", "MD", "VBZ", "VB", "VBG", "VBP", "VP", "ADJP", "NN", "NNS", "NP"}},
	"WHADJP": {leftToRight, []string{"CC", "WRB", "JJ", "ADJP"}},
	"WHADVP": {rightToLeft, []string{"CC", "WRB"}},
	"WHNP":   {leftToRight, []string{"WDT", "WP", "WP$", "WHADJP", "WHPP", "WHNP"}},
	"WHPP":   {rightToLeft, []string{"IN", "TO", "FW"}},
	"X":      {rightToLeft, nil},
}

// CollinsHeadFinder returns a head finder using the Collins head rules.
// Nodes with one child are headed by it. Unknown labels are an error, so the
// merge engine falls back to the rightmost child.
func CollinsHeadFinder() merge.HeadFindFunc {
	return func(node *model.Tree) (int, error) {
		if node == nil || len(node.Children) == 0 {
			return 0, fmt.Errorf("no children to pick a head from")
		}
		if len(node.Children) == 1 {
			return 0, nil
		}

		labels := make([]string, len(node.Children))
		for i, child := range node.Children {
			if child != nil {
				labels[i] = basicCategory(child.Label)
			}
		}

		category := basicCategory(node.Label)
		if category == "NP" {
			return nounPhraseHead(labels), nil
		}

		rule, ok := collinsRules[category]
		if !ok {
			return 0, fmt.Errorf("no head rule for %q", node.Label)
		}
		return rule.apply(labels), nil
	}
}

func (r headRule) apply(labels []string) int {
	for _, want := range r.labels {
		if i := findAny(labels, r.dir, want); i >= 0 {
			return i
		}
	}
	if r.dir == leftToRight {
		return 0
	}
	return len(labels) - 1
}

// nounPhraseHead applies the special noun phrase rule.
func nounPhraseHead(labels []string) int {
	last := len(labels) - 1
	if labels[last] == "POS" {
		return last
	}
	if i := findAny(labels, rightToLeft, "NN", "NNP", "NNPS", "NNS", "NX", "POS", "JJR"); i >= 0 {
		return i
	}
	if i := findAny(labels, leftToRight, "NP"); i >= 0 {
		return i
	}
	if i := findAny(labels, rightToLeft, "$", "ADJP", "PRN"); i >= 0 {
		return i
	}
	if i := findAny(labels, rightToLeft, "CD"); i >= 0 {
		return i
	}
	if i := findAny(labels, rightToLeft, "JJ", "JJS", "RB", "QP"); i >= 0 {
		return i
	}
	return last
}

// findAny returns the first child in direction dir whose label is one of wants.
func findAny(labels []string, dir direction, wants ...string) int {
	matches := func(label string) bool {
		for _, want := range wants {
			if label == want {
				return true
			}
		}
		return false
	}
	if dir == leftToRight {
		for i := 0; i < len(labels); i++ {
			if matches(labels[i]) {
				return i
			}
		}
		return -1
	}
	for i := len(labels) - 1; i >= 0; i-- {
		if matches(labels[i]) {
			return i
		}
	}
	return -1
}

// basicCategory strips function tags and indices, "NP-SBJ-1" gives "NP".
func basicCategory(label string) string {
	if strings.HasPrefix(label, "-") {
		return label
	}
	if i := strings.IndexAny(label, "-="); i > 0 {
		return label[:i]
	}
	return label
}
