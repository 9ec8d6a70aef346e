package merge

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
)

// rootRelationName is the long name of the root relation.
const rootRelationName = "ROOT"

// ExtractDependencies extracts one dependency parse per requested variant.
// Variants the annotator did not produce are skipped.
func ExtractDependencies(sentence *model.AnnotatedSentence, tokenCount int, variants []model.DependencyVariant, logger *slog.Logger) ([]model.DependencyParse, error) {
	parses := []model.DependencyParse{}
	for _, variant := range variants {
		graph := sentence.Dependencies[variant]
		if graph == nil {
			logger.Debug("No dependency graph", slog.String("variant", string(variant)))
			continue
		}

		parse, err := ExtractGraph(graph, variant, tokenCount)
		if err != nil {
			return nil, helper.NewError(string(variant)+" dependencies", err)
		}
		parses = append(parses, parse)
	}
	return parses, nil
}

// ExtractGraph converts a 1-based dependency graph into a 0-based edge list.
// One root edge without governor is emitted per root, followed by the arcs
// ordered by source, target and relation.
func ExtractGraph(graph *model.DependencyGraph, variant model.DependencyVariant, tokenCount int) (model.DependencyParse, error) {
	parse := model.DependencyParse{
		ID:      uuid.New(),
		Variant: variant,
		Edges:   make([]model.DependencyEdge, 0, len(graph.Roots)+len(graph.Arcs)),
	}

	roots := append([]int{}, graph.Roots...)
	sort.Ints(roots)
	rootRelation := NormalizeRelation(rootRelationName)
	for _, root := range roots {
		dependent, err := tokenIndex(root, tokenCount)
		if err != nil {
			return model.DependencyParse{}, helper.NewError("root", err)
		}
		parse.Edges = append(parse.Edges, model.DependencyEdge{
			Relation:  rootRelation,
			Dependent: dependent,
		})
	}

	arcs := append([]model.DependencyArc{}, graph.Arcs...)
	sort.SliceStable(arcs, func(i, j int) bool {
		if arcs[i].Source != arcs[j].Source {
			return arcs[i].Source < arcs[j].Source
		}
		if arcs[i].Target != arcs[j].Target {
			return arcs[i].Target < arcs[j].Target
		}
		return arcs[i].Relation < arcs[j].Relation
	})
	for _, arc := range arcs {
		governor, err := tokenIndex(arc.Source, tokenCount)
		if err != nil {
			return model.DependencyParse{}, helper.NewError("governor", err)
		}
		dependent, err := tokenIndex(arc.Target, tokenCount)
		if err != nil {
			return model.DependencyParse{}, helper.NewError("dependent", err)
		}
		parse.Edges = append(parse.Edges, model.DependencyEdge{
			Relation:  NormalizeRelation(arc.Relation),
			Governor:  &governor,
			Dependent: dependent,
		})
	}

	return parse, nil
}

// NormalizeRelation removes all whitespace from a relation label.
func NormalizeRelation(label string) string {
	return strings.Join(strings.Fields(label), "")
}

func tokenIndex(node int, tokenCount int) (int, error) {
	if node < 1 || node > tokenCount {
		return 0, helper.NewMergeError(helper.KindInvalidSpan, "dependency node %d outside 1..%d", node, tokenCount)
	}
	return node - 1, nil
}
