package merge

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
)

// HeadFindFunc returns the position of the head among node.Children.
type HeadFindFunc func(node *model.Tree) (int, error)

// flattener collects the constituents of one FlattenTree call.
type flattener struct {
	constituents []model.Constituent
	headFind     HeadFindFunc
	logger       *slog.Logger
}

// FlattenTree converts a constituency tree into a flat constituent list.
// Every node becomes a constituent, ids are assigned in pre-order starting
// at 0 and leaves span exactly one token. A nil tree gives a parse with an
// empty constituent list.
func FlattenTree(tree *model.Tree, tokenCount int, headFind HeadFindFunc, logger *slog.Logger) (*model.Parse, error) {
	parse := &model.Parse{
		ID:           uuid.New(),
		Constituents: []model.Constituent{},
	}
	if tree == nil {
		return parse, nil
	}

	if leaves := tree.LeafCount(); leaves != tokenCount {
		return nil, helper.NewMergeError(helper.KindLeafCountMismatch, "tree has %d leaves for %d tokens", leaves, tokenCount)
	}

	f := &flattener{headFind: headFind, logger: logger}
	if _, _, _, err := f.visit(tree, 0, 0); err != nil {
		return nil, err
	}
	parse.Constituents = f.constituents

	return parse, nil
}

// visit flattens node, whose first token is start, giving it id nextID.
// It returns the node's id, its end token and the next free id.
func (f *flattener) visit(node *model.Tree, start int, nextID int) (int, int, int, error) {
	if node == nil {
		return 0, 0, 0, helper.NewMergeError(helper.KindMissingAnnotation, "nil child in constituency tree")
	}

	id := nextID
	nextID++
	f.constituents = append(f.constituents, model.Constituent{
		ID:       id,
		Label:    node.Label,
		Start:    start,
		Children: []int{},
	})

	end := start
	children := make([]int, 0, len(node.Children))
	for _, child := range node.Children {
		childID, childEnd, next, err := f.visit(child, end, nextID)
		if err != nil {
			return 0, 0, 0, err
		}
		children = append(children, childID)
		end = childEnd
		nextID = next
	}
	if node.IsLeaf() {
		end = start + 1
	}

	constituent := &f.constituents[id]
	constituent.End = end
	constituent.Children = children
	if !node.IsLeaf() {
		head := f.findHead(node)
		constituent.HeadChildIndex = &head
	}

	return id, end, nextID, nil
}

// findHead asks the head finder and falls back to the rightmost child.
func (f *flattener) findHead(node *model.Tree) int {
	rightmost := len(node.Children) - 1
	if f.headFind == nil {
		return rightmost
	}

	head, err := f.headFind(node)
	if err != nil || head < 0 || head > rightmost {
		f.logger.Debug(
			"Head finder failed, using rightmost child",
			slog.String("label", node.Label),
			slog.Int("head", head),
			slog.Any("error", err),
		)
		return rightmost
	}

	return head
}
