package ui

import (
	"github.com/jesspatton/lazyexplorer/explorer"
)

// DisplayNode is one rendered row of the tree.
type DisplayNode struct {
	*explorer.Node
	DisplayName string
	Depth       int
}

// flattenNodes performs a depth-first traversal to create a flat list of nodes.
// It merges single-child directories to reduce vertical space.
func flattenNodes(tree *explorer.Node) []DisplayNode {
	nodes := []DisplayNode{}
	if tree == nil {
		return nodes
	}

	// getCompacted follows a chain of directories that each hold only one
	// directory, returning the last one and the joined name.
	var getCompacted func(*explorer.Node, string) (*explorer.Node, string)
	getCompacted = func(n *explorer.Node, currentName string) (*explorer.Node, string) {
		if n.Kind == explorer.NodeDir && len(n.Children) == 1 && n.Children[0].Kind == explorer.NodeDir {
			child := n.Children[0]
			return getCompacted(child, currentName+"/"+child.Name)
		}
		return n, currentName
	}

	var traverse func(*explorer.Node, int)
	traverse = func(n *explorer.Node, depth int) {
		// The root is not a row.
		if n == tree {
			for _, child := range n.Children {
				traverse(child, depth)
			}
			return
		}

		finalNode, displayName := getCompacted(n, n.Name)
		nodes = append(nodes, DisplayNode{
			Node:        finalNode,
			DisplayName: displayName,
			Depth:       depth,
		})
		for _, child := range finalNode.Children {
			traverse(child, depth+1)
		}
	}
	traverse(tree, 0)
	return nodes
}

// sourceOf returns the source node that n belongs to, or nil.
func sourceOf(n *explorer.Node) *explorer.Node {
	for ; n != nil; n = n.Parent {
		if n.Kind == explorer.NodeSource {
			return n
		}
	}
	return nil
}
