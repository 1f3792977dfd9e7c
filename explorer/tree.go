package explorer

import (
	"cmp"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jesspatton/lazyexplorer/testobject"
)

// NodeKind is the role of a Node in the test tree.
type NodeKind int

const (
	NodeRoot NodeKind = iota
	NodeSource
	NodeDir
	NodeFile
	NodeTest
)

// Node is an entry in the test tree: sources, then the directories and files
// that hold their tests, then the tests themselves.
type Node struct {
	Name     string
	Path     string
	Kind     NodeKind
	Children []*Node
	Parent   *Node

	// Result is set on NodeTest only.
	Result *testobject.TestResult
}

// IsDir reports whether the node groups other nodes.
func (n *Node) IsDir() bool {
	return n.Kind != NodeTest
}

// Tests returns every test result below n, in tree order.
func (n *Node) Tests() []*testobject.TestResult {
	if n.Kind == NodeTest {
		return []*testobject.TestResult{n.Result}
	}
	var out []*testobject.TestResult
	for _, c := range n.Children {
		out = append(out, c.Tests()...)
	}
	return out
}

// BuildTree groups results under their sources. Tracked sources with no tests
// still get a node.
func BuildTree(sources []string, results []*testobject.TestResult) *Node {
	root := &Node{Name: ".", Kind: NodeRoot}

	bySource := make(map[string]*Node)
	sourceNode := func(source string) *Node {
		if n, ok := bySource[source]; ok {
			return n
		}
		n := &Node{Name: source, Path: source, Kind: NodeSource, Parent: root}
		root.Children = append(root.Children, n)
		bySource[source] = n
		return n
	}

	for _, s := range sources {
		sourceNode(s)
	}
	for _, r := range results {
		addResultToTree(sourceNode(r.Source()), r)
	}

	sortTree(root)
	return root
}

// addResultToTree adds a test under its source, creating intermediate
// directory and file nodes as needed.
func addResultToTree(source *Node, r *testobject.TestResult) {
	tc := r.TestCase()
	test := &Node{Name: r.DisplayName(), Path: tc.CodeFilePath(), Kind: NodeTest, Result: r}

	file := tc.CodeFilePath()
	if file == "" {
		test.Parent = source
		source.Children = append(source.Children, test)
		return
	}

	base := source.Path
	if info, err := os.Stat(base); err == nil && !info.IsDir() {
		base = filepath.Dir(base)
	}
	relPath, err := filepath.Rel(base, file)
	if err != nil || strings.HasPrefix(relPath, "..") {
		relPath = filepath.Base(file)
	}

	parts := strings.Split(relPath, string(os.PathSeparator))
	currentNode := source
	for i, part := range parts {
		kind := NodeDir
		if i == len(parts)-1 {
			kind = NodeFile
		}

		var next *Node
		for _, child := range currentNode.Children {
			if child.Name == part && child.Kind == kind {
				next = child
				break
			}
		}
		if next == nil {
			next = &Node{
				Name:   part,
				Path:   filepath.Join(base, filepath.Join(parts[:i+1]...)),
				Kind:   kind,
				Parent: currentNode,
			}
			currentNode.Children = append(currentNode.Children, next)
		}
		currentNode = next
	}

	test.Parent = currentNode
	currentNode.Children = append(currentNode.Children, test)
}

// sortTree orders groups before tests, groups by name and tests by line.
func sortTree(n *Node) {
	slices.SortStableFunc(n.Children, func(a, b *Node) int {
		if a.IsDir() != b.IsDir() {
			if a.IsDir() {
				return -1
			}
			return 1
		}
		if a.Kind == NodeTest {
			return cmp.Or(
				cmp.Compare(a.Result.TestCase().LineNumber(), b.Result.TestCase().LineNumber()),
				cmp.Compare(a.Result.TestCase().FullyQualifiedName(), b.Result.TestCase().FullyQualifiedName()),
			)
		}
		return cmp.Compare(a.Name, b.Name)
	})
	for _, c := range n.Children {
		sortTree(c)
	}
}
