package ui

import (
	"testing"

	"github.com/jesspatton/lazyexplorer/explorer"
)

func TestFlattenNodes_Basic(t *testing.T) {
	// root -> a(file), b(file)
	root := &explorer.Node{
		Name: ".",
		Kind: explorer.NodeRoot,
		Children: []*explorer.Node{
			{Name: "a", Kind: explorer.NodeFile},
			{Name: "b", Kind: explorer.NodeFile},
		},
	}

	nodes := flattenNodes(root)

	if len(nodes) != 2 {
		t.Errorf("Expected 2 nodes, got %d", len(nodes))
	}
	if nodes[0].DisplayName != "a" {
		t.Errorf("Expected 'a', got '%s'", nodes[0].DisplayName)
	}
	if nodes[1].DisplayName != "b" {
		t.Errorf("Expected 'b', got '%s'", nodes[1].DisplayName)
	}
}

func TestFlattenNodes_Compaction(t *testing.T) {
	// root -> src(source) -> a(dir) -> b(dir) -> c(file)
	// Should compact to "src", "a/b" and then "c"
	root := &explorer.Node{
		Name: ".",
		Kind: explorer.NodeRoot,
		Children: []*explorer.Node{
			{
				Name: "src",
				Kind: explorer.NodeSource,
				Children: []*explorer.Node{
					{
						Name: "a",
						Kind: explorer.NodeDir,
						Children: []*explorer.Node{
							{
								Name: "b",
								Kind: explorer.NodeDir,
								Children: []*explorer.Node{
									{Name: "c", Kind: explorer.NodeFile},
								},
							},
						},
					},
				},
			},
		},
	}

	nodes := flattenNodes(root)

	if len(nodes) != 3 {
		t.Fatalf("Expected 3 nodes, got %d", len(nodes))
	}
	if nodes[0].DisplayName != "src" {
		t.Errorf("Expected the source to stay separate, got '%s'", nodes[0].DisplayName)
	}
	if nodes[1].DisplayName != "a/b" {
		t.Errorf("Expected compacted name 'a/b', got '%s'", nodes[1].DisplayName)
	}
	if nodes[1].Node.Name != "b" {
		t.Errorf("Expected the compacted row to point at 'b', got '%s'", nodes[1].Node.Name)
	}
	if nodes[2].DisplayName != "c" || nodes[2].Depth != 2 {
		t.Errorf("Expected 'c' at depth 2, got '%s' at %d", nodes[2].DisplayName, nodes[2].Depth)
	}
}

func TestFlattenNodes_Mixed(t *testing.T) {
	// root
	//  -> src(dir) -> main_test.go(file)
	//  -> pkg(dir) -> api(dir) -> handler_test.go(file)
	root := &explorer.Node{
		Name: ".",
		Kind: explorer.NodeRoot,
		Children: []*explorer.Node{
			{
				Name: "src",
				Kind: explorer.NodeDir,
				Children: []*explorer.Node{
					{Name: "main_test.go", Kind: explorer.NodeFile},
				},
			},
			{
				Name: "pkg",
				Kind: explorer.NodeDir,
				Children: []*explorer.Node{
					{
						Name: "api",
						Kind: explorer.NodeDir,
						Children: []*explorer.Node{
							{Name: "handler_test.go", Kind: explorer.NodeFile},
						},
					},
				},
			},
		},
	}

	nodes := flattenNodes(root)

	expected := []string{"src", "main_test.go", "pkg/api", "handler_test.go"}
	if len(nodes) != len(expected) {
		t.Fatalf("Expected %d nodes, got %d", len(expected), len(nodes))
	}
	for i, name := range expected {
		if nodes[i].DisplayName != name {
			t.Errorf("Index %d: expected '%s', got '%s'", i, name, nodes[i].DisplayName)
		}
	}
}

func TestFlattenNodes_Empty(t *testing.T) {
	if len(flattenNodes(nil)) != 0 {
		t.Error("Expected empty list for nil tree")
	}

	emptyRoot := &explorer.Node{Name: ".", Kind: explorer.NodeRoot}
	if len(flattenNodes(emptyRoot)) != 0 {
		t.Error("Expected empty list for empty root")
	}
}

func TestSourceOf(t *testing.T) {
	source := &explorer.Node{Name: "src", Path: "/src", Kind: explorer.NodeSource}
	dir := &explorer.Node{Name: "d", Kind: explorer.NodeDir, Parent: source}
	test := &explorer.Node{Name: "T", Kind: explorer.NodeTest, Parent: dir}

	if got := sourceOf(test); got != source {
		t.Errorf("Expected source node, got %v", got)
	}
	if sourceOf(nil) != nil {
		t.Error("Expected nil for nil node")
	}
}

func TestVisibleRange(t *testing.T) {
	tests := []struct {
		cursor, n, height int
		start, end        int
	}{
		{0, 5, 10, 0, 5},
		{0, 20, 10, 0, 10},
		{10, 20, 10, 5, 15},
		{19, 20, 10, 10, 20},
	}
	for _, tt := range tests {
		start, end := visibleRange(tt.cursor, tt.n, tt.height)
		if start != tt.start || end != tt.end {
			t.Errorf("visibleRange(%d, %d, %d) = %d, %d; want %d, %d",
				tt.cursor, tt.n, tt.height, start, end, tt.start, tt.end)
		}
	}
}
