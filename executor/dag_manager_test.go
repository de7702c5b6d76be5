package executor

import (
	"strings"
	"testing"

	"golang.org/x/exp/slices"
)

func TestTopologicalSortOrdersDependenciesFirst(t *testing.T) {
	dm := NewDAGManager()
	dm.AddNode("md", []string{"json"})
	dm.AddNode("json", nil)
	dm.AddNode("clean-all", []string{"clean-md", "clean-json"})
	dm.AddNode("clean-md", nil)
	dm.AddNode("clean-json", nil)

	order, err := dm.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort failed: %v", err)
	}
	if len(order) != 5 {
		t.Fatalf("expected 5 nodes, got %v", order)
	}

	if slices.Index(order, "json") > slices.Index(order, "md") {
		t.Errorf("json must come before md, got %v", order)
	}
	if slices.Index(order, "clean-md") > slices.Index(order, "clean-all") {
		t.Errorf("clean-md must come before clean-all, got %v", order)
	}
}

func TestTopologicalSortDetectsCycle(t *testing.T) {
	dm := NewDAGManager()
	dm.AddNode("a", []string{"b"})
	dm.AddNode("b", []string{"c"})
	dm.AddNode("c", []string{"a"})

	_, err := dm.TopologicalSort()
	if err == nil {
		t.Fatal("expected a cycle error")
	}
	if !strings.Contains(err.Error(), "dependency cycle") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTopologicalSortSelfCycle(t *testing.T) {
	dm := NewDAGManager()
	dm.AddNode("a", []string{"a"})

	if _, err := dm.TopologicalSort(); err == nil {
		t.Fatal("expected a self-cycle error")
	}
}
