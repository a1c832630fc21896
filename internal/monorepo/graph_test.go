package monorepo

import (
	"reflect"
	"testing"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
)

func TestSortedTopologicalOrder(t *testing.T) {
	pkgs := []DiscoveredPackage{
		{Name: "core"},
		{Name: "utils", WorkspaceDeps: []string{"core"}},
		{Name: "cli", WorkspaceDeps: []string{"core", "utils"}},
		{Name: "internal", Private: true},
	}
	g := Build(pkgs)
	order, err := g.Sorted()
	if err != nil {
		t.Fatalf("Sorted: %v", err)
	}

	index := make(map[string]int, len(order))
	for i, name := range order {
		index[name] = i
	}
	if index["core"] >= index["utils"] || index["utils"] >= index["cli"] {
		t.Fatalf("expected core < utils < cli, got %v", order)
	}
}

func TestSortedTieBreakAlphabetical(t *testing.T) {
	pkgs := []DiscoveredPackage{{Name: "zebra"}, {Name: "alpha"}, {Name: "mid"}}
	order, err := Build(pkgs).Sorted()
	if err != nil {
		t.Fatalf("Sorted: %v", err)
	}
	want := []string{"alpha", "mid", "zebra"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestSortedDetectsCycle(t *testing.T) {
	pkgs := []DiscoveredPackage{
		{Name: "a", WorkspaceDeps: []string{"b"}},
		{Name: "b", WorkspaceDeps: []string{"a"}},
	}
	_, err := Build(pkgs).Sorted()
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if cerrors.KindOf(err) != cerrors.CycleDetected {
		t.Fatalf("expected CycleDetected kind, got %v", cerrors.KindOf(err))
	}
}
