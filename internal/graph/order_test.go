package graph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hyperengineering/driverlib/internal/types"
)

func edge(parent, child string) types.DriverDependency {
	return types.DriverDependency{ParentInstanceID: parent, ChildInstanceID: child}
}

func TestOrder_Diamond(t *testing.T) {
	edges := []types.DriverDependency{edge("a", "b"), edge("a", "c"), edge("b", "d"), edge("c", "d")}

	got, err := Order([]string{"d", "c", "b", "a"}, edges)
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "c", "b", "d"}, got); diff != "" {
		t.Errorf("Order (-want +got):\n%s", diff)
	}
}

func TestOrder_IgnoresOutsideEdges(t *testing.T) {
	edges := []types.DriverDependency{edge("x", "a"), edge("a", "b"), edge("b", "y")}

	got, err := Order([]string{"b", "a"}, edges)
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("Order (-want +got):\n%s", diff)
	}
}

func TestOrder_Cycle(t *testing.T) {
	edges := []types.DriverDependency{edge("a", "b"), edge("b", "c"), edge("c", "a")}

	if _, err := Order([]string{"a", "b", "c"}, edges); !errors.Is(err, ErrCycle) {
		t.Errorf("Order() error = %v, want ErrCycle", err)
	}
}

func TestDescendants(t *testing.T) {
	edges := []types.DriverDependency{edge("a", "b"), edge("b", "c"), edge("a", "c"), edge("z", "a")}

	if diff := cmp.Diff([]string{"a", "b", "c"}, Descendants("a", edges)); diff != "" {
		t.Errorf("Descendants(a) (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c"}, Descendants("c", edges)); diff != "" {
		t.Errorf("Descendants(c) (-want +got):\n%s", diff)
	}
	if !reaches("z", "c", edges) || reaches("c", "a", edges) {
		t.Error("reaches() disagrees with edges")
	}
}
