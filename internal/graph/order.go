package graph

import (
	"fmt"

	"github.com/hyperengineering/driverlib/internal/types"
)

// Order returns ids sorted so every parent precedes its children, using
// Kahn's algorithm. Edges with an endpoint outside ids are ignored. Ties keep
// the order of ids. Returns ErrCycle if the edges among ids form a cycle.
func Order(ids []string, edges []types.DriverDependency) ([]string, error) {
	position := make(map[string]int, len(ids))
	for i, id := range ids {
		position[id] = i
	}

	inDegree := make(map[string]int, len(ids))
	children := make(map[string][]string)
	for _, e := range edges {
		_, parentIn := position[e.ParentInstanceID]
		_, childIn := position[e.ChildInstanceID]
		if !parentIn || !childIn {
			continue
		}
		inDegree[e.ChildInstanceID]++
		children[e.ParentInstanceID] = append(children[e.ParentInstanceID], e.ChildInstanceID)
	}

	var queue []string
	for _, id := range ids {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]string, 0, len(ids))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)

		for _, child := range children[id] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = insertByPosition(queue, child, position)
			}
		}
	}

	if len(sorted) != len(ids) {
		return nil, fmt.Errorf("%w: %d instances unresolved", ErrCycle, len(ids)-len(sorted))
	}
	return sorted, nil
}

// insertByPosition keeps the ready queue ordered by input position so the
// result is deterministic.
func insertByPosition(queue []string, id string, position map[string]int) []string {
	i := len(queue)
	for i > 0 && position[queue[i-1]] > position[id] {
		i--
	}
	queue = append(queue, "")
	copy(queue[i+1:], queue[i:])
	queue[i] = id
	return queue
}

// Descendants returns root followed by every instance reachable from it,
// in breadth-first discovery order.
func Descendants(root string, edges []types.DriverDependency) []string {
	children := make(map[string][]string)
	for _, e := range edges {
		children[e.ParentInstanceID] = append(children[e.ParentInstanceID], e.ChildInstanceID)
	}

	seen := map[string]bool{root: true}
	out := []string{root}
	for i := 0; i < len(out); i++ {
		for _, child := range children[out[i]] {
			if !seen[child] {
				seen[child] = true
				out = append(out, child)
			}
		}
	}
	return out
}

// reaches reports whether to is reachable from from along edges.
func reaches(from, to string, edges []types.DriverDependency) bool {
	for _, id := range Descendants(from, edges) {
		if id == to {
			return true
		}
	}
	return false
}
