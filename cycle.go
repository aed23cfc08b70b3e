package oasis

import "fmt"

// placements maps every cell name to the names of the cells it places.
// Placements of undefined cells are skipped.
func (l *Layout) placements() (map[string][]string, []string, error) {
	graph := make(map[string][]string, len(l.Cells))
	order := make([]string, 0, len(l.Cells))
	for _, c := range l.Cells {
		name, err := l.CellName(c.Name)
		if err != nil {
			return nil, nil, err
		}
		order = append(order, name)
		graph[name] = nil
	}
	for i, c := range l.Cells {
		for _, e := range c.Elements {
			p, ok := e.(*Placement)
			if !ok {
				continue
			}
			child, err := l.CellName(p.Cell)
			if err != nil {
				return nil, nil, err
			}
			graph[order[i]] = append(graph[order[i]], child)
		}
	}
	return graph, order, nil
}

// CheckCycles reports ErrPlacementCycle when a cell places itself, directly
// or through other cells.
func (l *Layout) CheckCycles() error {
	graph, order, err := l.placements()
	if err != nil {
		return err
	}
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		visiting[name] = true
		for _, child := range graph[name] {
			if visiting[child] {
				return fmt.Errorf("%w: %s places %s", ErrPlacementCycle, name, child)
			}
			if _, defined := graph[child]; defined && !visited[child] {
				if err := visit(child); err != nil {
					return err
				}
			}
		}
		delete(visiting, name)
		visited[name] = true
		return nil
	}

	for _, name := range order {
		if !visited[name] {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopCells returns the cells no other cell places, in layout order.
func (l *Layout) TopCells() ([]string, error) {
	graph, order, err := l.placements()
	if err != nil {
		return nil, err
	}
	placed := make(map[string]bool)
	for _, children := range graph {
		for _, c := range children {
			placed[c] = true
		}
	}
	var top []string
	for _, name := range order {
		if !placed[name] {
			top = append(top, name)
		}
	}
	return top, nil
}
