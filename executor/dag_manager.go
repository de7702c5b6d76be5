// executor/dag_manager.go

package executor

import "github.com/pkg/errors"

type DAGManager interface {
	AddNode(name string, dependencies []string)
	TopologicalSort() ([]string, error)
}

type dagManager struct {
	graph map[string][]string
	names []string
}

func NewDAGManager() DAGManager {
	return &dagManager{
		graph: make(map[string][]string),
	}
}

func (dm *dagManager) AddNode(name string, dependencies []string) {
	if _, ok := dm.graph[name]; !ok {
		dm.names = append(dm.names, name)
	}
	dm.graph[name] = dependencies
}

// TopologicalSort returns the nodes dependency-first. A node reached
// while still on the visit stack means the configuration is cyclic,
// which is a fatal error rather than something to silently tolerate.
func (dm *dagManager) TopologicalSort() ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[string]int)
	var order []string

	var visit func(string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return errors.Errorf("dependency cycle through target %q", name)
		}
		state[name] = visiting

		for _, dep := range dm.graph[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}

		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range dm.names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	return order, nil
}
