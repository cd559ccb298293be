package plugin

import (
	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
)

// ValidateDependencies ensures every declared dependency is registered and
// the dependency graph is acyclic.
func (r *Registry) ValidateDependencies() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	graph := make(map[string][]string, len(r.entries))
	for _, id := range r.order {
		deps := r.entries[id].desc.Config.Dependencies
		for _, dep := range deps {
			if _, ok := r.entries[dep]; !ok {
				return domainplugin.NewError(domainplugin.ErrCodeDependencyMissing, id, "plugin dependency not registered", nil).
					WithContext(map[string]interface{}{"dependency": dep})
			}
		}
		graph[id] = deps
	}

	if cycle := detectCycle(r.order, graph); len(cycle) > 0 {
		return cycleError(cycle)
	}
	return nil
}

// InstallOrder sorts ids so every plugin follows the dependencies it shares
// with the set. Ties keep registration order.
func (r *Registry) InstallOrder(ids []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := r.entries[id]; !ok {
			return nil, notFound(id)
		}
		wanted[id] = true
	}

	nodes := make([]string, 0, len(ids))
	graph := make(map[string][]string, len(ids))
	for _, id := range r.order {
		if !wanted[id] {
			continue
		}
		nodes = append(nodes, id)
		for _, dep := range r.entries[id].desc.Config.Dependencies {
			if _, ok := r.entries[dep]; !ok {
				return nil, domainplugin.NewError(domainplugin.ErrCodeDependencyMissing, id, "plugin dependency not registered", nil).
					WithContext(map[string]interface{}{"dependency": dep})
			}
			if wanted[dep] {
				graph[id] = append(graph[id], dep)
			}
		}
	}

	return topologicalOrder(nodes, graph)
}

type visitState int

const (
	stateUnvisited visitState = iota
	stateVisiting
	stateVisited
)

func detectCycle(nodes []string, graph map[string][]string) []string {
	state := make(map[string]visitState, len(graph))
	stack := make([]string, 0, len(graph))
	var cycle []string

	var dfs func(string) bool
	dfs = func(node string) bool {
		state[node] = stateVisiting
		stack = append(stack, node)

		for _, dep := range graph[node] {
			switch state[dep] {
			case stateUnvisited:
				if dfs(dep) {
					return true
				}
			case stateVisiting:
				idx := indexOf(stack, dep)
				if idx >= 0 {
					cycle = append([]string(nil), stack[idx:]...)
					cycle = append(cycle, dep)
				} else {
					cycle = []string{dep}
				}
				return true
			}
		}

		stack = stack[:len(stack)-1]
		state[node] = stateVisited
		return false
	}

	for _, node := range nodes {
		if state[node] == stateUnvisited {
			if dfs(node) {
				return cycle
			}
		}
	}
	return nil
}

func topologicalOrder(nodes []string, graph map[string][]string) ([]string, error) {
	inDegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for _, node := range nodes {
		inDegree[node] = len(graph[node])
		for _, dep := range graph[node] {
			dependents[dep] = append(dependents[dep], node)
		}
	}

	queue := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	order := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dependent := range dependents[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(nodes) {
		return nil, cycleError(detectCycle(nodes, graph))
	}
	return order, nil
}

func cycleError(cycle []string) error {
	return domainplugin.NewError(domainplugin.ErrCodeCycle, "", "circular plugin dependency detected", nil).
		WithContext(map[string]interface{}{"cycle": cycle})
}

func indexOf(stack []string, target string) int {
	for i, v := range stack {
		if v == target {
			return i
		}
	}
	return -1
}
