package config

// detectCycle returns the plugin ids forming a dependency cycle, closed by
// repeating the first id, or nil when the graph is acyclic. Dependencies on
// unknown ids are ignored; ValidateManifest reports those separately.
func detectCycle(plugins []PluginSpec) []string {
	graph := make(map[string][]string, len(plugins))
	for _, plugin := range plugins {
		graph[plugin.ID] = plugin.Dependencies
	}

	visiting := make(map[string]bool, len(plugins))
	visited := make(map[string]bool, len(plugins))
	var stack []string

	var cycle []string
	var dfs func(string) bool
	dfs = func(node string) bool {
		visiting[node] = true
		stack = append(stack, node)

		for _, dep := range graph[node] {
			if _, known := graph[dep]; !known || visited[dep] {
				continue
			}
			if visiting[dep] {
				idx := indexOf(stack, dep)
				if idx >= 0 {
					cycle = append([]string{}, stack[idx:]...)
					cycle = append(cycle, dep)
				}
				return true
			}
			if dfs(dep) {
				return true
			}
		}

		visiting[node] = false
		visited[node] = true
		stack = stack[:len(stack)-1]
		return false
	}

	for _, plugin := range plugins {
		if visited[plugin.ID] {
			continue
		}
		if dfs(plugin.ID) {
			return cycle
		}
	}
	return nil
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}
