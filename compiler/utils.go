package compiler

import (
	"fmt"
	"strings"

	"codebinder/errors"
)

// TopologicalSort orders the nodes of graph so that every node comes after
// its dependencies. The graph maps a node to the nodes it depends on. order
// fixes the visiting order, and with it the result for unrelated nodes;
// nodes of graph missing from order are not visited.
func TopologicalSort(graph map[string][]string, order []string) ([]string, error) {
	// Track the state of each node: 0 = unvisited, 1 = visiting, 2 = visited
	visited := make(map[string]int)
	result := []string{}

	var visit func(string) error
	visit = func(node string) error {
		switch visited[node] {
		case 2:
			return nil
		case 1:
			return errors.Newf("cycle detected in the graph at %q", node)
		}
		visited[node] = 1
		for _, dep := range graph[node] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visited[node] = 2
		result = append(result, node)
		return nil
	}

	for _, node := range order {
		if err := visit(node); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// quote spells s as a C-family literal delimited by q. Control characters
// use \uXXXX escapes, which every target accepts.
func quote(s string, q byte) string {
	var sb strings.Builder
	sb.WriteByte(q)
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			switch {
			case r == rune(q):
				sb.WriteByte('\\')
				sb.WriteRune(r)
			case r < 0x20:
				fmt.Fprintf(&sb, `\u%04x`, r)
			default:
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte(q)
	return sb.String()
}
