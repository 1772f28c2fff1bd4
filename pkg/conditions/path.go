package conditions

import "strings"

// lookupPath resolves a dotted path ("student.scores.math") into a nested
// key/value document. The second return is false when any segment is missing
// or an intermediate value is not a map.
func lookupPath(doc map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")
	current := any(doc)

	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		value, ok := node[segment]
		if !ok {
			return nil, false
		}

		current = value
	}

	return current, true
}
