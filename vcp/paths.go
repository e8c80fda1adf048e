package vcp

import (
	"fmt"
	"strings"
)

// Get returns the value at a dotted path inside nested maps. The second
// return is false when any segment is missing or an intermediate value is
// not a map. Never panics.
func Get(root map[string]any, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	cur := any(root)
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set writes value at a dotted path, creating intermediate maps as needed.
// Returns ErrPathConflict when an intermediate segment already holds a
// non-map value.
func Set(root map[string]any, path string, value any) error {
	segs := strings.Split(path, ".")
	cur := root
	for i, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg]
		if !ok {
			child := map[string]any{}
			cur[seg] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %q is not an object at segment %q", ErrPathConflict, strings.Join(segs[:i+1], "."), seg)
		}
		cur = child
	}
	cur[segs[len(segs)-1]] = value
	return nil
}
