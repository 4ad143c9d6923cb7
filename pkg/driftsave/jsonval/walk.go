package jsonval

import "sort"

// Visit calls fn for v and every value below it, depth first, parents
// before children. Returning false from fn skips that value's children.
func Visit(v *Value, fn func(path []Step, v *Value) bool) {
	visit(v, nil, fn)
}

func visit(v *Value, path []Step, fn func([]Step, *Value) bool) {
	if !fn(path, v) {
		return
	}
	switch v.Kind {
	case Array:
		for i := range v.Items {
			visit(&v.Items[i], append(path[:len(path):len(path)], Step{Index: i, IsIndex: true}), fn)
		}
	case Object:
		for i := range v.Members {
			visit(&v.Members[i].Value, append(path[:len(path):len(path)], Step{Key: v.Members[i].Key}), fn)
		}
	}
}

// Replace rewrites v bottom-up: fn receives every value after its children
// have been rewritten and returns the value to keep.
func Replace(v *Value, fn func(v Value) Value) {
	switch v.Kind {
	case Array:
		for i := range v.Items {
			Replace(&v.Items[i], fn)
		}
	case Object:
		for i := range v.Members {
			Replace(&v.Members[i].Value, fn)
		}
	}
	*v = fn(*v)
}

// SetAllKeys assigns updates[key] to every member named key anywhere in the
// tree and returns the number of assignments. Assigned values are searched
// too.
func SetAllKeys(v *Value, updates map[string]Value) int {
	changed := 0
	switch v.Kind {
	case Object:
		for i := range v.Members {
			m := &v.Members[i]
			if nv, ok := updates[m.Key]; ok {
				m.Value = nv
				changed++
			}
			changed += SetAllKeys(&m.Value, updates)
		}
	case Array:
		for i := range v.Items {
			changed += SetAllKeys(&v.Items[i], updates)
		}
	}
	return changed
}

// SetFirstKeys assigns each update only to the first occurrence of its key.
// At each object the members are matched before descending, so a shallow
// occurrence beats a deeper one in an earlier sibling. Returns the number of
// assignments.
func SetFirstKeys(v *Value, updates map[string]Value) int {
	remaining := make(map[string]struct{}, len(updates))
	for k := range updates {
		remaining[k] = struct{}{}
	}
	return setFirst(v, updates, remaining)
}

func setFirst(v *Value, updates map[string]Value, remaining map[string]struct{}) int {
	if len(remaining) == 0 {
		return 0
	}

	changed := 0
	switch v.Kind {
	case Object:
		for i := range v.Members {
			m := &v.Members[i]
			if _, ok := remaining[m.Key]; ok {
				m.Value = updates[m.Key]
				delete(remaining, m.Key)
				changed++
				if len(remaining) == 0 {
					return changed
				}
			}
		}
		for i := range v.Members {
			changed += setFirst(&v.Members[i].Value, updates, remaining)
			if len(remaining) == 0 {
				return changed
			}
		}
	case Array:
		for i := range v.Items {
			changed += setFirst(&v.Items[i], updates, remaining)
			if len(remaining) == 0 {
				return changed
			}
		}
	}
	return changed
}

// FindFirstKeys returns the first occurrence of each key in a depth-first
// walk that descends into a member before looking at its next sibling.
// Missing keys are absent from the result.
func FindFirstKeys(v *Value, keys ...string) map[string]Value {
	remaining := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		remaining[k] = struct{}{}
	}
	found := make(map[string]Value, len(keys))
	findFirst(v, remaining, found)
	return found
}

func findFirst(v *Value, remaining map[string]struct{}, found map[string]Value) {
	switch v.Kind {
	case Object:
		for i := range v.Members {
			if len(remaining) == 0 {
				return
			}
			m := &v.Members[i]
			if _, ok := remaining[m.Key]; ok {
				found[m.Key] = m.Value
				delete(remaining, m.Key)
			}
			findFirst(&m.Value, remaining, found)
		}
	case Array:
		for i := range v.Items {
			if len(remaining) == 0 {
				return
			}
			findFirst(&v.Items[i], remaining, found)
		}
	}
}

// CollectKeys returns every object key in the tree, sorted and deduplicated.
func CollectKeys(v *Value) []string {
	seen := map[string]struct{}{}
	Visit(v, func(_ []Step, n *Value) bool {
		for _, m := range n.Members {
			seen[m.Key] = struct{}{}
		}
		return true
	})

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetOrCreateRootKeys sets every update on the root object, creating keys as
// needed. It returns the number of assignments, or 0 when v is not an
// object. New keys are appended in sorted order so the result does not
// depend on map iteration.
func SetOrCreateRootKeys(v *Value, updates map[string]Value) int {
	if v.Kind != Object {
		return 0
	}

	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v.Set(k, updates[k])
	}
	return len(keys)
}
