package jsonval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrPath is wrapped by every path parse or lookup failure.
var ErrPath = errors.New("json path")

// Step is one path component: an object key or an array index.
type Step struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Step) String() string {
	if s.IsIndex {
		return fmt.Sprintf("[%d]", s.Index)
	}
	return "." + s.Key
}

// ParsePath parses the small path syntax used by the CLI: "$" followed by
// any number of ".key" and "[index]" steps. Negative indices count from the
// end of the array.
func ParsePath(path string) ([]Step, error) {
	if path == "" || path == "$" {
		return nil, nil
	}
	if !strings.HasPrefix(path, "$") {
		return nil, fmt.Errorf("%w: must start with '$': %q", ErrPath, path)
	}

	var steps []Step
	i := 1
	for i < len(path) {
		switch path[i] {
		case '.':
			i++
			start := i
			for i < len(path) && path[i] != '.' && path[i] != '[' {
				i++
			}
			if start == i {
				return nil, fmt.Errorf("%w: empty key at %q", ErrPath, path[start-1:])
			}
			steps = append(steps, Step{Key: path[start:i]})
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed '[' in %q", ErrPath, path)
			}
			raw := path[i+1 : i+end]
			idx, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: bad index %q", ErrPath, raw)
			}
			steps = append(steps, Step{Index: idx, IsIndex: true})
			i += end + 1
		default:
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrPath, path[i], i)
		}
	}
	return steps, nil
}

// step resolves one step below v.
func (v *Value) step(s Step) (*Value, error) {
	if s.IsIndex {
		if v.Kind != Array {
			return nil, fmt.Errorf("%w: %s on %s", ErrPath, s, v.Kind)
		}
		idx := s.Index
		if idx < 0 {
			idx += len(v.Items)
		}
		if idx < 0 || idx >= len(v.Items) {
			return nil, fmt.Errorf("%w: index %d out of range (len %d)", ErrPath, s.Index, len(v.Items))
		}
		return &v.Items[idx], nil
	}

	if v.Kind != Object {
		return nil, fmt.Errorf("%w: %s on %s", ErrPath, s, v.Kind)
	}
	child := v.Get(s.Key)
	if child == nil {
		return nil, fmt.Errorf("%w: key %q not found", ErrPath, s.Key)
	}
	return child, nil
}

// Lookup returns a pointer to the value at path.
func (v *Value) Lookup(path string) (*Value, error) {
	steps, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	cur := v
	for _, s := range steps {
		if cur, err = cur.step(s); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// SetPath stores val at path. The final key is created when missing; every
// intermediate step and any final index must already exist. The root itself
// cannot be replaced.
func (v *Value) SetPath(path string, val Value) error {
	steps, err := ParsePath(path)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return fmt.Errorf("%w: cannot set root", ErrPath)
	}

	cur := v
	for _, s := range steps[:len(steps)-1] {
		if cur, err = cur.step(s); err != nil {
			return err
		}
	}

	last := steps[len(steps)-1]
	if last.IsIndex {
		target, err := cur.step(last)
		if err != nil {
			return err
		}
		*target = val
		return nil
	}
	if !cur.Set(last.Key, val) {
		return fmt.Errorf("%w: %s on %s", ErrPath, last, cur.Kind)
	}
	return nil
}
