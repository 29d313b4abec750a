// Package pipeline is a small aggregation engine over nested documents.
//
// A pipeline is an ordered list of typed stages (Match, Unwind, Derive,
// GroupBy, Project, SortLimit) interpreted by a single Executor. Documents are
// plain nested maps addressed by dotted paths ("items.price"), so the same
// stages run over anything that can be rendered as a map: decoded BSON, JSON
// rows or the typed order documents' field view.
package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Doc is one document flowing through a pipeline.
type Doc = map[string]any

var (
	// ErrNotArray is returned by Unwind when the field holds a scalar or object.
	ErrNotArray = errors.New("pipeline: unwind of non-array value")

	// ErrType is returned when an operator receives an operand it cannot use.
	ErrType = errors.New("pipeline: operand type mismatch")
)

// Get resolves a dotted path. Missing segments yield (nil, false).
func Get(d Doc, path string) (any, bool) {
	var cur any = d
	for _, seg := range strings.Split(path, ".") {
		m, ok := asMap(cur)
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

// Set returns a copy of d with path set to v. Maps along the path are cloned;
// everything else is shared with d.
func Set(d Doc, path string, v any) Doc {
	segs := strings.Split(path, ".")
	return setSegs(d, segs, v)
}

func setSegs(d Doc, segs []string, v any) Doc {
	out := make(Doc, len(d)+1)
	for k, x := range d {
		out[k] = x
	}
	if len(segs) == 1 {
		out[segs[0]] = v
		return out
	}
	child, _ := asMap(d[segs[0]])
	out[segs[0]] = setSegs(child, segs[1:], v)
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	default:
		return nil, false
	}
}

func asArray(v any) ([]any, bool) {
	switch a := v.(type) {
	case []any:
		return a, true
	case []map[string]any:
		out := make([]any, len(a))
		for i := range a {
			out[i] = a[i]
		}
		return out, true
	default:
		return nil, false
	}
}

// Number converts the numeric kinds a document can hold to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// rank orders value classes: null < numbers < strings < objects < arrays <
// booleans < timestamps.
func rank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := Number(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case map[string]any:
		return 3
	case []any, []map[string]any:
		return 4
	case bool:
		return 5
	case time.Time, *time.Time:
		return 6
	}
	return 7
}

// Compare orders two document values. Values of different classes compare by
// class, so null sorts below everything.
func Compare(a, b any) int {
	if t, ok := a.(*time.Time); ok {
		a = derefTime(t)
	}
	if t, ok := b.(*time.Time); ok {
		b = derefTime(t)
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}
	switch ra {
	case 0:
		return 0
	case 1:
		x, _ := Number(a)
		y, _ := Number(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 5:
		x, y := a.(bool), b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case 6:
		return a.(time.Time).Compare(b.(time.Time))
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func derefTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	}
	if n, ok := Number(v); ok {
		return n != 0
	}
	return true
}

// groupKey renders a value as a map key. Values that print the same and share
// a dynamic type land in one group.
func groupKey(v any) string {
	if t, ok := v.(*time.Time); ok {
		v = derefTime(t)
	}
	if v == nil {
		return "<nil>"
	}
	if n, ok := Number(v); ok {
		return fmt.Sprintf("n:%v", n)
	}
	return fmt.Sprintf("%T:%v", v, v)
}
