package pipeline

import (
	"fmt"
	"sort"
)

// Stage is one step of a pipeline. The set of stages is closed; build
// pipelines from the types in this file.
type Stage interface {
	Kind() string
	apply(in []Doc) ([]Doc, error)
}

// Pipeline is a named, ordered list of stages declared as data.
type Pipeline struct {
	Name   string
	Stages []Stage
}

// Match keeps the documents for which Pred is truthy.
type Match struct {
	Pred Expr
}

func (Match) Kind() string { return "match" }

func (s Match) apply(in []Doc) ([]Doc, error) {
	out := in[:0:0]
	for _, d := range in {
		v, err := s.Pred.Eval(d)
		if err != nil {
			return nil, err
		}
		if truthy(v) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Unwind emits one copy of each document per element of the array at Path,
// with the array replaced by that element. Documents whose field is missing,
// null or empty are dropped.
type Unwind struct {
	Path string
}

func (Unwind) Kind() string { return "unwind" }

func (s Unwind) apply(in []Doc) ([]Doc, error) {
	out := make([]Doc, 0, len(in))
	for _, d := range in {
		v, ok := Get(d, s.Path)
		if !ok || v == nil {
			continue
		}
		arr, ok := asArray(v)
		if !ok {
			return nil, fmt.Errorf("unwind %s (%T): %w", s.Path, v, ErrNotArray)
		}
		for _, el := range arr {
			out = append(out, Set(d, s.Path, el))
		}
	}
	return out, nil
}

// Derive adds (or replaces) one field computed from the document.
type Derive struct {
	Name string
	Expr Expr
}

func (Derive) Kind() string { return "derive" }

func (s Derive) apply(in []Doc) ([]Doc, error) {
	out := make([]Doc, len(in))
	for i, d := range in {
		v, err := s.Expr.Eval(d)
		if err != nil {
			return nil, fmt.Errorf("derive %s: %w", s.Name, err)
		}
		out[i] = Set(d, s.Name, v)
	}
	return out, nil
}

// GroupBy partitions the stream by Key and emits {"_id": key, acc...} per
// group in first-seen order. A nil Key puts every document in one group whose
// _id is null; an empty stream yields no groups.
type GroupBy struct {
	Key  Expr
	Accs []Accumulator
}

func (GroupBy) Kind() string { return "group" }

func (s GroupBy) apply(in []Doc) ([]Doc, error) {
	type group struct {
		key    any
		states []accState
	}
	var (
		order  []*group
		byKey  = map[string]*group{}
		keyExp = s.Key
	)
	if keyExp == nil {
		keyExp = Const(nil)
	}
	for _, d := range in {
		k, err := keyExp.Eval(d)
		if err != nil {
			return nil, fmt.Errorf("group key: %w", err)
		}
		gk := groupKey(k)
		g, ok := byKey[gk]
		if !ok {
			g = &group{key: k, states: make([]accState, len(s.Accs))}
			byKey[gk] = g
			order = append(order, g)
		}
		for i, acc := range s.Accs {
			if err := acc.add(&g.states[i], d); err != nil {
				return nil, fmt.Errorf("%s %s: %w", acc.Op, acc.Name, err)
			}
		}
	}
	out := make([]Doc, 0, len(order))
	for _, g := range order {
		d := Doc{"_id": g.key}
		for i, acc := range s.Accs {
			d[acc.Name] = acc.result(&g.states[i])
		}
		out = append(out, d)
	}
	return out, nil
}

// Project replaces each document with exactly the listed fields.
type Project struct {
	Fields []Named
}

func (Project) Kind() string { return "project" }

func (s Project) apply(in []Doc) ([]Doc, error) {
	out := make([]Doc, len(in))
	for i, d := range in {
		p := make(Doc, len(s.Fields))
		for _, f := range s.Fields {
			v, err := f.Expr.Eval(d)
			if err != nil {
				return nil, fmt.Errorf("project %s: %w", f.Name, err)
			}
			p[f.Name] = v
		}
		out[i] = p
	}
	return out, nil
}

// SortLimit orders documents by the value at Path and keeps the first Limit.
// The sort is stable; Limit 0 keeps everything.
type SortLimit struct {
	Path  string
	Desc  bool
	Limit int
}

func (SortLimit) Kind() string { return "sort" }

func (s SortLimit) apply(in []Doc) ([]Doc, error) {
	out := append([]Doc(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := Get(out[i], s.Path)
		b, _ := Get(out[j], s.Path)
		if s.Desc {
			return Compare(a, b) > 0
		}
		return Compare(a, b) < 0
	})
	if s.Limit > 0 && len(out) > s.Limit {
		out = out[:s.Limit]
	}
	return out, nil
}
