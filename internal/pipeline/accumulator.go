package pipeline

// AccOp selects the per-group aggregate an Accumulator computes.
type AccOp int

const (
	OpSum AccOp = iota
	OpAvg
	OpCount
	OpPush
)

func (o AccOp) String() string {
	switch o {
	case OpSum:
		return "sum"
	case OpAvg:
		return "avg"
	case OpCount:
		return "count"
	case OpPush:
		return "push"
	}
	return "unknown"
}

// Accumulator is one output field of a GroupBy stage.
type Accumulator struct {
	Name string
	Op   AccOp
	Expr Expr // unused by Count
}

// Sum adds the numeric values of e; non-numeric values are skipped.
func Sum(name string, e Expr) Accumulator { return Accumulator{Name: name, Op: OpSum, Expr: e} }

// Avg averages the numeric values of e, or yields null when there are none.
func Avg(name string, e Expr) Accumulator { return Accumulator{Name: name, Op: OpAvg, Expr: e} }

// Count counts the documents in the group.
func Count(name string) Accumulator { return Accumulator{Name: name, Op: OpCount} }

// Push collects e for every document in arrival order.
func Push(name string, e Expr) Accumulator { return Accumulator{Name: name, Op: OpPush, Expr: e} }

// accState is the running state of one accumulator within one group.
type accState struct {
	sum   float64
	n     int64
	count int64
	items []any
}

func (a Accumulator) add(st *accState, d Doc) error {
	if a.Op == OpCount {
		st.count++
		return nil
	}
	v, err := a.Expr.Eval(d)
	if err != nil {
		return err
	}
	switch a.Op {
	case OpSum, OpAvg:
		if n, ok := Number(v); ok {
			st.sum += n
			st.n++
		}
	case OpPush:
		st.items = append(st.items, v)
	}
	return nil
}

func (a Accumulator) result(st *accState) any {
	switch a.Op {
	case OpSum:
		return st.sum
	case OpAvg:
		if st.n == 0 {
			return nil
		}
		return st.sum / float64(st.n)
	case OpCount:
		return st.count
	case OpPush:
		if st.items == nil {
			return []any{}
		}
		return st.items
	}
	return nil
}
