package pipeline

import (
	"fmt"
	"time"
)

// Expr computes a value from the current document.
type Expr interface {
	Eval(d Doc) (any, error)
}

// ExprFunc adapts a plain function to Expr.
type ExprFunc func(d Doc) (any, error)

// Eval implements Expr.
func (f ExprFunc) Eval(d Doc) (any, error) { return f(d) }

// Named pairs an output field name with the expression that fills it.
type Named struct {
	Name string
	Expr Expr
}

// As builds a Named.
func As(name string, e Expr) Named { return Named{Name: name, Expr: e} }

// Field reads a dotted path; missing fields evaluate to nil.
func Field(path string) Expr {
	return ExprFunc(func(d Doc) (any, error) {
		v, _ := Get(d, path)
		if t, ok := v.(*time.Time); ok {
			return derefTime(t), nil
		}
		return v, nil
	})
}

// Const always yields v.
func Const(v any) Expr {
	return ExprFunc(func(Doc) (any, error) { return v, nil })
}

// Add sums its operands. Any null operand makes the result null.
func Add(xs ...Expr) Expr {
	return ExprFunc(func(d Doc) (any, error) {
		var sum float64
		for _, x := range xs {
			v, err := x.Eval(d)
			if err != nil {
				return nil, err
			}
			if v == nil {
				return nil, nil
			}
			n, ok := Number(v)
			if !ok {
				return nil, fmt.Errorf("add %T: %w", v, ErrType)
			}
			sum += n
		}
		return sum, nil
	})
}

// Subtract computes a - b. Two timestamps subtract to milliseconds.
func Subtract(a, b Expr) Expr {
	return ExprFunc(func(d Doc) (any, error) {
		x, y, err := evalPair(d, a, b)
		if err != nil || x == nil || y == nil {
			return nil, err
		}
		if tx, ok := x.(time.Time); ok {
			ty, ok := y.(time.Time)
			if !ok {
				return nil, fmt.Errorf("subtract %T from time: %w", y, ErrType)
			}
			return float64(tx.Sub(ty).Milliseconds()), nil
		}
		nx, okx := Number(x)
		ny, oky := Number(y)
		if !okx || !oky {
			return nil, fmt.Errorf("subtract %T - %T: %w", x, y, ErrType)
		}
		return nx - ny, nil
	})
}

// Multiply computes the product of its operands; null in, null out.
func Multiply(xs ...Expr) Expr {
	return ExprFunc(func(d Doc) (any, error) {
		prod := 1.0
		for _, x := range xs {
			v, err := x.Eval(d)
			if err != nil {
				return nil, err
			}
			if v == nil {
				return nil, nil
			}
			n, ok := Number(v)
			if !ok {
				return nil, fmt.Errorf("multiply %T: %w", v, ErrType)
			}
			prod *= n
		}
		return prod, nil
	})
}

// Divide computes a / b. A zero or null divisor yields null.
func Divide(a, b Expr) Expr {
	return ExprFunc(func(d Doc) (any, error) {
		x, y, err := evalPair(d, a, b)
		if err != nil || x == nil || y == nil {
			return nil, err
		}
		nx, okx := Number(x)
		ny, oky := Number(y)
		if !okx || !oky {
			return nil, fmt.Errorf("divide %T / %T: %w", x, y, ErrType)
		}
		if ny == 0 {
			return nil, nil
		}
		return nx / ny, nil
	})
}

// Gte reports a >= b using Compare ordering.
func Gte(a, b Expr) Expr {
	return ExprFunc(func(d Doc) (any, error) {
		x, y, err := evalPair(d, a, b)
		if err != nil {
			return nil, err
		}
		return Compare(x, y) >= 0, nil
	})
}

// NotNull reports whether e evaluates to a non-null value.
func NotNull(e Expr) Expr {
	return ExprFunc(func(d Doc) (any, error) {
		v, err := e.Eval(d)
		if err != nil {
			return nil, err
		}
		return v != nil, nil
	})
}

// And is true when every operand is truthy.
func And(xs ...Expr) Expr {
	return ExprFunc(func(d Doc) (any, error) {
		for _, x := range xs {
			v, err := x.Eval(d)
			if err != nil {
				return nil, err
			}
			if !truthy(v) {
				return false, nil
			}
		}
		return true, nil
	})
}

// Cond yields then when cond is truthy, otherwise els.
func Cond(cond, then, els Expr) Expr {
	return ExprFunc(func(d Doc) (any, error) {
		v, err := cond.Eval(d)
		if err != nil {
			return nil, err
		}
		if truthy(v) {
			return then.Eval(d)
		}
		return els.Eval(d)
	})
}

// Object builds a sub-document from named expressions.
func Object(fields ...Named) Expr {
	return ExprFunc(func(d Doc) (any, error) {
		out := make(Doc, len(fields))
		for _, f := range fields {
			v, err := f.Expr.Eval(d)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
			out[f.Name] = v
		}
		return out, nil
	})
}

func evalPair(d Doc, a, b Expr) (any, any, error) {
	x, err := a.Eval(d)
	if err != nil {
		return nil, nil, err
	}
	y, err := b.Eval(d)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}
