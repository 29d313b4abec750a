package pipeline

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

func run(t *testing.T, stages []Stage, docs []Doc) []Doc {
	t.Helper()
	out, err := Run(context.Background(), stages, docs)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	return out
}

func TestUnwind(t *testing.T) {
	docs := []Doc{
		{"_id": "a", "items": []any{Doc{"p": 1.0}, Doc{"p": 2.0}}},
		{"_id": "b", "items": []any{}},
		{"_id": "c"},
		{"_id": "d", "items": nil},
	}
	out := run(t, []Stage{Unwind{Path: "items"}}, docs)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	for i, want := range []float64{1, 2} {
		if out[i]["_id"] != "a" {
			t.Fatalf("out[%d]._id = %v, want a", i, out[i]["_id"])
		}
		if v, _ := Get(out[i], "items.p"); v != want {
			t.Fatalf("out[%d].items.p = %v, want %v", i, v, want)
		}
	}
	// input untouched
	if _, ok := docs[0]["items"].([]any); !ok {
		t.Fatalf("input document was modified: %T", docs[0]["items"])
	}
}

func TestUnwind_NonArrayIsError(t *testing.T) {
	_, err := Run(context.Background(), []Stage{Unwind{Path: "items"}}, []Doc{{"items": "x"}})
	if !errors.Is(err, ErrNotArray) {
		t.Fatalf("err = %v, want ErrNotArray", err)
	}
}

func TestDerive_KeepsExistingFields(t *testing.T) {
	out := run(t, []Stage{
		Derive{Name: "revenue", Expr: Add(Field("items.price"), Field("items.freight_value"))},
	}, []Doc{{"items": Doc{"price": 10.0, "freight_value": 2.0}}})
	if out[0]["revenue"] != 12.0 {
		t.Fatalf("revenue = %v, want 12", out[0]["revenue"])
	}
	if v, _ := Get(out[0], "items.price"); v != 10.0 {
		t.Fatalf("items.price = %v, want 10", v)
	}
}

func TestGroupBy_FirstSeenOrderAndNullKey(t *testing.T) {
	docs := []Doc{
		{"k": "b", "v": 1.0},
		{"k": nil, "v": 5.0},
		{"k": "a", "v": 2.0},
		{"k": "b", "v": 3.0},
		{"v": 7.0},
	}
	out := run(t, []Stage{GroupBy{
		Key:  Field("k"),
		Accs: []Accumulator{Sum("total", Field("v")), Count("n"), Push("vs", Field("v"))},
	}}, docs)

	want := []Doc{
		{"_id": "b", "total": 4.0, "n": int64(2), "vs": []any{1.0, 3.0}},
		{"_id": nil, "total": 12.0, "n": int64(2), "vs": []any{5.0, 7.0}},
		{"_id": "a", "total": 2.0, "n": int64(1), "vs": []any{2.0}},
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("GroupBy = %#v\nwant %#v", out, want)
	}
}

func TestGroupBy_SingleGroupEmptyInput(t *testing.T) {
	out := run(t, []Stage{GroupBy{Accs: []Accumulator{Count("n")}}}, nil)
	if len(out) != 0 {
		t.Fatalf("len(out) = %d, want 0", len(out))
	}
}

func TestAccumulators_SumIgnoresNonNumericAvgNull(t *testing.T) {
	docs := []Doc{{"v": "x"}, {"v": nil}, {}}
	out := run(t, []Stage{GroupBy{Accs: []Accumulator{
		Sum("s", Field("v")), Avg("a", Field("v")),
	}}}, docs)
	if out[0]["s"] != 0.0 {
		t.Fatalf("sum = %v, want 0", out[0]["s"])
	}
	if out[0]["a"] != nil {
		t.Fatalf("avg = %v, want nil", out[0]["a"])
	}
}

func TestSortLimit(t *testing.T) {
	docs := []Doc{
		{"id": 1, "v": 2.0},
		{"id": 2, "v": nil},
		{"id": 3, "v": 5.0},
		{"id": 4, "v": 2.0},
	}
	out := run(t, []Stage{SortLimit{Path: "v", Desc: true, Limit: 3}}, docs)
	var ids []int
	for _, d := range out {
		ids = append(ids, d["id"].(int))
	}
	if !reflect.DeepEqual(ids, []int{3, 1, 4}) {
		t.Fatalf("ids = %v, want [3 1 4]", ids)
	}

	out = run(t, []Stage{SortLimit{Path: "v"}}, docs)
	if out[0]["id"] != 2 || len(out) != 4 {
		t.Fatalf("ascending: first id = %v len=%d, want null-valued id 2 and 4 docs", out[0]["id"], len(out))
	}
}

func TestExprs(t *testing.T) {
	t0 := time.Date(2018, 1, 10, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(36 * time.Hour)
	d := Doc{"a": 6.0, "b": 3, "z": 0, "t0": &t0, "t1": t1, "n": nil}

	cases := []struct {
		name string
		e    Expr
		want any
	}{
		{"add", Add(Field("a"), Field("b")), 9.0},
		{"add null", Add(Field("a"), Field("n")), nil},
		{"sub time", Subtract(Field("t1"), Field("t0")), float64(36 * time.Hour / time.Millisecond)},
		{"mul", Multiply(Const(100), Field("b")), 300.0},
		{"div", Divide(Field("a"), Field("b")), 2.0},
		{"div zero", Divide(Field("a"), Field("z")), nil},
		{"div missing", Divide(Field("a"), Field("missing")), nil},
		{"gte", Gte(Field("b"), Const(2)), true},
		{"gte null", Gte(Field("n"), Const(2)), false},
		{"notnull", NotNull(Field("t0")), true},
		{"notnull missing", NotNull(Field("missing")), false},
		{"and", And(NotNull(Field("a")), NotNull(Field("n"))), false},
		{"cond", Cond(Gte(Field("a"), Const(5)), Const(1), Const(0)), 1},
		{"object", Object(As("x", Field("a"))), Doc{"x": 6.0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.e.Eval(d)
			if err != nil {
				t.Fatalf("Eval error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Eval = %#v, want %#v", got, tc.want)
			}
		})
	}

	if _, err := Add(Const("x")).Eval(d); !errors.Is(err, ErrType) {
		t.Fatalf("Add(string) err = %v, want ErrType", err)
	}
}

func TestMatchAndProject(t *testing.T) {
	docs := []Doc{{"a": 1.0, "b": 2.0}, {"a": nil, "b": 3.0}}
	out := run(t, []Stage{
		Match{Pred: NotNull(Field("a"))},
		Project{Fields: []Named{As("sum", Add(Field("a"), Field("b")))}},
	}, docs)
	if !reflect.DeepEqual(out, []Doc{{"sum": 3.0}}) {
		t.Fatalf("out = %#v", out)
	}
}

func TestExecutor_StatsAndCancel(t *testing.T) {
	var e Executor
	stages := []Stage{Unwind{Path: "xs"}, GroupBy{Accs: []Accumulator{Count("n")}}}
	out, err := e.Run(context.Background(), stages, []Doc{{"xs": []any{1, 2, 3}}})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out[0]["n"] != int64(3) {
		t.Fatalf("n = %v, want 3", out[0]["n"])
	}
	if len(e.Stats) != 2 || e.Stats[0].Out != 3 || e.Stats[1].In != 3 || e.Stats[1].Out != 1 {
		t.Fatalf("Stats = %+v", e.Stats)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Run(ctx, stages, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled Run err = %v, want context.Canceled", err)
	}
}

func TestCompare(t *testing.T) {
	if Compare(nil, -math.MaxFloat64) >= 0 {
		t.Fatalf("null should sort below numbers")
	}
	if Compare(2, 2.0) != 0 {
		t.Fatalf("int and float of equal value should compare equal")
	}
	if Compare("a", 5) <= 0 {
		t.Fatalf("strings should sort above numbers")
	}
}
