package transform

import (
	"errors"
	"testing"

	"giftetl/pkg/table"
)

type stubTransformer struct {
	name string
	fn   func(table.Table) (table.Table, error)
}

func (s stubTransformer) Name() string                                 { return s.name }
func (s stubTransformer) Transform(in table.Table) (table.Table, error) { return s.fn(in) }

func TestRunReturnsInputOnError(t *testing.T) {
	in := table.MustNew([]string{"a"}, []table.Row{{"a": "x"}})
	tr := stubTransformer{name: "boom", fn: func(table.Table) (table.Table, error) {
		return table.Table{}, errors.New("broken")
	}}
	res := Run(tr, testLogger(), in)
	if !res.FellBack || res.Err == nil {
		t.Fatalf("res = %+v, want fallback with error", res)
	}
	if res.Table.Len() != 1 {
		t.Fatalf("fallback table rows = %d, want input unchanged", res.Table.Len())
	}
}

func TestRunRecoversPanic(t *testing.T) {
	in := table.MustNew([]string{"a"}, []table.Row{{"a": "x"}})
	tr := stubTransformer{name: "panicky", fn: func(table.Table) (table.Table, error) {
		panic("unexpected")
	}}
	res := Run(tr, testLogger(), in)
	if !res.FellBack || res.Err == nil {
		t.Fatalf("res = %+v, want fallback with error", res)
	}
	if res.Table.Len() != 1 {
		t.Fatal("panic must yield the untouched input table")
	}
}

func TestChainReportsFirstError(t *testing.T) {
	in := table.MustNew([]string{"a"}, []table.Row{{"a": "x"}})
	first := errors.New("first failure")
	c := Chain{
		stubTransformer{name: "ok", fn: func(t table.Table) (table.Table, error) { return t, nil }},
		stubTransformer{name: "bad1", fn: func(table.Table) (table.Table, error) { return table.Table{}, first }},
		stubTransformer{name: "bad2", fn: func(table.Table) (table.Table, error) { return table.Table{}, errors.New("second") }},
	}
	res := c.Run(testLogger(), in)
	if !res.FellBack {
		t.Fatal("expected chain to report fallback")
	}
	if !errors.Is(res.Err, first) {
		t.Fatalf("err = %v, want first failure", res.Err)
	}
	if res.Table.Len() != 1 {
		t.Fatalf("final table rows = %d, want input carried through", res.Table.Len())
	}
}
