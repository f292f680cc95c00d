package term

import (
	"errors"
	"testing"

	"rethinkdriver/internal/proto"
)

func table(db, name string) Term {
	return Call(proto.TermTable, []Term{Call(proto.TermDB, []Term{Datum(db)}, nil), Datum(name)}, nil)
}

func TestBuildQuery(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		qt   proto.QueryType
		term Term
		opts OptArgs
		want string
	}{
		{
			"start_no_opts",
			proto.QueryStart,
			table("test", "users"),
			nil,
			`[1,[15,[[14,["test"]],"users"]],{}]`,
		},
		{
			"start_db_opt",
			proto.QueryStart,
			table("test", "users"),
			OptArgs{"db": "mydb"},
			`[1,[15,[[14,["test"]],"users"]],{"db":[14,["mydb"]]}]`,
		},
		{
			"continue",
			proto.QueryContinue,
			Term{},
			nil,
			`[2]`,
		},
		{
			"stop",
			proto.QueryStop,
			Term{},
			nil,
			`[3]`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildQuery(tc.qt, tc.term, tc.opts)
			if err != nil {
				t.Fatalf("BuildQuery: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestBuildQueryUnsupportedType(t *testing.T) {
	t.Parallel()
	if _, err := BuildQuery(proto.QueryType(99), Term{}, nil); err == nil {
		t.Fatal("expected error for unsupported query type")
	}
}

func TestDatumMarshal(t *testing.T) {
	t.Parallel()
	got, err := Datum(42).MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(got) != "42" {
		t.Errorf("got %s, want 42", got)
	}
}

func TestErrTermPropagates(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("boom")
	if _, err := Err(sentinel).MarshalJSON(); !errors.Is(err, sentinel) {
		t.Errorf("expected sentinel error, got %v", err)
	}
}
