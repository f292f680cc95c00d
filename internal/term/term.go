// Package term holds the opaque term-tree shape a query-building layer
// outside this driver would produce — a Datum/Call node and the envelope
// serialization that turns one into a START/CONTINUE/STOP query array. The
// driver never constructs or inspects a term's insides; it only encodes one
// it was handed.
package term

import (
	"encoding/json"
	"fmt"

	"rethinkdriver/internal/proto"
)

// Term is a single node of a ReQL term tree: either a raw Datum (termType
// zero) or a Call to termType with args and optional named opts.
type Term struct {
	termType proto.TermType
	datum    interface{}
	args     []Term
	opts     map[string]interface{}
	err      error
}

// Datum wraps a raw Go value (string, number, bool, nil, map, slice) as a leaf term.
func Datum(v interface{}) Term {
	return Term{datum: v}
}

// Call builds a Term invoking termType with the given argument terms and
// optional named arguments.
func Call(termType proto.TermType, args []Term, opts map[string]interface{}) Term {
	return Term{termType: termType, args: args, opts: opts}
}

// Err wraps a construction-time error so it surfaces from MarshalJSON instead
// of panicking during tree assembly.
func Err(err error) Term {
	return Term{err: err}
}

// MarshalJSON renders a Datum as its bare JSON value and a Call as
// [termType, [args...], {opts...}?] per the wire term format.
func (t Term) MarshalJSON() ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	if t.termType == 0 {
		return json.Marshal(t.datum)
	}
	args := t.args
	if args == nil {
		args = []Term{}
	}
	parts := []interface{}{int(t.termType), args}
	if len(t.opts) > 0 {
		parts = append(parts, t.opts)
	}
	return json.Marshal(parts)
}

// OptArgs are top-level Run options such as {"db": "test"} or
// {"read_mode": "outdated"}, attached as the third element of a START query.
type OptArgs map[string]interface{}

// BuildQuery serializes a full query envelope:
//
//	START:    [1, term, opts]
//	CONTINUE: [2]
//	STOP:     [3]
func BuildQuery(qt proto.QueryType, t Term, opts OptArgs) ([]byte, error) {
	switch qt {
	case proto.QueryContinue, proto.QueryStop:
		return json.Marshal([]interface{}{int(qt)})
	case proto.QueryStart:
		qOpts := make(map[string]interface{}, len(opts))
		for k, v := range opts {
			qOpts[k] = v
		}
		if name, ok := opts["db"].(string); ok {
			qOpts["db"] = DB(name)
		}
		return json.Marshal([]interface{}{int(qt), t, qOpts})
	default:
		return nil, fmt.Errorf("term: unsupported query type %d", qt)
	}
}

// DB wraps a database name as a DB term, the form the server expects for the
// "db" run option.
func DB(name string) Term {
	return Term{termType: proto.TermDB, args: []Term{Datum(name)}}
}
