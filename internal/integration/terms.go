//go:build integration

package integration

import (
	"rethinkdriver/internal/proto"
	"rethinkdriver/internal/term"
)

func db(name string) term.Term {
	return term.DB(name)
}

func table(dbName, tableName string) term.Term {
	return term.Call(proto.TermTable, []term.Term{db(dbName), term.Datum(tableName)}, nil)
}

func dbCreate(name string) term.Term {
	return term.Call(proto.TermDBCreate, []term.Term{term.Datum(name)}, nil)
}

func dbDrop(name string) term.Term {
	return term.Call(proto.TermDBDrop, []term.Term{term.Datum(name)}, nil)
}

func tableCreate(dbName, tableName string) term.Term {
	return term.Call(proto.TermTableCreate, []term.Term{db(dbName), term.Datum(tableName)}, nil)
}

func insert(dbName, tableName string, doc map[string]interface{}) term.Term {
	return term.Call(proto.TermInsert, []term.Term{table(dbName, tableName), term.Datum(doc)}, nil)
}

func changes(dbName, tableName string) term.Term {
	return term.Call(proto.TermChanges, []term.Term{table(dbName, tableName)}, nil)
}
