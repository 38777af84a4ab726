package sql

import (
	"reflect"
	"testing"
)

func TestParseTableRefs(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []TableRef
	}{
		{
			"single table",
			"SELECT * FROM users",
			[]TableRef{{Table: "users"}},
		},
		{
			"bare alias",
			"SELECT * FROM users u",
			[]TableRef{{Table: "users", Alias: "u"}},
		},
		{
			"as alias",
			"SELECT * FROM employees AS emp",
			[]TableRef{{Table: "employees", Alias: "emp"}},
		},
		{
			"schema qualified",
			"SELECT * FROM public.orders o",
			[]TableRef{{Schema: "public", Table: "orders", Alias: "o"}},
		},
		{
			"comma list",
			"SELECT * FROM a, b x, s.c AS y",
			[]TableRef{{Table: "a"}, {Table: "b", Alias: "x"}, {Schema: "s", Table: "c", Alias: "y"}},
		},
		{
			"joins",
			"SELECT * FROM a JOIN b ON a.id = b.a_id LEFT JOIN s.c cc ON cc.x = b.x",
			[]TableRef{{Table: "a"}, {Table: "b"}, {Schema: "s", Table: "c", Alias: "cc"}},
		},
		{
			"extract is not a table",
			"SELECT EXTRACT(YEAR FROM created_at) FROM orders",
			[]TableRef{{Table: "orders"}},
		},
		{
			"substring is not a table",
			"SELECT SUBSTRING(name FROM 2) FROM users",
			[]TableRef{{Table: "users"}},
		},
		{
			"trim is not a table",
			"SELECT TRIM(BOTH 'x' FROM name) FROM users",
			[]TableRef{{Table: "users"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTableRefs(tt.sql)
			// Positions vary per input; compare the stable fields.
			for i := range got {
				got[i].Pos = 0
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestAliasMap(t *testing.T) {
	m := AliasMap("SELECT * FROM users u JOIN public.orders ON orders.user_id = u.id")

	if m["u"] != "users" {
		t.Errorf(`m["u"] = %q, want "users"`, m["u"])
	}
	if m["orders"] != "orders" {
		t.Errorf(`m["orders"] = %q, want "orders"`, m["orders"])
	}
	if _, ok := m["users"]; ok {
		t.Error("aliased table must not be addressable by its bare name")
	}
}

func TestReferencedTablesSubquery(t *testing.T) {
	got := ReferencedTables("SELECT * FROM (SELECT id FROM inner_t) sub JOIN outer_t o ON o.id = sub.id")

	want := []string{"inner_t", "outer_t"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCTENames(t *testing.T) {
	names := CTENames("WITH recent AS (SELECT 1), totals (a, b) AS (SELECT 1, 2) SELECT * FROM recent")
	if !names["recent"] || !names["totals"] {
		t.Errorf("missing CTE names: %v", names)
	}
	if len(CTENames("SELECT 1")) != 0 {
		t.Error("non-CTE statement produced names")
	}
}
