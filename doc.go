// Package rowdex is an embeddable secondary-index search layer for
// row-oriented stores.
//
// Rows written to a table live authoritatively in a pluggable key-value
// store (in-process memory, Redis or Postgres) and are mirrored,
// best-effort, into an embedded Bleve index. Read queries are
// declarative JSON condition trees compiled against the table's schema
// of typed column mappers; hits are resolved back into rows from the
// authoritative store.
//
// # Low-level API: explicit control
//
//	eng, _ := rowdex.New(rowdex.WithDataDir("/var/lib/rowdex"))
//	eng.Tables().Create(ctx, "users",
//	    `{"fields": {"name": {"type": "text"}, "age": {"type": "integer"}}}`,
//	)
//	eng.Rows("users").Upsert(ctx, rowdex.Row{
//	    Key:     "u1",
//	    Columns: map[string]any{"name": "Alice Smith", "age": 30},
//	})
//	resp, _ := eng.Search("users").Search(ctx, []byte(
//	    `{"query": {"type": "match", "field": "name", "value": "smith"}}`,
//	))
//
// # High-level API: schema-first with Go generics
//
//	type User struct {
//	    ID   string `rowdex:"id,key"`
//	    Name string `rowdex:"name,text"`
//	    Age  int    `rowdex:"age,integer"`
//	}
//
//	users, _ := rowdex.NewTable[User](eng, "users")
//	_ = users.Ensure(ctx)
//	_ = users.Upsert(ctx, User{ID: "u1", Name: "Alice Smith", Age: 30})
//	hits, _ := users.Search().Match("name", "smith").Gte("age", 18).Do(ctx)
package rowdex
