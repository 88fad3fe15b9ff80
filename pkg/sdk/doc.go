// Package sdk provides an HTTP client for a remote rowdex server.
//
// The client mirrors the REST API one to one: tables, rows, search and
// health. For an embedded engine inside the same process use the root
// rowdex package instead.
//
// # Connecting
//
//	client, _ := sdk.New("http://localhost:8080", sdk.WithAPIKey("secret"))
//	schema := []byte(`{"fields": {"name": {"type": "text"}, "age": {"type": "integer"}}}`)
//	client.Tables().Ensure(ctx, "users", schema)
//	client.Rows("users").Upsert(ctx, sdk.Row{
//	    Key:     "u1",
//	    Columns: map[string]any{"name": "Alice Smith", "age": 30},
//	})
//
// # Searching
//
//	resp, _ := client.Search("users").Run(ctx, &sdk.SearchRequest{
//	    Query: sdk.Bool().
//	        Must(sdk.Match("name", "smith")).
//	        Must(sdk.Range("age").Gte(18)),
//	    Sort:  []sdk.SortField{{Field: "age", Reverse: true}},
//	    Limit: 20,
//	})
package sdk
