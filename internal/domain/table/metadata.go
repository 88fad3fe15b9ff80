package table

// Metadata is a live snapshot of the backing table handed to index option
// validation: the column names the store currently knows. A nil *Metadata
// means no live table is available and validation is schema-only.
type Metadata struct {
	Name    string
	Columns []string
}
