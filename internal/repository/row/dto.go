package row

import (
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"

	domrow "github.com/kailas-cloud/rowdex/internal/domain/row"
)

// rowDTO is the storage shape of a row. Column values keep their decoded
// Go types; msgpack preserves ints, floats, bools and strings without the
// float64 coercion JSON would apply.
type rowDTO struct {
	Key     string         `msgpack:"key"`
	Columns map[string]any `msgpack:"columns"`
}

func encodeRow(r domrow.Row) ([]byte, error) {
	data, err := msgpack.Marshal(rowDTO{Key: r.Key(), Columns: r.Columns()})
	if err != nil {
		return nil, fmt.Errorf("encode row %s: %w", r.Key(), err)
	}
	return data, nil
}

func decodeRow(data []byte) (domrow.Row, error) {
	var dto rowDTO
	if err := msgpack.Unmarshal(data, &dto); err != nil {
		return domrow.Row{}, fmt.Errorf("decode row: %w", err)
	}
	normalizeColumns(dto.Columns)
	return domrow.Reconstruct(dto.Key, dto.Columns), nil
}

// normalizeColumns widens numeric values back to the types the row
// contract promises. The codec picks the narrowest wire width per value
// (int8 for small ints, unsigned codes for non-negative ones), so
// without this a stored 30 would come back as int8(30) and break every
// caller comparing against int64.
func normalizeColumns(columns map[string]any) {
	for k, v := range columns {
		switch n := v.(type) {
		case int8:
			columns[k] = int64(n)
		case int16:
			columns[k] = int64(n)
		case int32:
			columns[k] = int64(n)
		case int:
			columns[k] = int64(n)
		case uint8:
			columns[k] = int64(n)
		case uint16:
			columns[k] = int64(n)
		case uint32:
			columns[k] = int64(n)
		case uint64:
			// Значения больше MaxInt64 остаются uint64.
			if n <= math.MaxInt64 {
				columns[k] = int64(n)
			}
		case float32:
			columns[k] = float64(n)
		}
	}
}
