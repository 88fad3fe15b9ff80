package table

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	domtab "github.com/kailas-cloud/rowdex/internal/domain/table"
)

// tableDTO is the storage shape of a table definition.
type tableDTO struct {
	Name      string            `msgpack:"name"`
	Schema    string            `msgpack:"schema"`
	Options   map[string]string `msgpack:"options"`
	CreatedAt int64             `msgpack:"created_at"`
	Version   int               `msgpack:"version"`
}

func encodeTable(t domtab.Table) ([]byte, error) {
	data, err := msgpack.Marshal(tableDTO{
		Name:      t.Name(),
		Schema:    t.SchemaJSON(),
		Options:   t.Options(),
		CreatedAt: t.CreatedAt(),
		Version:   t.Version(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode table %s: %w", t.Name(), err)
	}
	return data, nil
}

func decodeTable(data []byte) (domtab.Table, error) {
	var dto tableDTO
	if err := msgpack.Unmarshal(data, &dto); err != nil {
		return domtab.Table{}, fmt.Errorf("decode table: %w", err)
	}
	return domtab.Reconstruct(dto.Name, dto.Schema, dto.Options, dto.CreatedAt, dto.Version), nil
}
