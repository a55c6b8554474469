package exporter

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"github.com/exvulsec/permafrost/model"
)

// parquetSchema maps the table schema onto a parquet group. Every column
// is optional so null cells survive the round trip; decimals travel as
// strings to keep uint256 values lossless.
func parquetSchema(name string, columns []model.Column) *parquet.Schema {
	group := parquet.Group{}
	for _, c := range columns {
		var node parquet.Node
		switch c.Type {
		case model.TypeInt64:
			node = parquet.Int(64)
		case model.TypeInt32:
			node = parquet.Int(32)
		case model.TypeBool:
			node = parquet.Leaf(parquet.BooleanType)
		default:
			node = parquet.String()
		}
		group[c.Name] = parquet.Optional(node)
	}
	return parquet.NewSchema(name, group)
}

func writeParquet(w io.Writer, table *model.Table) error {
	schema := parquetSchema(table.Name, table.Columns)
	writer := parquet.NewGenericWriter[map[string]any](w, schema, parquet.Compression(&parquet.Snappy))
	rows := make([]map[string]any, 0, table.Len())
	for row := 0; row < table.Len(); row++ {
		obj := make(map[string]any, len(table.Columns))
		for _, c := range table.Columns {
			v := table.Value(c.Name, row)
			if v == nil {
				continue
			}
			if d, ok := v.(decimal.Decimal); ok {
				v = d.String()
			}
			obj[c.Name] = v
		}
		rows = append(rows, obj)
	}
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return err
		}
	}
	return writer.Close()
}

func readParquet(path, name string, columns []model.Column) (*model.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	schema := parquetSchema(name, columns)
	rows, err := parquet.Read[map[string]any](bytes.NewReader(data), int64(len(data)), schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	table := model.NewTable(name, columns)
	for _, obj := range rows {
		values := make([]any, len(columns))
		for i, c := range columns {
			v, err := parquetCell(obj[c.Name], c.Type)
			if err != nil {
				return nil, fmt.Errorf("%s column %s: %w", path, c.Name, err)
			}
			values[i] = v
		}
		if err := table.AppendRow(values...); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func parquetCell(v any, t model.ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case model.TypeString, model.TypeHex:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("got %T, want string", v)
		}
		return s, nil
	case model.TypeInt64:
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("got %T, want int64", v)
		}
		return n, nil
	case model.TypeInt32:
		n, ok := v.(int32)
		if !ok {
			return nil, fmt.Errorf("got %T, want int32", v)
		}
		return n, nil
	case model.TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("got %T, want bool", v)
		}
		return b, nil
	case model.TypeDecimal:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("got %T, want decimal string", v)
		}
		return decimal.NewFromString(s)
	}
	return nil, fmt.Errorf("unsupported column type %s", t)
}
