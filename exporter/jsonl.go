package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"

	"github.com/exvulsec/permafrost/model"
)

// writeJSONL emits one JSON object per row. Decimal cells are written as
// strings so values above float precision survive the trip.
func writeJSONL(w io.Writer, table *model.Table) error {
	enc := json.NewEncoder(w)
	for row := 0; row < table.Len(); row++ {
		obj := make(map[string]any, len(table.Columns))
		for _, c := range table.Columns {
			v := table.Value(c.Name, row)
			if d, ok := v.(decimal.Decimal); ok {
				v = d.String()
			}
			obj[c.Name] = v
		}
		if err := enc.Encode(obj); err != nil {
			return err
		}
	}
	return nil
}

func readJSONL(path, name string, columns []model.Column) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table := model.NewTable(name, columns)
	dec := json.NewDecoder(f)
	dec.UseNumber()
	for {
		obj := map[string]any{}
		if err := dec.Decode(&obj); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		values := make([]any, len(columns))
		for i, c := range columns {
			v, err := jsonCell(obj[c.Name], c.Type)
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

func jsonCell(v any, t model.ColumnType) (any, error) {
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
		n, ok := v.(json.Number)
		if !ok {
			return nil, fmt.Errorf("got %T, want number", v)
		}
		return n.Int64()
	case model.TypeInt32:
		n, ok := v.(json.Number)
		if !ok {
			return nil, fmt.Errorf("got %T, want number", v)
		}
		i, err := n.Int64()
		return int32(i), err
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
