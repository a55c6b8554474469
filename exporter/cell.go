package exporter

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/exvulsec/permafrost/model"
)

// cellString renders one cell for delimited output. Nulls render empty.
func cellString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case bool:
		return strconv.FormatBool(x), nil
	case decimal.Decimal:
		return x.String(), nil
	}
	return "", fmt.Errorf("unsupported cell type %T", v)
}

// parseCell converts the textual rendering back to a typed value. The empty
// string reads back as null.
func parseCell(s string, t model.ColumnType) (any, error) {
	if s == "" {
		return nil, nil
	}
	switch t {
	case model.TypeString, model.TypeHex:
		return s, nil
	case model.TypeInt64:
		return strconv.ParseInt(s, 10, 64)
	case model.TypeInt32:
		v, err := strconv.ParseInt(s, 10, 32)
		return int32(v), err
	case model.TypeBool:
		return strconv.ParseBool(s)
	case model.TypeDecimal:
		return decimal.NewFromString(s)
	}
	return nil, fmt.Errorf("unsupported column type %s", t)
}
