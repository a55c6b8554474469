package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ColumnType is the closed set of column value types. Decimal columns are
// backed by shopspring decimals so uint256 values never get truncated.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeHex
	TypeInt64
	TypeInt32
	TypeBool
	TypeDecimal
)

func (t ColumnType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeHex:
		return "hex"
	case TypeInt64:
		return "int64"
	case TypeInt32:
		return "int32"
	case TypeBool:
		return "bool"
	case TypeDecimal:
		return "decimal"
	}
	return "unknown"
}

type Column struct {
	Name string
	Type ColumnType
}

// Series is one homogeneously typed column. Values may be nil (null cell).
type Series struct {
	Type   ColumnType
	values []any
}

func (s *Series) Len() int {
	return len(s.values)
}

func (s *Series) Value(row int) any {
	return s.values[row]
}

func (s *Series) check(v any) error {
	if v == nil {
		return nil
	}
	var ok bool
	switch s.Type {
	case TypeString, TypeHex:
		_, ok = v.(string)
	case TypeInt64:
		_, ok = v.(int64)
	case TypeInt32:
		_, ok = v.(int32)
	case TypeBool:
		_, ok = v.(bool)
	case TypeDecimal:
		_, ok = v.(decimal.Decimal)
	}
	if !ok {
		return fmt.Errorf("series type %s got value %T", s.Type, v)
	}
	return nil
}

func (s *Series) Append(v any) error {
	if err := s.check(v); err != nil {
		return err
	}
	s.values = append(s.values, v)
	return nil
}

// Table is the column oriented output for one (dataset, chunk) pair. All
// columns stay equal length, row order is chunk-local fetch order.
type Table struct {
	Name    string
	Columns []Column
	series  map[string]*Series
}

func NewTable(name string, columns []Column) *Table {
	series := make(map[string]*Series, len(columns))
	for _, c := range columns {
		series[c.Name] = &Series{Type: c.Type}
	}
	return &Table{Name: name, Columns: columns, series: series}
}

func (t *Table) Len() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.series[t.Columns[0].Name].Len()
}

func (t *Table) Series(name string) *Series {
	return t.series[name]
}

func (t *Table) Value(column string, row int) any {
	return t.series[column].Value(row)
}

// AppendRow appends one value per column, in declared column order. The
// whole row is validated before anything is appended so a bad value never
// leaves ragged columns behind.
func (t *Table) AppendRow(values ...any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("table %s: row has %d values, want %d", t.Name, len(values), len(t.Columns))
	}
	for i, c := range t.Columns {
		if err := t.series[c.Name].check(values[i]); err != nil {
			return fmt.Errorf("table %s column %s: %w", t.Name, c.Name, err)
		}
	}
	for i, c := range t.Columns {
		s := t.series[c.Name]
		s.values = append(s.values, values[i])
	}
	return nil
}

// Row returns one row as a column name keyed map, used by the sinks.
func (t *Table) Row(row int) map[string]any {
	out := make(map[string]any, len(t.Columns))
	for _, c := range t.Columns {
		out[c.Name] = t.series[c.Name].Value(row)
	}
	return out
}
