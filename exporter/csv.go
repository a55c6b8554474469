package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/exvulsec/permafrost/model"
)

func writeCSV(w io.Writer, table *model.Table) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(table.Columns))
	for row := 0; row < table.Len(); row++ {
		for i, c := range table.Columns {
			s, err := cellString(table.Value(c.Name, row))
			if err != nil {
				return fmt.Errorf("row %d column %s: %w", row, c.Name, err)
			}
			record[i] = s
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readCSV(path, name string, columns []model.Column) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header row", path)
	}
	header := records[0]
	if len(header) != len(columns) {
		return nil, fmt.Errorf("%s: got %d columns, want %d", path, len(header), len(columns))
	}
	for i, c := range columns {
		if header[i] != c.Name {
			return nil, fmt.Errorf("%s: column %d is %q, want %q", path, i, header[i], c.Name)
		}
	}
	table := model.NewTable(name, columns)
	for _, record := range records[1:] {
		values := make([]any, len(columns))
		for i, c := range columns {
			v, err := parseCell(record[i], c.Type)
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
