// Package exporter persists finished tables. File names are deterministic
// per (network, dataset, chunk) so re-running an identical request can
// detect and skip chunks that were already written.
package exporter

import (
	"fmt"

	"github.com/exvulsec/permafrost/chunk"
	"github.com/exvulsec/permafrost/model"
)

type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
	FormatJSONL   Format = "jsonl"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatParquet, FormatCSV, FormatJSONL:
		return Format(s), nil
	}
	return "", model.NewConfigError("unsupported format %q, supported: parquet, csv, jsonl", s)
}

func (f Format) Ext() string {
	return string(f)
}

// Sink writes one table per (dataset, chunk) and reports whether a chunk's
// output already exists for resume mode.
type Sink interface {
	Write(dataset string, ch chunk.Chunk, table *model.Table) (string, error)
	Completed(dataset string, ch chunk.Chunk) bool
}

// FileName builds the canonical output name for a chunk, with zero padded
// bounds for lexicographic sort order.
func FileName(network, dataset string, ch chunk.Chunk, format Format) string {
	return fmt.Sprintf("%s__%s__%s.%s", network, dataset, ch.Label(), format.Ext())
}
