// Package datasets is the static catalogue of extractable dataset kinds.
// Each dataset maps a chunk to the raw fetch operations it needs and
// decodes the raw payloads into one columnar table.
package datasets

import (
	"fmt"
	"sort"

	"github.com/exvulsec/permafrost/chunk"
	"github.com/exvulsec/permafrost/model"
)

// DomainKind tells the coordinator what kind of domain a dataset is
// partitioned over.
type DomainKind int

const (
	BlockDomain DomainKind = iota
	AddressDomain
)

type Dataset interface {
	Name() string
	Domain() DomainKind
	Columns() []model.Column
	// Plan lists the round trips needed for one chunk, in a fixed order.
	Plan(ch chunk.Chunk) []model.Operation
	// Decode converts the raw payloads, aligned with Plan order, into one
	// table. Decode is pure; it never touches the network.
	Decode(ch chunk.Chunk, raws [][]byte) (*model.Table, error)
}

// DecodeError marks a payload that survived the source adapter but does
// not match the dataset schema. Always terminal for its chunk.
type DecodeError struct {
	Dataset string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Dataset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(dataset, format string, args ...any) *DecodeError {
	return &DecodeError{Dataset: dataset, Err: fmt.Errorf(format, args...)}
}

// The registry is a closed set, populated at init and never mutated after.
var registry = map[string]Dataset{}

func register(ds Dataset) {
	registry[ds.Name()] = ds
}

func Lookup(name string) (Dataset, error) {
	ds, ok := registry[name]
	if !ok {
		return nil, model.NewConfigError("unknown dataset %q, known datasets: %v", name, Names())
	}
	return ds, nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
