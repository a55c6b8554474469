package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/exvulsec/permafrost/chunk"
	"github.com/exvulsec/permafrost/model"
)

// FileSink writes one file per (dataset, chunk) under a single directory.
// Files are published atomically: written to a tmp name, then renamed.
type FileSink struct {
	dir      string
	network  string
	format   Format
	resume   bool
	existing mapset.Set[string]
}

// NewFileSink validates the destination up front so an unwritable directory
// or unsupported format fails before any scheduling starts.
func NewFileSink(dir, network string, format Format, resume bool) (*FileSink, error) {
	if dir == "" {
		return nil, model.NewConfigError("output directory is empty")
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, model.NewConfigError("cannot create output directory %s: %v", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".permafrost-probe-*")
	if err != nil {
		return nil, model.NewConfigError("output directory %s is not writable: %v", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	sink := &FileSink{
		dir:      dir,
		network:  network,
		format:   format,
		resume:   resume,
		existing: mapset.NewSet[string](),
	}
	if resume {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, model.NewConfigError("cannot scan output directory %s: %v", dir, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				sink.existing.Add(entry.Name())
			}
		}
		logrus.Infof("resume scan found %d files in %s", sink.existing.Cardinality(), dir)
	}
	return sink, nil
}

// Path is the deterministic output location for a chunk, whether or not
// it was written yet.
func (s *FileSink) Path(dataset string, ch chunk.Chunk) string {
	return filepath.Join(s.dir, FileName(s.network, dataset, ch, s.format))
}

func (s *FileSink) Completed(dataset string, ch chunk.Chunk) bool {
	return s.resume && s.existing.Contains(FileName(s.network, dataset, ch, s.format))
}

func (s *FileSink) Write(dataset string, ch chunk.Chunk, table *model.Table) (string, error) {
	path := s.Path(dataset, ch)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", tmp, err)
	}
	switch s.format {
	case FormatParquet:
		err = writeParquet(f, table)
	case FormatCSV:
		err = writeCSV(f, table)
	case FormatJSONL:
		err = writeJSONL(f, table)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("publish %s: %w", path, err)
	}
	return path, nil
}

// ReadTableFile reads a written file back into a table with the given
// schema. Every supported format round-trips column names, types and
// values exactly.
func ReadTableFile(path, name string, columns []model.Column, format Format) (*model.Table, error) {
	switch format {
	case FormatParquet:
		return readParquet(path, name, columns)
	case FormatCSV:
		return readCSV(path, name, columns)
	case FormatJSONL:
		return readJSONL(path, name, columns)
	}
	return nil, model.NewConfigError("unsupported format %q", format)
}
