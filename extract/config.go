// Package extract drives one extraction run end to end: it resolves
// dataset descriptors, partitions domains, schedules chunks and funnels
// finished tables into the configured sink.
package extract

import (
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/exvulsec/permafrost/chunk"
	"github.com/exvulsec/permafrost/datasets"
	"github.com/exvulsec/permafrost/model"
)

const (
	DestinationFile     = "file"
	DestinationMemory   = "memory"
	DestinationPostgres = "postgres"
)

const (
	BackendGeth = "geth"
	BackendHTTP = "http"
)

// Config is the full option surface of one run. Invalid combinations are
// rejected by Validate before any network activity.
type Config struct {
	Datasets []string

	// Domain: either a contiguous block range, an explicit block number
	// list, or an address list, depending on the dataset kind.
	StartBlock   uint64
	EndBlock     uint64
	BlockNumbers []uint64
	Addresses    []string
	// AtBlock pins address datasets to a block: "latest", "earliest",
	// "pending" or a decimal block number.
	AtBlock string

	ChunkSize   uint64
	AlignChunks bool

	MaxConcurrentRequests int
	RequestsPerSecond     float64
	Burst                 int
	MaxRetries            int
	BackoffBase           time.Duration
	BackoffMultiplier     float64
	Jitter                bool
	FailFast              bool

	Destination string
	OutputDir   string
	Format      string
	Resume      bool

	NetworkLabel   string
	ProviderURL    string
	SourceBackend  string
	RequestTimeout time.Duration
	ClientMaxConns int

	// Optional logs dataset filter.
	LogAddresses []string
	LogTopics    []string

	DryRun bool
}

func (c Config) withDefaults() Config {
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.MaxConcurrentRequests == 0 {
		c.MaxConcurrentRequests = 4
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 10
	}
	if c.Burst == 0 {
		c.Burst = 1
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = 2
	}
	if c.Destination == "" {
		c.Destination = DestinationFile
	}
	if c.Format == "" {
		c.Format = "parquet"
	}
	if c.SourceBackend == "" {
		c.SourceBackend = BackendGeth
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.ClientMaxConns == 0 {
		c.ClientMaxConns = 64
	}
	if c.NetworkLabel == "" {
		c.NetworkLabel = "ethereum"
	}
	if c.AtBlock == "" {
		c.AtBlock = "latest"
	}
	return c
}

func (c Config) Validate() error {
	if len(c.Datasets) == 0 {
		return model.NewConfigError("no datasets requested")
	}
	if c.ChunkSize == 0 {
		return model.NewConfigError("chunk size must be greater than zero")
	}
	if c.ProviderURL == "" {
		return model.NewConfigError("provider url is empty")
	}
	if c.SourceBackend != BackendGeth && c.SourceBackend != BackendHTTP {
		return model.NewConfigError("unknown source backend %q, want %s or %s", c.SourceBackend, BackendGeth, BackendHTTP)
	}
	if c.RequestsPerSecond <= 0 {
		return model.NewConfigError("requests per second must be positive")
	}
	if c.Burst < 1 {
		return model.NewConfigError("burst capacity must be at least 1")
	}
	if c.MaxConcurrentRequests < 1 {
		return model.NewConfigError("max concurrent requests must be at least 1")
	}
	if c.MaxRetries < 0 {
		return model.NewConfigError("max retries cannot be negative")
	}
	if c.BackoffMultiplier < 1 {
		return model.NewConfigError("backoff multiplier must be at least 1")
	}
	switch c.Destination {
	case DestinationFile:
		if c.OutputDir == "" {
			return model.NewConfigError("output directory is empty")
		}
	case DestinationMemory, DestinationPostgres:
	default:
		return model.NewConfigError("unknown destination %q", c.Destination)
	}
	if _, err := blockTag(c.AtBlock); err != nil {
		return err
	}
	for _, name := range c.Datasets {
		ds, err := datasets.Lookup(name)
		if err != nil {
			return err
		}
		if _, err := c.domainFor(ds); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) domainFor(ds datasets.Dataset) (chunk.Domain, error) {
	switch ds.Domain() {
	case datasets.BlockDomain:
		if len(c.BlockNumbers) > 0 {
			return chunk.NumberList(c.BlockNumbers), nil
		}
		if c.StartBlock > c.EndBlock {
			return nil, model.NewConfigError("inverted block range: start %d > end %d", c.StartBlock, c.EndBlock)
		}
		return chunk.BlockRange{Start: c.StartBlock, End: c.EndBlock}, nil
	case datasets.AddressDomain:
		if len(c.Addresses) == 0 {
			return nil, model.NewConfigError("dataset %s needs an address list", ds.Name())
		}
		return chunk.AddressList(c.Addresses), nil
	}
	return nil, model.NewConfigError("dataset %s has an unknown domain kind", ds.Name())
}

// blockTag normalizes the AtBlock option to a JSON-RPC block tag.
func blockTag(s string) (string, error) {
	switch s {
	case "latest", "earliest", "pending":
		return s, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return "", model.NewConfigError("at-block must be latest, earliest, pending or a block number, got %q", s)
	}
	return hexutil.EncodeUint64(n), nil
}
