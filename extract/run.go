package extract

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/exvulsec/permafrost/chunk"
	"github.com/exvulsec/permafrost/client"
	"github.com/exvulsec/permafrost/datasets"
	"github.com/exvulsec/permafrost/datastore"
	"github.com/exvulsec/permafrost/executor"
	"github.com/exvulsec/permafrost/exporter"
	"github.com/exvulsec/permafrost/model"
)

// Run executes one extraction run and returns the per-chunk report. The
// returned error is a ConfigError when the run never started, or a
// PartialRunFailure when some chunks failed.
func Run(ctx context.Context, cfg Config) (*model.RunReport, error) {
	cfg = cfg.withDefaults()
	sink, err := newSink(cfg)
	if err != nil {
		return nil, err
	}
	return run(ctx, cfg, sink)
}

// RunCollect is the programmatic entry point: it forces the in-memory sink
// and hands the collected tables back to the caller, keyed dataset/chunk.
func RunCollect(ctx context.Context, cfg Config) (*model.RunReport, map[string]*model.Table, error) {
	cfg = cfg.withDefaults()
	cfg.Destination = DestinationMemory
	sink := exporter.NewMemorySink()
	report, err := run(ctx, cfg, sink)
	if report == nil {
		return nil, nil, err
	}
	return report, sink.Tables(), err
}

func newSink(cfg Config) (exporter.Sink, error) {
	switch cfg.Destination {
	case DestinationFile:
		format, err := exporter.ParseFormat(cfg.Format)
		if err != nil {
			return nil, err
		}
		return exporter.NewFileSink(cfg.OutputDir, cfg.NetworkLabel, format, cfg.Resume)
	case DestinationMemory:
		return exporter.NewMemorySink(), nil
	case DestinationPostgres:
		return exporter.NewPostgresSink(datastore.DB(), cfg.NetworkLabel), nil
	}
	return nil, model.NewConfigError("unknown destination %q", cfg.Destination)
}

func newSource(cfg Config) (client.Source, error) {
	switch cfg.SourceBackend {
	case BackendHTTP:
		return client.NewHTTPSource(cfg.ProviderURL, cfg.RequestTimeout, cfg.ClientMaxConns), nil
	default:
		return client.NewGethSource(cfg.ProviderURL, cfg.RequestTimeout)
	}
}

// resolveDataset looks a dataset up and applies the run's filters to it.
// The registry entry itself is never mutated.
func resolveDataset(cfg Config, name string) (datasets.Dataset, error) {
	ds, err := datasets.Lookup(name)
	if err != nil {
		return nil, err
	}
	if filterable, ok := ds.(interface {
		WithFilter(addresses, topics []string) datasets.Dataset
	}); ok && (len(cfg.LogAddresses) > 0 || len(cfg.LogTopics) > 0) {
		ds = filterable.WithFilter(cfg.LogAddresses, cfg.LogTopics)
	}
	if pinnable, ok := ds.(interface {
		AtBlock(tag string) datasets.Dataset
	}); ok {
		tag, err := blockTag(cfg.AtBlock)
		if err != nil {
			return nil, err
		}
		ds = pinnable.AtBlock(tag)
	}
	return ds, nil
}

type plannedDataset struct {
	dataset datasets.Dataset
	chunks  []chunk.Chunk
}

func run(ctx context.Context, cfg Config, sink exporter.Sink) (*model.RunReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// resolve and partition everything before the first network call so
	// configuration problems abort the whole run up front
	planned := make([]plannedDataset, 0, len(cfg.Datasets))
	for _, name := range cfg.Datasets {
		ds, err := resolveDataset(cfg, name)
		if err != nil {
			return nil, err
		}
		domain, err := cfg.domainFor(ds)
		if err != nil {
			return nil, err
		}
		chunks, err := chunk.Partition(domain, cfg.ChunkSize, cfg.AlignChunks)
		if err != nil {
			return nil, err
		}
		planned = append(planned, plannedDataset{dataset: ds, chunks: chunks})
	}

	if cfg.DryRun {
		for _, p := range planned {
			ops := 0
			for _, ch := range p.chunks {
				ops += len(p.dataset.Plan(ch))
			}
			logrus.Infof("dry run: dataset %s needs %d chunks, %d round trips", p.dataset.Name(), len(p.chunks), ops)
		}
		return model.NewRunReport(), nil
	}

	source, err := newSource(cfg)
	if err != nil {
		return nil, err
	}

	report := model.NewRunReport()
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	exec := executor.New(source, limiter, executor.Options{
		MaxWorkers:        cfg.MaxConcurrentRequests,
		MaxRetries:        cfg.MaxRetries,
		BackoffBase:       cfg.BackoffBase,
		BackoffMultiplier: cfg.BackoffMultiplier,
		Jitter:            cfg.Jitter,
		FailFast:          cfg.FailFast,
	})

	// datasets run concurrently but share one executor, so the global
	// concurrency and rate budgets hold across all of them
	g, runCtx := errgroup.WithContext(ctx)
	for _, p := range planned {
		p := p
		g.Go(func() error {
			return runDataset(runCtx, cfg, exec, sink, report, p)
		})
	}
	err = g.Wait()
	report.Finish()
	if err != nil && !errors.Is(err, context.Canceled) {
		return report, err
	}
	return report, report.Err()
}

func runDataset(ctx context.Context, cfg Config, exec *executor.Executor, sink exporter.Sink, report *model.RunReport, p plannedDataset) error {
	name := p.dataset.Name()

	pending := make([]chunk.Chunk, 0, len(p.chunks))
	for _, ch := range p.chunks {
		if sink.Completed(name, ch) {
			output := ""
			if fs, ok := sink.(*exporter.FileSink); ok {
				output = fs.Path(name, ch)
			}
			report.Resumed(name, ch.Label(), output)
			logrus.Infof("dataset %s chunk %s already written, skipping", name, ch.Label())
			continue
		}
		pending = append(pending, ch)
	}
	if len(pending) == 0 {
		return nil
	}

	handle := func(ch chunk.Chunk, raws [][]byte) error {
		table, err := p.dataset.Decode(ch, raws)
		if err != nil {
			return err
		}
		output, err := sink.Write(name, ch, table)
		if err != nil {
			return err
		}
		report.Completed(name, ch.Label(), table.Len(), output)
		logrus.Infof("dataset %s chunk %s completed with %d rows", name, ch.Label(), table.Len())
		return nil
	}

	outcomes := exec.Execute(ctx, pending, p.dataset.Plan, handle)
	var failed error
	for _, o := range outcomes {
		if o.Err == nil {
			continue
		}
		kind := errKind(o)
		report.Failed(name, o.Chunk.Label(), kind, o.Attempts, o.Err)
		if failed == nil {
			failed = o.Err
		}
	}
	if cfg.FailFast && failed != nil {
		return failed
	}
	return nil
}

func errKind(o executor.Outcome) string {
	if o.Skipped {
		return "skipped"
	}
	var de *datasets.DecodeError
	if errors.As(o.Err, &de) {
		return "decode"
	}
	if kind := client.Kind(o.Err); kind != "unknown" {
		return kind
	}
	if errors.Is(o.Err, context.Canceled) {
		return "canceled"
	}
	return "internal"
}
