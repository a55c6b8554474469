package cmd

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/exvulsec/permafrost/config"
	"github.com/exvulsec/permafrost/datasets"
	"github.com/exvulsec/permafrost/extract"
	"github.com/exvulsec/permafrost/log"
	"github.com/exvulsec/permafrost/model"
	"github.com/exvulsec/permafrost/utils"
)

var freezeCmd = &cobra.Command{
	Use:   "freeze",
	Short: "extract datasets from a blockchain node into columnar files",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg, err := buildConfig(cmd)
		if err != nil {
			return err
		}
		startTime := time.Now()
		report, err := extract.Run(cmd.Context(), cfg)
		if report != nil {
			printReport(report)
		}
		if err != nil {
			return err
		}
		logrus.Infof("freeze finished in %s", utils.ElapsedTime(startTime))
		return nil
	},
}

func buildConfig(cmd *cobra.Command) (extract.Config, error) {
	flags := cmd.Flags()
	configFile, _ := flags.GetString("config")
	if configFile != "" {
		config.SetupConfig(configFile)
	}
	logPath, _ := flags.GetString("log_path")
	if logPath == "" {
		logPath = config.Conf.ETL.LogPath
	}
	log.InitLog(logPath)

	cfg := extract.Config{}
	cfg.Datasets, _ = flags.GetStringSlice("datasets")
	cfg.StartBlock, _ = flags.GetUint64("start_block")
	cfg.EndBlock, _ = flags.GetUint64("end_block")
	blocks, _ := flags.GetUintSlice("blocks")
	for _, b := range blocks {
		cfg.BlockNumbers = append(cfg.BlockNumbers, uint64(b))
	}
	cfg.Addresses, _ = flags.GetStringSlice("addresses")
	cfg.AtBlock, _ = flags.GetString("at_block")
	cfg.ChunkSize, _ = flags.GetUint64("chunk_size")
	cfg.AlignChunks, _ = flags.GetBool("align_chunks")
	cfg.MaxConcurrentRequests, _ = flags.GetInt("max_concurrent_requests")
	cfg.RequestsPerSecond, _ = flags.GetFloat64("requests_per_second")
	cfg.Burst, _ = flags.GetInt("burst")
	cfg.MaxRetries, _ = flags.GetInt("max_retries")
	cfg.BackoffBase, _ = flags.GetDuration("backoff_base")
	cfg.BackoffMultiplier, _ = flags.GetFloat64("backoff_multiplier")
	cfg.Jitter, _ = flags.GetBool("jitter")
	cfg.FailFast, _ = flags.GetBool("fail_fast")
	cfg.Destination, _ = flags.GetString("destination")
	cfg.OutputDir, _ = flags.GetString("output_dir")
	cfg.Format, _ = flags.GetString("format")
	cfg.Resume, _ = flags.GetBool("resume")
	cfg.NetworkLabel, _ = flags.GetString("network_label")
	cfg.ProviderURL, _ = flags.GetString("provider_url")
	cfg.SourceBackend, _ = flags.GetString("source_backend")
	cfg.RequestTimeout, _ = flags.GetDuration("request_timeout")
	cfg.LogAddresses, _ = flags.GetStringSlice("log_addresses")
	cfg.DryRun, _ = flags.GetBool("dry_run")

	topicString, _ := flags.GetString("log_topics")
	cfg.LogTopics = datasets.ParseTopics(topicString)

	if cfg.ProviderURL == "" {
		cfg.ProviderURL = config.Conf.ETL.ProviderURL
	}
	if cfg.NetworkLabel == "" {
		cfg.NetworkLabel = config.Conf.ETL.NetworkLabel
	}
	if cfg.ClientMaxConns == 0 {
		cfg.ClientMaxConns = config.Conf.ETL.ClientMaxConns
	}
	return cfg, nil
}

func printReport(report *model.RunReport) {
	summary := report.Summary()
	logrus.Infof("run summary: %s", summary)
	for _, failure := range report.Failures() {
		logrus.Errorf("failed chunk: dataset %s chunk %s kind %s after %d attempts: %v",
			failure.Dataset, failure.Label, failure.ErrKind, failure.Attempts, failure.Err)
	}
}

func freezeCmdInit() {
	freezeCmd.Flags().String("config", "", "set config file path")
	freezeCmd.Flags().String("log_path", "", "log file path")
	freezeCmd.Flags().StringSlice("datasets", []string{"blocks"}, "datasets to extract, split by comma")
	freezeCmd.Flags().Uint64("start_block", 0, "first block of the range, inclusive")
	freezeCmd.Flags().Uint64("end_block", 0, "last block of the range, inclusive")
	freezeCmd.Flags().UintSlice("blocks", nil, "explicit block number list instead of a range")
	freezeCmd.Flags().StringSlice("addresses", nil, "address list for address datasets")
	freezeCmd.Flags().String("at_block", "latest", "block tag for address datasets")
	freezeCmd.Flags().Uint64("chunk_size", 1000, "blocks or addresses per chunk")
	freezeCmd.Flags().Bool("align_chunks", false, "snap chunk boundaries to chunk size multiples")
	freezeCmd.Flags().Int("max_concurrent_requests", 4, "chunks processed concurrently")
	freezeCmd.Flags().Float64("requests_per_second", 10, "aggregate request rate limit")
	freezeCmd.Flags().Int("burst", 1, "rate limit burst capacity")
	freezeCmd.Flags().Int("max_retries", 3, "retries per round trip for transient failures")
	freezeCmd.Flags().Duration("backoff_base", 500*time.Millisecond, "base retry backoff delay")
	freezeCmd.Flags().Float64("backoff_multiplier", 2, "exponential backoff multiplier")
	freezeCmd.Flags().Bool("jitter", false, "randomize backoff delays")
	freezeCmd.Flags().Bool("fail_fast", false, "cancel pending chunks after the first failure")
	freezeCmd.Flags().String("destination", "file", "file, memory or postgres")
	freezeCmd.Flags().String("output_dir", "", "output directory for the file destination")
	freezeCmd.Flags().String("format", "parquet", "parquet, csv or jsonl")
	freezeCmd.Flags().Bool("resume", false, "skip chunks whose output file already exists")
	freezeCmd.Flags().String("network_label", "", "network label used in output file names")
	freezeCmd.Flags().String("provider_url", "", "node rpc url")
	freezeCmd.Flags().String("source_backend", "geth", "rpc backend: geth or http")
	freezeCmd.Flags().Duration("request_timeout", 30*time.Second, "timeout per round trip")
	freezeCmd.Flags().StringSlice("log_addresses", nil, "filter logs dataset to these addresses")
	freezeCmd.Flags().String("log_topics", "", "filter logs dataset to these topic0 values, split by comma")
	freezeCmd.Flags().Bool("dry_run", false, "partition and plan without any network calls")
}

func init() {
	freezeCmdInit()
}
