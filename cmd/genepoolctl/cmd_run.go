package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"genepool/internal/config"
	"genepool/internal/metrics"
	"genepool/pkg/genepool"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an experiment",
		Long: `Run an experiment from a YAML or TOML config file, or from flags alone.

Flags that are set explicitly override the config file.`,
		RunE: runRun,
	}
	cmd.Flags().String("config", "", "experiment config file (.yaml, .yml or .toml)")
	cmd.Flags().String("run-id", "", "run id (default: a new UUID)")
	cmd.Flags().Uint64("ticks", 0, "experiment ticks")
	cmd.Flags().Int64("seed", 0, "random seed")
	cmd.Flags().Int("pools", 1, "number of default pools when no config file is given")
	cmd.Flags().Int("target-size", 0, "target size of every pool")
	cmd.Flags().Int("group-size", 0, "group size of every pool")
	cmd.Flags().Uint64("eval-points", 0, "evaluation points per pool and tick (0 runs one tick per pool)")
	cmd.Flags().Uint64("shuffle-interval", 0, "migrate pool champions every n ticks")
	cmd.Flags().Int("workers", 0, "concurrent group evaluations per pool")
	cmd.Flags().String("scape", "", "scape scoring the genomes")
	cmd.Flags().String("log-dir", "", "directory for fitness.csv and status files")
	cmd.Flags().Bool("overwrite-logs", false, "replace an existing log directory")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	opts := readClientOptions(cmd)
	cfg, err := runConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	var recorder *metrics.Recorder
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		recorder = metrics.NewRecorder()
		shutdown, err := serveMetrics(addr, recorder)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	client, err := opts.newClient(cmd, recorder)
	if err != nil {
		return err
	}
	defer client.Close()

	start := time.Now()
	summary, err := client.Run(cmd.Context(), genepool.RunRequest{Config: cfg})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		return writeJSON(out, summary)
	}
	fmt.Fprintf(out, "run_id=%s ticks=%s best_fitness=%s elapsed=%s artifacts=%s\n",
		summary.RunID,
		humanize.Comma(int64(summary.Ticks)),
		humanize.Comma(int64(summary.BestFitness)),
		time.Since(start).Round(time.Millisecond),
		summary.ArtifactsDir,
	)
	for _, pool := range summary.Pools {
		fmt.Fprintf(out, "  pool=%s best_fitness=%s genome_words=%s\n",
			pool.Name, humanize.Comma(int64(pool.BestFitness)), humanize.Comma(int64(pool.GenomeLen)))
	}
	return nil
}

// runConfigFromFlags loads --config when given and applies explicitly set
// flags on top.
func runConfigFromFlags(cmd *cobra.Command) (*config.ExperimentConfig, error) {
	flags := cmd.Flags()
	var cfg *config.ExperimentConfig
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
		config.ApplyEnvOverrides(cfg)
		n, _ := flags.GetInt("pools")
		if n < 1 {
			return nil, errors.New("pools must be >= 1")
		}
		cfg.Pools = cfg.Pools[:0]
		for i := range n {
			pool := config.DefaultPool(fmt.Sprintf("pool-%d", i))
			pool.ReceiveExternal = n > 1
			cfg.Pools = append(cfg.Pools, pool)
		}
	}

	if flags.Changed("run-id") {
		cfg.RunID, _ = flags.GetString("run-id")
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if flags.Changed("ticks") {
		cfg.Ticks, _ = flags.GetUint64("ticks")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("eval-points") {
		cfg.EvalPointsPerTick, _ = flags.GetUint64("eval-points")
	}
	if flags.Changed("shuffle-interval") {
		cfg.ShuffleInterval, _ = flags.GetUint64("shuffle-interval")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("scape") {
		cfg.Scape, _ = flags.GetString("scape")
	}
	if flags.Changed("log-dir") {
		cfg.Logging.Dir, _ = flags.GetString("log-dir")
	}
	if flags.Changed("overwrite-logs") {
		cfg.Logging.Overwrite, _ = flags.GetBool("overwrite-logs")
	}
	for i := range cfg.Pools {
		if flags.Changed("target-size") {
			cfg.Pools[i].TargetSize, _ = flags.GetInt("target-size")
		}
		if flags.Changed("group-size") {
			cfg.Pools[i].GroupSize, _ = flags.GetInt("group-size")
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serveMetrics(addr string, recorder *metrics.Recorder) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(listener) }()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
