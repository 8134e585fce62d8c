package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"genepool/internal/config"
	"genepool/internal/logging"
	"genepool/internal/metrics"
	"genepool/pkg/genepool"
)

const (
	defaultDBPath       = "genepool.db"
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "genepoolctl",
		Short: "Run and inspect gene pool experiments",
		Long: `genepoolctl evolves populations of framed genomes by tournament ranking.

Runs are stored in a sqlite database (or in memory) and their artifacts are
written under the artifacts directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("store", "sqlite", "store backend: memory|sqlite")
	rootCmd.PersistentFlags().String("db-path", defaultDBPath, "sqlite database path")
	rootCmd.PersistentFlags().String("artifacts-dir", defaultArtifactsDir, "run artifacts directory")
	rootCmd.PersistentFlags().String("log-level", "", "log level: info|debug|trace (default $"+config.EnvLogLevel+" or info)")
	rootCmd.PersistentFlags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(
		newRunCmd(),
		newRunsCmd(),
		newDiagnosticsCmd(),
		newLineageCmd(),
		newTopCmd(),
		newReferenceCmd(),
		newExportCmd(),
		newOperatorsCmd(),
		newScapesCmd(),
	)
	return rootCmd
}

// clientOptions carries the persistent flags shared by every command.
type clientOptions struct {
	storeKind    string
	dbPath       string
	artifactsDir string
	logLevel     string
	jsonOut      bool
}

func readClientOptions(cmd *cobra.Command) clientOptions {
	storeKind, _ := cmd.Flags().GetString("store")
	dbPath, _ := cmd.Flags().GetString("db-path")
	artifactsDir, _ := cmd.Flags().GetString("artifacts-dir")
	logLevel, _ := cmd.Flags().GetString("log-level")
	jsonOut, _ := cmd.Flags().GetBool("json")
	if logLevel == "" {
		logLevel = os.Getenv(config.EnvLogLevel)
	}
	return clientOptions{
		storeKind:    storeKind,
		dbPath:       dbPath,
		artifactsDir: artifactsDir,
		logLevel:     logLevel,
		jsonOut:      jsonOut,
	}
}

func (o clientOptions) logger(w io.Writer) *slog.Logger {
	return logging.NewLogger(o.logLevel, w)
}

func (o clientOptions) newClient(cmd *cobra.Command, recorder *metrics.Recorder) (*genepool.Client, error) {
	return genepool.New(genepool.Options{
		StoreKind:    o.storeKind,
		DBPath:       o.dbPath,
		ArtifactsDir: o.artifactsDir,
		ExportsDir:   defaultExportsDir,
		Logger:       o.logger(cmd.ErrOrStderr()),
		Metrics:      recorder,
	})
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
