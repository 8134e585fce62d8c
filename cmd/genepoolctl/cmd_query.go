package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"genepool/pkg/genepool"
)

func addQueryFlags(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().String("run-id", "", "run id")
	cmd.Flags().Bool("latest", false, "use the most recent run")
	cmd.Flags().Int("pool", -1, "only this pool id (-1 for all pools)")
	cmd.Flags().Int("limit", defaultLimit, "max rows to print (0 for all)")
}

func readQuery(cmd *cobra.Command) (genepool.QueryRequest, error) {
	runID, _ := cmd.Flags().GetString("run-id")
	latest, _ := cmd.Flags().GetBool("latest")
	pool, _ := cmd.Flags().GetInt("pool")
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 0 {
		return genepool.QueryRequest{}, errors.New("limit must be >= 0")
	}
	req := genepool.QueryRequest{RunID: runID, Latest: latest, Limit: limit}
	if pool >= 0 {
		req.PoolID = &pool
	}
	return req, nil
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := readClientOptions(cmd)
			limit, _ := cmd.Flags().GetInt("limit")
			client, err := opts.newClient(cmd, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			runs, err := client.Runs(cmd.Context(), genepool.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs found")
				return nil
			}
			for _, run := range runs {
				created := run.CreatedAtUTC
				if t, err := time.Parse(time.RFC3339, run.CreatedAtUTC); err == nil {
					created = humanize.Time(t)
				}
				fmt.Fprintf(out, "run_id=%s created=%q scape=%s seed=%d pools=%d ticks=%s best_fitness=%s completed=%t\n",
					run.RunID, created, run.Scape, run.Seed, len(run.Pools),
					humanize.Comma(int64(run.Ticks)), humanize.Comma(int64(run.BestFitness)), run.Completed)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "max runs to list (0 for all)")
	return cmd
}

func newDiagnosticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Show per-tick pool diagnostics of a run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := readClientOptions(cmd)
			req, err := readQuery(cmd)
			if err != nil {
				return err
			}
			client, err := opts.newClient(cmd, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			diagnostics, err := client.Diagnostics(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, diagnostics)
			}
			for _, d := range diagnostics {
				fmt.Fprintf(out, "tick=%d pool=%s population=%d evaluated=%d best=%d mean=%.3f std=%.3f p0=%.0f p25=%.0f p75=%.0f p100=%.0f max_rank=%d culled=%d offspring=%d diversity=%d mean_len=%.1f\n",
					d.Tick, d.PoolName, d.Population, d.Evaluated, d.BestFitness, d.MeanFitness, d.StdDevFitness,
					d.P0, d.P25, d.P75, d.P100, d.MaxRank, d.Culled, d.Offspring, d.FingerprintDiversity, d.MeanGenomeLength)
			}
			return nil
		},
	}
	addQueryFlags(cmd, 50)
	return cmd
}

func newLineageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lineage",
		Short: "Show how offspring of a run were produced",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := readClientOptions(cmd)
			req, err := readQuery(cmd)
			if err != nil {
				return err
			}
			client, err := opts.newClient(cmd, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			lineage, err := client.Lineage(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, lineage)
			}
			for _, rec := range lineage {
				fmt.Fprintf(out, "tick=%d pool=%d uid=%d parents=%v operation=%s fingerprint=%s\n",
					rec.Tick, rec.PoolID, rec.UID, rec.Parents, rec.Operation, rec.Fingerprint)
			}
			return nil
		},
	}
	addQueryFlags(cmd, 50)
	return cmd
}

func newTopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the champion genome of every pool of a run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := readClientOptions(cmd)
			req, err := readQuery(cmd)
			if err != nil {
				return err
			}
			client, err := opts.newClient(cmd, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			top, err := client.TopGenomes(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, top)
			}
			for _, g := range top {
				fitness := "n/a"
				if g.Member.MaxFitness != nil {
					fitness = humanize.Comma(int64(*g.Member.MaxFitness))
				}
				fmt.Fprintf(out, "pool=%s uid=%d fitness=%s rank=%d evaluations=%d words=%d frames=%d fingerprint=%s\n",
					g.PoolName, g.Member.UID, fitness, g.Member.Rank, g.Member.NumEvaluations,
					len(g.Member.Raw), g.Member.Frames, g.Member.Fingerprint)
			}
			return nil
		},
	}
	addQueryFlags(cmd, 0)
	return cmd
}

func newReferenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Show reference trial results of a run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := readClientOptions(cmd)
			req, err := readQuery(cmd)
			if err != nil {
				return err
			}
			client, err := opts.newClient(cmd, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			results, err := client.ReferenceResults(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, results)
			}
			for _, r := range results {
				fmt.Fprintf(out, "tick=%d pool=%d uid=%d fitness=%d\n", r.Tick, r.PoolID, r.UID, r.Fitness)
			}
			return nil
		},
	}
	addQueryFlags(cmd, 50)
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy the artifacts of a run to another directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := readClientOptions(cmd)
			runID, _ := cmd.Flags().GetString("run-id")
			latest, _ := cmd.Flags().GetBool("latest")
			outDir, _ := cmd.Flags().GetString("out")
			client, err := opts.newClient(cmd, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Export(cmd.Context(), genepool.ExportRequest{RunID: runID, Latest: latest, OutDir: outDir})
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported run_id=%s dir=%s\n", summary.RunID, summary.Directory)
			return nil
		},
	}
	cmd.Flags().String("run-id", "", "run id")
	cmd.Flags().Bool("latest", false, "export the most recent run")
	cmd.Flags().String("out", defaultExportsDir, "output directory")
	return cmd
}
