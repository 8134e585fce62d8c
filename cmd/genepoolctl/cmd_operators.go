package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"genepool/internal/evo"
	"genepool/internal/scape"
)

func newOperatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operators",
		Short: "List the registered alteration operators",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := readClientOptions(cmd)
			names := evo.ListOperators()
			if opts.jsonOut {
				type operatorItem struct {
					Name            string `json:"name"`
					GenomesRequired int    `json:"genomes_required"`
					Default         bool   `json:"default"`
				}
				items := make([]operatorItem, 0, len(names))
				for _, name := range names {
					op, err := evo.ResolveOperator(name)
					if err != nil {
						return err
					}
					items = append(items, operatorItem{Name: name, GenomesRequired: op.GenomesRequired(), Default: isDefaultAlteration(name)})
				}
				return writeJSON(cmd.OutOrStdout(), items)
			}
			for _, name := range names {
				op, err := evo.ResolveOperator(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s genomes_required=%d default=%t\n", name, op.GenomesRequired(), isDefaultAlteration(name))
			}
			return nil
		},
	}
}

func isDefaultAlteration(name string) bool {
	return slices.Contains(evo.DefaultAlterationKeys, name)
}

func newScapesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scapes",
		Short: "List the registered scapes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range scape.List() {
				s, err := scape.Resolve(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s mode=%s\n", name, s.Mode())
			}
			return nil
		},
	}
}
