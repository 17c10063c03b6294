// Command ra is the reconstructability-analysis CLI: it parses a
// dataset, prints its contingency table, fits a single model, or runs
// the parallel beam search over the model lattice.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gitrdm/gorecon/internal/config"
	"github.com/gitrdm/gorecon/internal/search"
	"github.com/gitrdm/gorecon/pkg/ra"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	root := &cobra.Command{
		Use:   "ra",
		Short: "reconstructability-analysis model search and fit",
	}
	root.AddCommand(tableCmd(), fitCmd(), searchCmd(sugar))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a raerr sentinel to the CLI's documented exit codes:
// 0 success, 1 invalid input, 2 everything else (numeric divergence,
// internal invariant violations).
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if strings.Contains(err.Error(), "invalid input") {
		return 1
	}
	return 2
}

func loadDataset(path, format string) (*ra.VariableList, *ra.ContingencyTable, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("open dataset %q: %w", path, err)
	}
	defer f.Close()

	var spec *ra.DataSpec
	switch config.Format(format) {
	case config.FormatLegacy:
		legacy, err := ra.ParseLegacyIn(f)
		if err != nil {
			return nil, nil, 0, err
		}
		spec, err = legacy.ToJSON(true)
		if err != nil {
			return nil, nil, 0, err
		}
	default:
		spec, err = ra.ParseDataSpec(f)
		if err != nil {
			return nil, nil, 0, err
		}
	}

	vl, err := spec.ToVariableList()
	if err != nil {
		return nil, nil, 0, err
	}
	table, err := spec.ToTable(vl)
	if err != nil {
		return nil, nil, 0, err
	}
	n := table.Sum()
	table.Sort()
	if err := table.Normalize(); err != nil {
		return nil, nil, 0, err
	}
	return vl, table, n, nil
}

func tableCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "table <dataset>",
		Short: "Parse a dataset and print its sorted, normalized contingency table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vl, table, n, err := loadDataset(args[0], format)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VARIABLE\tABBREV\tCARDINALITY")
			for i := 0; i < vl.Len(); i++ {
				v := vl.At(ra.VariableIndex(i))
				fmt.Fprintf(w, "%s\t%s\t%d\n", v.Name, v.Abbrev, v.Cardinality)
			}
			w.Flush()
			fmt.Printf("\nsample size: %.0f, %d distinct rows\n\n", n, table.Len())
			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tPROBABILITY")
			for i := 0; i < table.Len(); i++ {
				k, p := table.At(i)
				fmt.Fprintf(w, "%s\t%.6f\n", formatKey(vl, k), p)
			}
			w.Flush()
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(config.FormatJSON), "dataset format: json or legacy-in")
	return cmd
}

func fitCmd() *cobra.Command {
	var format, statistic string
	cmd := &cobra.Command{
		Use:   "fit <dataset> <model>",
		Short: "Fit one model (colon-separated relations, e.g. \"AB:BC\") and print its statistics",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vl, table, n, err := loadDataset(args[0], format)
			if err != nil {
				return err
			}
			vb := ra.NewVBManager(vl, table, n)
			model, err := vb.MakeModel(args[1])
			if err != nil {
				return err
			}
			stats, err := vb.ComputeStats(model)
			if err != nil {
				return err
			}
			fmt.Printf("model:        %s\n", model.PrintName(vl))
			fmt.Printf("H:            %.6f\n", stats.H)
			fmt.Printf("transmission: %.6f\n", stats.T)
			fmt.Printf("df:           %d\n", stats.DF)
			fmt.Printf("LR:           %.6f\n", stats.LR)
			fmt.Printf("pearson:      %.6f\n", stats.P2)
			fmt.Printf("AIC:          %.6f\n", stats.AIC)
			fmt.Printf("BIC:          %.6f\n", stats.BIC)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(config.FormatJSON), "dataset format: json or legacy-in")
	cmd.Flags().StringVar(&statistic, "statistic", "aic", "statistic to report (informational only for fit)")
	return cmd
}

func searchCmd(logger *zap.SugaredLogger) *cobra.Command {
	var (
		format     string
		configPath string
		width      int
		levels     int
		statistic  string
		filterName string
		direction  string
		workers    int
	)
	cmd := &cobra.Command{
		Use:   "search <dataset>",
		Short: "Beam-search the model lattice for the best-fitting model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := config.Load(configPath, config.Defaults())
			if err != nil {
				return err
			}
			if config.Format(format) == config.FormatLegacy {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open dataset %q: %w", args[0], err)
				}
				legacy, err := ra.ParseLegacyIn(f)
				f.Close()
				if err != nil {
					return err
				}
				run = config.MergeLegacyDirectives(run, legacy)
			}
			if cmd.Flags().Changed("width") {
				run.Width = width
			}
			if cmd.Flags().Changed("levels") {
				run.MaxLevels = levels
			}
			if cmd.Flags().Changed("statistic") {
				run.Statistic = statistic
			}
			if cmd.Flags().Changed("filter") {
				run.Filter = filterName
			}
			if cmd.Flags().Changed("direction") {
				run.Direction = direction
			}
			if cmd.Flags().Changed("workers") {
				run.Workers = workers
			}

			vl, table, n, err := loadDataset(args[0], format)
			if err != nil {
				return err
			}

			stat, err := config.StatisticFromString(run.Statistic)
			if err != nil {
				return err
			}
			filter, err := config.FilterFromString(run.Filter)
			if err != nil {
				return err
			}
			dir := search.Ascending
			if run.Direction == "descending" {
				dir = search.Descending
			}

			driver := search.New(vl, table, n, search.Config{
				Width:     run.Width,
				MaxLevels: run.MaxLevels,
				Statistic: stat,
				Filter:    filter,
				Direction: dir,
				Workers:   run.Workers,
				Logger:    logger,
				Progress: func(event interface{}) {
					switch e := event.(type) {
					case ra.SearchLevel:
						fmt.Printf("level %d/%d: %d evaluated, best %s = %.4f (%s)\n",
							e.CurrentLevel, e.TotalLevels, e.TotalModelsEvaluated, e.StatisticName, e.BestStatistic, e.BestModelName)
					case ra.SearchComplete:
						fmt.Printf("done: %d evaluated, best %s = %.4f (%s)\n",
							e.TotalModelsEvaluated, e.StatisticName, e.BestStatistic, e.BestModelName)
					}
				},
			})
			defer driver.Close()

			seed, err := ra.NewVBManager(vl, table, n).BottomRefModel()
			if err != nil {
				return err
			}

			result, err := driver.Run(context.Background(), seed)
			if err != nil {
				return err
			}
			fmt.Printf("\nbest model: %s (%s = %.4f, %d models evaluated)\n",
				result.Best.PrintName(vl), result.BestStatisticName, result.BestValue, result.TotalEvaluated)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(config.FormatJSON), "dataset format: json or legacy-in")
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML run-config file")
	cmd.Flags().IntVar(&width, "width", 0, "beam width")
	cmd.Flags().IntVar(&levels, "levels", 0, "maximum search levels")
	cmd.Flags().StringVar(&statistic, "statistic", "", "statistic to optimize: aic, bic, lr")
	cmd.Flags().StringVar(&filterName, "filter", "", "neighbour filter: full, loopless, disjoint, chain")
	cmd.Flags().StringVar(&direction, "direction", "", "search direction: ascending, descending")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size")
	return cmd
}

// formatKey renders a packed Key as "abbrev=value" pairs, skipping
// variables marginalized to DontCare.
func formatKey(vl *ra.VariableList, k ra.Key) string {
	var parts []string
	for i := 0; i < vl.Len(); i++ {
		vi := ra.VariableIndex(i)
		if k.IsDontCare(vl, vi) {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%d", vl.At(vi).Abbrev, k.GetValue(vl, vi)))
	}
	return strings.Join(parts, ",")
}
