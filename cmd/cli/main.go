package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gospike/adapters/excel"
	"gospike/adapters/stats/engine"
	"gospike/domain/core"
	"gospike/domain/spikes"
	"gospike/domain/ue"
	"gospike/internal/report"
	"gospike/internal/testkit"
)

type analysisFlags struct {
	binSize  float64
	winSize  float64
	winStep  float64
	alpha    float64
	patterns []uint
	method   string
	workers  int
	asJSON   bool
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "gospike-cli",
		Short: "Sliding-window unitary events analysis of parallel spike trains",
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newDemoCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.binSize, "bin", 5, "Bin size in ms")
	cmd.Flags().Float64Var(&f.winSize, "win", 100, "Window size in ms")
	cmd.Flags().Float64Var(&f.winStep, "step", 10, "Window step in ms")
	cmd.Flags().Float64Var(&f.alpha, "alpha", ue.DefaultSignificanceLevel, "Significance level")
	cmd.Flags().UintSliceVarP(&f.patterns, "pattern", "p", nil, "Pattern hash to test (repeatable; default: all-neurons coincidence)")
	cmd.Flags().StringVar(&f.method, "method", "", "Estimation method: trial_by_trial or trial_average")
	cmd.Flags().IntVar(&f.workers, "workers", 1, "Parallel window workers")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Emit the raw result JSON instead of a report")
}

func (f *analysisFlags) params(numNeurons int) ue.Params {
	hashes := make([]ue.PatternHash, len(f.patterns))
	for i, p := range f.patterns {
		hashes[i] = ue.PatternHash(p)
	}
	if len(hashes) == 0 {
		// all-neurons coincidence
		hashes = []ue.PatternHash{ue.PatternHash(1<<numNeurons - 1)}
	}
	return ue.Params{
		BinSize:           core.Millis(f.binSize),
		WinSize:           core.Millis(f.winSize),
		WinStep:           core.Millis(f.winStep),
		PatternHashes:     hashes,
		SignificanceLevel: f.alpha,
		Method:            ue.EstimationMethod(f.method),
	}
}

func newAnalyzeCmd() *cobra.Command {
	flags := &analysisFlags{}
	var tStart, tStop float64

	cmd := &cobra.Command{
		Use:   "analyze [spike-file]",
		Short: "Analyze a spike dataset from an xlsx or csv file",
		Long: `Analyze a recorded spike dataset. The file needs a header row and one
spike per row with columns trial, neuron, time_ms.

Example: gospike-cli analyze spikes.xlsx --t-stop 2000 --bin 5 --win 100 --step 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := excel.NewDataReader(args[0])
			set, err := reader.ReadTrialSet(core.Millis(tStart), core.Millis(tStop))
			if err != nil {
				return err
			}
			return runAnalysis(cmd.Context(), set, flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().Float64Var(&tStart, "t-start", 0, "Trial start in ms")
	cmd.Flags().Float64Var(&tStop, "t-stop", 0, "Trial stop in ms (required)")
	cmd.MarkFlagRequired("t-stop")

	return cmd
}

func newDemoCmd() *cobra.Command {
	flags := &analysisFlags{}
	var seed uint64
	var numNeurons, numTrials int
	var rateHz, coincHz, spanMs float64

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the pipeline on a synthetic single interaction process",
		Long: `Generate a single interaction process (independent Poisson backgrounds
plus injected exact coincidences) and analyze it. With a nonzero
coincidence rate the report should show significant windows.

Example: gospike-cli demo --rate 20 --coinc 2 --trials 40 --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kit := testkit.New(seed)
			set, err := kit.SIPTrialSet(numNeurons, rateHz, coincHz, numTrials, 0, core.Millis(spanMs))
			if err != nil {
				return err
			}
			return runAnalysis(cmd.Context(), set, flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().IntVar(&numNeurons, "neurons", 2, "Number of neurons")
	cmd.Flags().IntVar(&numTrials, "trials", 40, "Number of trials")
	cmd.Flags().Float64Var(&rateHz, "rate", 20, "Total firing rate per neuron in Hz")
	cmd.Flags().Float64Var(&coincHz, "coinc", 2, "Injected coincidence rate in Hz")
	cmd.Flags().Float64Var(&spanMs, "span", 2000, "Trial duration in ms")

	return cmd
}

func runAnalysis(ctx context.Context, set *spikes.TrialSet, flags *analysisFlags) error {
	eng, err := engine.New(set, flags.params(set.NumNeurons))
	if err != nil {
		return err
	}

	var result *ue.AnalysisResult
	if flags.workers > 1 {
		result, err = eng.RunParallel(ctx, int64(flags.workers))
	} else {
		result, err = eng.Run(ctx)
	}
	if err != nil {
		return err
	}

	if flags.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	md, err := report.NewGenerator().Markdown(result)
	if err != nil {
		return err
	}
	fmt.Print(md)
	return nil
}
