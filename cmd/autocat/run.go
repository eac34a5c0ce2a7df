package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/RMahshie/ftmwcat/internal/batch"
	"github.com/RMahshie/ftmwcat/internal/categorize"
	"github.com/RMahshie/ftmwcat/internal/fitting"
	"github.com/RMahshie/ftmwcat/internal/hardware"
	"github.com/RMahshie/ftmwcat/pkg/models"
)

type runOptions struct {
	fitMode        string
	threshold      float64
	clipLevel      float64
	policy         string
	maxAttenuation int
	seed           uint64
	noise          float64
	jsonOutput     bool
}

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run <batch.yaml>",
		Short: "Run a batch against the simulated spectrometer",
		Long: `Run loads a worklist and its diagnostic tests from a YAML batch file and
categorizes every entry using the built-in spectrometer simulator.

Examples:
  # Run a batch with the Fourier transform fitter
  autocat run survey.yaml

  # Categorize from raw signal intensity only
  autocat run --fit-mode none survey.yaml

  # Keep the strongest result per test and print JSON
  autocat run --policy strongest --json survey.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bf, err := LoadBatchFile(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			outcomes, err := runBatch(ctx, bf, opts)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			if opts.jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(outcomes); encErr != nil {
					return encErr
				}
			} else {
				printOutcomes(cmd.OutOrStdout(), outcomes)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.fitMode, "fit-mode", fitting.ModeFT, "Fitting engine (ft or none)")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0.02, "Minimum spectral amplitude of a detected line")
	cmd.Flags().Float64Var(&opts.clipLevel, "clip-level", fitting.DefaultClipLevel, "Signal level treated as saturated")
	cmd.Flags().StringVar(&opts.policy, "policy", "last", "Best result policy (last or strongest)")
	cmd.Flags().IntVar(&opts.maxAttenuation, "max-attenuation", 0, "Override the batch file maximum attenuation")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "Simulator noise seed")
	cmd.Flags().Float64Var(&opts.noise, "noise", 0.05, "Simulator single-shot noise level")
	cmd.Flags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output outcomes in JSON format")

	return cmd
}

// runBatch drives the batch to completion or cancellation and returns the
// outcomes of every finalized entry
func runBatch(ctx context.Context, bf *BatchFile, opts runOptions) ([]models.EntryOutcome, error) {
	maxAttenuation := bf.MaxAttenuation
	if opts.maxAttenuation > 0 {
		maxAttenuation = opts.maxAttenuation
	}

	analyzer := fitting.NewSignalAnalyzer(opts.clipLevel)
	fitter, err := fitting.New(opts.fitMode, opts.threshold, analyzer)
	if err != nil {
		return nil, err
	}
	selector, err := categorize.SelectorByName(opts.policy)
	if err != nil {
		return nil, err
	}

	driver, err := batch.New(bf.Entries, bf.Tests, maxAttenuation,
		batch.WithEngineOptions(
			categorize.WithSelector(selector),
			categorize.WithSignalAnalyzer(analyzer),
		),
		batch.WithPlotter(func(p models.PlotPayload) {
			log.Debug().Str("label", p.Label).Int("points", len(p.Points)).Msg("plot")
		}),
	)
	if err != nil {
		return nil, err
	}

	sim := hardware.NewSimulator(
		hardware.WithLines(bf.Lines...),
		hardware.WithNoise(opts.noise),
		hardware.WithSeed(opts.seed),
	)

	log.Info().
		Str("batch", bf.Name).
		Int("entries", driver.Len()).
		Int("shotEstimate", driver.TotalShotEstimate()).
		Msg("starting batch")

	for !driver.IsComplete() {
		if err := ctx.Err(); err != nil {
			log.Warn().Int("entry", driver.Index()).Msg("batch interrupted, discarding partial entry")
			return driver.Outcomes(), err
		}

		tmpl, _ := driver.NextScan()
		scan, err := sim.Execute(ctx, tmpl)
		if err != nil {
			return driver.Outcomes(), fmt.Errorf("scan failed: %w", err)
		}
		fit, err := fitter.Fit(ctx, scan)
		if err != nil {
			return driver.Outcomes(), fmt.Errorf("fit failed for scan %d: %w", scan.Number, err)
		}
		if _, err := driver.OnScanCompleted(scan, fit); err != nil {
			return driver.Outcomes(), err
		}
	}

	log.Info().Int("shots", driver.ShotsTaken()).Msg("batch complete")
	return driver.Outcomes(), nil
}

func printOutcomes(w io.Writer, outcomes []models.EntryOutcome) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRY\tFREQUENCY\tSCANS\tEXTRA ATTN\tLINES\tCATEGORY")
	for _, o := range outcomes {
		fmt.Fprintf(tw, "%d\t%.3f\t%d\t%d\t%v\t%s\n",
			o.EntryIndex, o.Frequency, o.Scans, o.ExtraAttenuation, o.Frequencies, colorCategory(o.Category))
	}
	tw.Flush()
}

func colorCategory(category string) string {
	switch category {
	case categorize.CategorySaturated:
		return color.RedString(category)
	case categorize.CategoryNotDetected:
		return color.YellowString(category)
	case categorize.CategoryCalibration:
		return color.CyanString(category)
	}
	return color.New(color.Bold, color.FgGreen).Sprint(category)
}
