package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/kiln/internal/furnace"
	"github.com/roach88/kiln/internal/loadgen"
)

// NewStressCommand creates the stress command.
func NewStressCommand(rootOpts *RootOptions) *cobra.Command {
	opts := loadgen.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Drive rapid sequential sintering against the ledger",
		Long: `Ignite --furnaces furnaces and submit --batches sinters to each from
--workers concurrent submitters, paced to --rate batches per second.

After the run every furnace ledger is checked for contiguous block indexes.
The command exits 1 when a ledger has gaps or duplicates.

Examples:
  kiln stress --db :memory: --batches 100
  kiln stress --db ./load.db --furnaces 8 --workers 16 --rate 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("rate") {
				opts.Rate = rootOpts.Config.Stress.Rate
			}
			if !cmd.Flags().Changed("workers") {
				opts.Workers = rootOpts.Config.Stress.Workers
			}

			s, err := rootOpts.openSession(true)
			if err != nil {
				return err
			}
			defer s.Close()

			logger, err := rootOpts.Logger()
			if err != nil {
				return err
			}

			report, err := loadgen.Run(cmd.Context(), s.controller, opts, logger.Named("stress"))
			if err != nil {
				return WrapExitError(ExitCommandError, "stress run", err)
			}

			out := rootOpts.formatter(cmd)
			if err := out.Success(stressView(report)); err != nil {
				return err
			}
			if !report.Contiguous {
				return &ExitError{Code: ExitFailure, Message: "ledger is not contiguous", Reported: true}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Batches, "batches", opts.Batches, "sinters per furnace")
	cmd.Flags().IntVar(&opts.Furnaces, "furnaces", opts.Furnaces, "furnaces driven in parallel")
	cmd.Flags().IntVar(&opts.Workers, "workers", opts.Workers, "concurrent submitters (default from config)")
	cmd.Flags().IntVar(&opts.Rate, "rate", opts.Rate, "batches per second, 0 for unlimited (default from config)")
	cmd.Flags().Uint64Var(&opts.Pressure, "pressure", 0, "pressure per batch (default maximum)")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", opts.Prefix, "authority name prefix")

	return cmd
}

type stressView loadgen.Report

func (r stressView) renderText(w io.Writer) {
	if r.Contiguous {
		okColor.Fprintln(w, "✓ Stress run complete")
	} else {
		failColor.Fprintln(w, "✗ Ledger is not contiguous")
	}
	field(w, "furnaces", r.Furnaces)
	field(w, "submitted", r.Submitted)
	field(w, "accepted", r.Accepted)

	codes := make([]string, 0, len(r.Rejected))
	for code := range r.Rejected {
		codes = append(codes, string(code))
	}
	sort.Strings(codes)
	for _, code := range codes {
		field(w, "rejected "+code, r.Rejected[furnace.ErrorCode(code)])
	}

	field(w, "duration", r.Duration)
	field(w, "throughput", fmt.Sprintf("%.1f blocks/s", r.Throughput))
}
