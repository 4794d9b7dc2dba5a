package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/kiln/internal/feedstock"
	"github.com/roach88/kiln/internal/furnace"
	"github.com/roach88/kiln/internal/ident"
	"github.com/roach88/kiln/internal/thermal"
)

// DefaultAmbient is room temperature in Kelvin.
const DefaultAmbient uint64 = 293

// HeatReport is the output of the heat command.
type HeatReport struct {
	DataHash        ident.Digest `json:"data_hash"`
	Pressure        uint64       `json:"pressure"`
	Entropy         float64      `json:"entropy"`
	RequiredHeat    uint64       `json:"required_heat"`
	Temperature     uint64       `json:"temperature"`
	Sufficient      bool         `json:"sufficient"`
	CooldownRate    uint64       `json:"cooldown_rate"`
	CyclesToAmbient int          `json:"cycles_to_ambient"`
}

// NewHeatCommand creates the heat command.
func NewHeatCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		input    hashInput
		pressure uint64
		temp     uint64
		ambient  uint64
	)

	cmd := &cobra.Command{
		Use:   "heat",
		Short: "Compute the heat a batch needs",
		Long: `Compute the temperature required to sinter a batch under the given
pressure, and how quickly a furnace at --temp sheds heat toward --ambient.

No ledger is opened.

Example:
  kiln heat --file batch.bin --pressure 150 --temp 3200`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, _, err := input.digest()
			if err != nil {
				return err
			}
			required := thermal.RequiredHeat(hash, pressure)
			return rootOpts.formatter(cmd).Success(HeatReport{
				DataHash:        hash,
				Pressure:        pressure,
				Entropy:         thermal.Entropy(hash),
				RequiredHeat:    required,
				Temperature:     temp,
				Sufficient:      temp >= required,
				CooldownRate:    thermal.CooldownRate(temp, ambient),
				CyclesToAmbient: thermal.CyclesToAmbient(temp, ambient),
			})
		},
	}

	input.register(cmd)
	cmd.Flags().Uint64Var(&pressure, "pressure", DefaultSinterPressure, "applied pressure (PSI)")
	cmd.Flags().Uint64Var(&temp, "temp", DefaultIgniteTemp, "furnace temperature (Kelvin)")
	cmd.Flags().Uint64Var(&ambient, "ambient", DefaultAmbient, "ambient temperature (Kelvin)")

	return cmd
}

func (r HeatReport) renderText(w io.Writer) {
	field(w, "data hash", r.DataHash)
	field(w, "pressure", fmt.Sprintf("%d PSI", r.Pressure))
	field(w, "entropy", fmt.Sprintf("%.4f", r.Entropy))
	field(w, "required heat", fmt.Sprintf("%d K", r.RequiredHeat))
	if r.Sufficient {
		field(w, "at temperature", okColor.Sprintf("%d K (sufficient)", r.Temperature))
	} else {
		field(w, "at temperature", warnColor.Sprintf("%d K (too cold)", r.Temperature))
	}
	if r.RequiredHeat > furnace.MaxTemp {
		warnColor.Fprintf(w, "  required heat exceeds the %d K ignition ceiling\n", furnace.MaxTemp)
	}
	field(w, "cooldown rate", fmt.Sprintf("%d K/cycle", r.CooldownRate))
	field(w, "cycles to ambient", r.CyclesToAmbient)
}

// PrepareReport is the output of the prepare command.
type PrepareReport struct {
	feedstock.Feedstock
	Urgency         uint8  `json:"urgency"`
	OptimalPressure uint64 `json:"optimal_pressure"`
}

// NewPrepareCommand creates the prepare command.
func NewPrepareCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		file    string
		urgency uint8
	)

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Digest a batch file and suggest a pressure",
		Long: fmt.Sprintf(`Digest a batch file with BLAKE3, compute its checksum and suggest a
sintering pressure from its size and --urgency.

Files must be non-empty and at most %d bytes. No ledger is opened.

Example:
  kiln prepare --file batch.bin --urgency 10`, feedstock.MaxSize),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stock, err := prepareFile(file)
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Success(PrepareReport{
				Feedstock:       stock,
				Urgency:         urgency,
				OptimalPressure: feedstock.OptimalPressure(stock.OriginalSize, urgency),
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "batch file")
	cmd.Flags().Uint8Var(&urgency, "urgency", 0, "urgency 0-255, raises the suggested pressure")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (r PrepareReport) renderText(w io.Writer) {
	field(w, "hash", r.Hash)
	field(w, "size", fmt.Sprintf("%d bytes", r.OriginalSize))
	field(w, "checksum", r.Checksum)
	field(w, "compression ratio", fmt.Sprintf("%.2f", r.CompressionRatio))
	field(w, "optimal pressure", fmt.Sprintf("%d PSI", r.OptimalPressure))
}
