package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kiln/internal/feedstock"
	"github.com/roach88/kiln/internal/furnace"
	"github.com/roach88/kiln/internal/ident"
)

// DefaultIgniteTemp is the ignition temperature used when --temp is omitted.
const DefaultIgniteTemp uint64 = 3000

// DefaultSinterPressure is the pressure used when --pressure is omitted.
const DefaultSinterPressure uint64 = 120

// furnaceFlags are shared by commands that act on one furnace.
type furnaceFlags struct {
	Furnace string
}

func (f *furnaceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Furnace, "furnace", "", "furnace address (default: derived from --authority)")
}

// NewIgniteCommand creates the ignite command.
func NewIgniteCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		target furnaceFlags
		temp   uint64
	)

	cmd := &cobra.Command{
		Use:   "ignite",
		Short: "Ignite a furnace",
		Long: fmt.Sprintf(`Ignite the furnace owned by --authority.

The first ignition creates the furnace. Re-igniting an existing furnace
sets its temperature and reactivates it; the block counter is kept.
Temperatures above %d are rejected.

Example:
  kiln ignite --authority alice --temp 3000`, furnace.MaxTemp),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			caller, err := rootOpts.caller()
			if err != nil {
				return err
			}
			addr, err := rootOpts.target(target.Furnace)
			if err != nil {
				return err
			}

			s, err := rootOpts.openSession(false)
			if err != nil {
				return err
			}
			defer s.Close()

			f, err := s.controller.Ignite(cmd.Context(), caller, addr, temp)
			if err != nil {
				return out.Fail(err)
			}
			return out.Success(furnaceView{Furnace: f, headline: "Furnace ignited"})
		},
	}

	target.register(cmd)
	cmd.Flags().Uint64Var(&temp, "temp", DefaultIgniteTemp, "initial temperature (Kelvin)")

	return cmd
}

// NewSinterCommand creates the sinter command.
func NewSinterCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		target   furnaceFlags
		input    hashInput
		pressure uint64
	)

	cmd := &cobra.Command{
		Use:   "sinter",
		Short: "Sinter a batch into the ledger",
		Long: fmt.Sprintf(`Sinter a batch and record it as the next block of the furnace.

The batch is identified by its 32-byte digest: either --hash, or the
BLAKE3 digest of --file. Pressures below %d PSI are rejected.

Examples:
  kiln sinter --authority alice --file batch.bin
  kiln sinter --authority alice --hash <hex64> --pressure 150`, furnace.MinPressure),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			caller, err := rootOpts.caller()
			if err != nil {
				return err
			}
			addr, err := rootOpts.target(target.Furnace)
			if err != nil {
				return err
			}
			hash, stock, err := input.digest()
			if err != nil {
				return err
			}
			if stock != nil {
				out.VerboseLog("prepared %s: %d bytes, checksum %d", input.File, stock.OriginalSize, stock.Checksum)
			}

			s, err := rootOpts.openSession(false)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.controller.SinterBatch(cmd.Context(), caller, addr, hash, pressure)
			if err != nil {
				return out.Fail(err)
			}
			return out.Success(sinterView(res))
		},
	}

	target.register(cmd)
	input.register(cmd)
	cmd.Flags().Uint64Var(&pressure, "pressure", DefaultSinterPressure, "applied pressure (PSI)")

	return cmd
}

// NewCooldownCommand creates the cooldown command.
func NewCooldownCommand(rootOpts *RootOptions) *cobra.Command {
	var target furnaceFlags

	cmd := &cobra.Command{
		Use:   "cooldown",
		Short: "Engage emergency cooldown",
		Long: `Drop the furnace to zero and deactivate it. Existing blocks are kept
and the furnace can be re-ignited later.

Example:
  kiln cooldown --authority alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			caller, err := rootOpts.caller()
			if err != nil {
				return err
			}
			addr, err := rootOpts.target(target.Furnace)
			if err != nil {
				return err
			}

			s, err := rootOpts.openSession(false)
			if err != nil {
				return err
			}
			defer s.Close()

			f, err := s.controller.EmergencyCooldown(cmd.Context(), caller, addr)
			if err != nil {
				return out.Fail(err)
			}
			return out.Success(furnaceView{Furnace: f, headline: "Emergency cooldown engaged"})
		},
	}

	target.register(cmd)

	return cmd
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var target furnaceFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a furnace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			addr, err := rootOpts.target(target.Furnace)
			if err != nil {
				return err
			}

			s, err := rootOpts.openSession(false)
			if err != nil {
				return err
			}
			defer s.Close()

			f, err := s.controller.Furnace(cmd.Context(), addr)
			if err != nil {
				return out.Fail(err)
			}
			return out.Success(statusView{
				Furnace:   f,
				NextBlock: f.NextBlockAddress(),
			})
		},
	}

	target.register(cmd)

	return cmd
}

// NewBlockCommand creates the block command.
func NewBlockCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		target furnaceFlags
		index  int64
	)

	cmd := &cobra.Command{
		Use:   "block [address]",
		Short: "Show a sintered block",
		Long: `Show a sintered block by its address, or by --index within the furnace
selected with --furnace or --authority.

Examples:
  kiln block 828cce3c...
  kiln block --authority alice --index 0`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			var (
				addr   ident.Address
				err    error
				byAddr = len(args) == 1
			)
			switch {
			case byAddr:
				addr, err = ident.ParseAddress(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid block address", err)
				}
			case index < 0:
				return NewExitError(ExitCommandError, "a block address or --index is required")
			default:
				addr, err = rootOpts.target(target.Furnace)
				if err != nil {
					return err
				}
			}

			s, err := rootOpts.openSession(false)
			if err != nil {
				return err
			}
			defer s.Close()

			var b furnace.SinteredBlock
			if byAddr {
				b, err = s.controller.Block(cmd.Context(), addr)
			} else {
				b, err = s.controller.BlockAt(cmd.Context(), addr, uint64(index))
			}
			if err != nil {
				return out.Fail(err)
			}
			return out.Success(blockView(b))
		},
	}

	target.register(cmd)
	cmd.Flags().Int64Var(&index, "index", -1, "block index within the furnace")

	return cmd
}

// NewBlocksCommand creates the blocks command.
func NewBlocksCommand(rootOpts *RootOptions) *cobra.Command {
	var target furnaceFlags

	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "List the sintered blocks of a furnace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			addr, err := rootOpts.target(target.Furnace)
			if err != nil {
				return err
			}

			s, err := rootOpts.openSession(false)
			if err != nil {
				return err
			}
			defer s.Close()

			blocks, err := s.controller.Blocks(cmd.Context(), addr)
			if err != nil {
				return out.Fail(err)
			}
			return out.Success(blockList(blocks))
		},
	}

	target.register(cmd)

	return cmd
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	var target furnaceFlags

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the journal of a furnace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			addr, err := rootOpts.target(target.Furnace)
			if err != nil {
				return err
			}

			s, err := rootOpts.openSession(false)
			if err != nil {
				return err
			}
			defer s.Close()

			events, err := s.controller.Events(cmd.Context(), addr)
			if err != nil {
				return out.Fail(err)
			}
			return out.Success(eventList(events))
		},
	}

	target.register(cmd)

	return cmd
}

// hashInput reads a batch digest from --hash or --file.
type hashInput struct {
	Hash string
	File string
}

func (h *hashInput) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&h.Hash, "hash", "", "batch digest (64 hex characters)")
	cmd.Flags().StringVar(&h.File, "file", "", "batch file, digested with BLAKE3")
	cmd.MarkFlagsMutuallyExclusive("hash", "file")
	cmd.MarkFlagsOneRequired("hash", "file")
}

// digest returns the batch digest. The feedstock is non-nil when the digest
// was computed from a file.
func (h *hashInput) digest() (ident.Digest, *feedstock.Feedstock, error) {
	if h.Hash != "" {
		d, err := ident.ParseDigest(h.Hash)
		if err != nil {
			return ident.Digest{}, nil, WrapExitError(ExitCommandError, "invalid --hash", err)
		}
		return d, nil, nil
	}

	stock, err := prepareFile(h.File)
	if err != nil {
		return ident.Digest{}, nil, err
	}
	return stock.Hash, &stock, nil
}

func prepareFile(path string) (feedstock.Feedstock, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return feedstock.Feedstock{}, WrapExitError(ExitCommandError, "read batch file", err)
	}
	stock, err := feedstock.PrepareChecked(raw)
	if err != nil {
		return feedstock.Feedstock{}, WrapExitError(ExitCommandError, path, err)
	}
	return stock, nil
}

type furnaceView struct {
	furnace.Furnace
	headline string
}

func (v furnaceView) renderText(w io.Writer) {
	if v.headline != "" {
		okColor.Fprintf(w, "✓ %s\n", v.headline)
	}
	renderFurnace(w, v.Furnace)
}

type statusView struct {
	furnace.Furnace
	NextBlock ident.Address `json:"next_block"`
}

func (v statusView) renderText(w io.Writer) {
	renderFurnace(w, v.Furnace)
	field(w, "next block", v.NextBlock)
}

func renderFurnace(w io.Writer, f furnace.Furnace) {
	field(w, "furnace", f.Address)
	field(w, "authority", f.Authority)
	if f.IsActive {
		field(w, "state", okColor.Sprint("active"))
	} else {
		field(w, "state", warnColor.Sprint("inactive"))
	}
	field(w, "temperature", fmt.Sprintf("%d K", f.CurrentTemp))
	field(w, "sintered blocks", f.TotalSinteredBlocks)
	field(w, "updated", f.UpdatedAt.Format(time.RFC3339))
}

type sinterView furnace.SinterResult

func (v sinterView) renderText(w io.Writer) {
	okColor.Fprintf(w, "✓ Block %d sintered\n", v.Block.BlockIndex)
	renderBlock(w, v.Block)
	field(w, "furnace blocks", v.Furnace.TotalSinteredBlocks)
}

type blockView furnace.SinteredBlock

func (v blockView) renderText(w io.Writer) {
	renderBlock(w, furnace.SinteredBlock(v))
}

func renderBlock(w io.Writer, b furnace.SinteredBlock) {
	field(w, "block", b.Address)
	field(w, "furnace", b.Furnace)
	field(w, "index", b.BlockIndex)
	field(w, "data hash", b.DataHash)
	field(w, "pressure", fmt.Sprintf("%d PSI", b.PressureApplied))
	field(w, "temperature", fmt.Sprintf("%d K", b.FinalTemperature))
	field(w, "sintered", b.SinteredAt.Format(time.RFC3339))
}

type blockList []furnace.SinteredBlock

func (v blockList) renderText(w io.Writer) {
	if len(v) == 0 {
		fmt.Fprintln(w, "No blocks sintered.")
		return
	}
	for _, b := range v {
		fmt.Fprintf(w, "%6d  %s  %s  %3d PSI  %d K\n",
			b.BlockIndex, b.Address, b.DataHash, b.PressureApplied, b.FinalTemperature)
	}
}

type eventList []furnace.Event

func (v eventList) renderText(w io.Writer) {
	if len(v) == 0 {
		fmt.Fprintln(w, "No events recorded.")
		return
	}
	for _, ev := range v {
		fmt.Fprintf(w, "%4d  %s  ", ev.Seq, ev.RecordedAt.Format(time.RFC3339))
		labelColor.Fprintf(w, "%-16s", ev.Kind)
		fmt.Fprintf(w, "  %s\n", ev.RequestID)
	}
}
