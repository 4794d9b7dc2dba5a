package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/kiln/internal/config"
	"github.com/roach88/kiln/internal/furnace"
	"github.com/roach88/kiln/internal/ident"
	"github.com/roach88/kiln/internal/metrics"
	"github.com/roach88/kiln/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string
	Authority  string

	// Config is resolved from ConfigPath before any subcommand runs.
	// Flags set explicitly on the command line take precedence.
	Config config.Config

	logger *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the kiln CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "kiln",
		Short: "kiln - furnace controller and sintered block ledger",
		Long: `kiln drives furnaces through ignition, sintering and emergency cooldown,
and records every accepted batch as an immutable block at a derived address.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite ledger (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Authority, "authority", "", "identity of the calling authority")

	// Add subcommands
	cmd.AddCommand(NewIgniteCommand(opts))
	cmd.AddCommand(NewSinterCommand(opts))
	cmd.AddCommand(NewCooldownCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewBlockCommand(opts))
	cmd.AddCommand(NewBlocksCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewHeatCommand(opts))
	cmd.AddCommand(NewPrepareCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewStressCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve loads the config file and merges it with explicit flags.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}

	if !cmd.Flags().Changed("format") {
		o.Format = cfg.Output
	}
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	o.Config = cfg
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// formatter returns an OutputFormatter bound to cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// Logger returns the configured logger, building it on first use.
func (o *RootOptions) Logger() (*zap.Logger, error) {
	if o.logger != nil {
		return o.logger, nil
	}
	logger, err := o.Config.Logger()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "build logger", err)
	}
	o.logger = logger
	return logger, nil
}

// caller parses the --authority flag.
func (o *RootOptions) caller() (ident.Identity, error) {
	if o.Authority == "" {
		return "", NewExitError(ExitCommandError, "--authority is required")
	}
	id, err := ident.ParseIdentity(o.Authority)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "invalid --authority", err)
	}
	return id, nil
}

// target resolves the furnace a command acts on: the explicit --furnace
// address, or the furnace derived from --authority.
func (o *RootOptions) target(furnaceHex string) (ident.Address, error) {
	if furnaceHex != "" {
		addr, err := ident.ParseAddress(furnaceHex)
		if err != nil {
			return ident.Address{}, WrapExitError(ExitCommandError, "invalid --furnace", err)
		}
		return addr, nil
	}
	id, err := o.caller()
	if err != nil {
		return ident.Address{}, NewExitError(ExitCommandError, "--furnace or --authority is required")
	}
	return ident.FurnaceAddress(id), nil
}

// session is an open ledger with a controller on top of it.
type session struct {
	store      *store.Store
	controller *furnace.Controller
}

func (s *session) Close() error {
	return s.store.Close()
}

// openSession opens the configured ledger. withMetrics registers the
// controller with the Prometheus collectors, for long-running commands.
func (o *RootOptions) openSession(withMetrics bool) (*session, error) {
	logger, err := o.Logger()
	if err != nil {
		return nil, err
	}

	s, err := store.Open(o.Config.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("open ledger %s", o.Config.Database), err)
	}

	copts := []furnace.Option{
		furnace.WithLogger(logger),
		furnace.WithThermalEnforcement(o.Config.ThermalEnforcement),
	}
	if withMetrics {
		copts = append(copts, furnace.WithMetrics(metrics.NewController()))
	}

	return &session{
		store:      s,
		controller: furnace.NewController(s, copts...),
	}, nil
}
