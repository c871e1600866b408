package cli

import (
	"context"
	"fmt"
	"slices"

	"co2dash/internal/config"
	"co2dash/internal/dashboard"
	"co2dash/internal/engine"
	"co2dash/internal/models"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	DataPath   string
	Verbose    bool
	Format     string // "json" | "text"

	// Config is resolved in PersistentPreRunE.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the co2dash CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "co2dash",
		Short:         "Global CO₂ emissions dashboard",
		Long:          "Serve, render and summarize a per-country CO₂ emissions dataset.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "config", err)
			}
			if opts.DataPath != "" {
				cfg.DataPath = opts.DataPath
			}
			opts.Config = cfg

			lvl, _ := config.ParseLevel(cfg.LogLevel)
			if opts.Verbose {
				lvl = log.DEBUG
			}
			log.SetLevel(lvl)
			log.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.DataPath, "data", "", "dataset path (overrides data_path)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))

	return cmd
}

// selectionFlags are shared by commands that build a dashboard snapshot.
type selectionFlags struct {
	year      int
	country   string
	countries []string
	mapYear   int
	n         int
}

func (s *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&s.year, "year", 0, "year for rankings (default: latest)")
	cmd.Flags().StringVar(&s.country, "country", "", "country for the trend (default: World)")
	cmd.Flags().StringSliceVar(&s.countries, "countries", nil, "countries to compare (default: config compare_preset)")
	cmd.Flags().IntVar(&s.mapYear, "map-year", 0, "year for the map (default: latest)")
	cmd.Flags().IntVarP(&s.n, "top", "n", 0, "number of ranked records (default: config top_n)")
}

// snapshot loads the dataset and builds the dashboard for the flags.
func snapshot(ctx context.Context, opts *RootOptions, s *selectionFlags) (*engine.Table, *models.DashboardData, error) {
	t, err := engine.NewCache(opts.Config.DataPath).Get(ctx)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "load dataset", err)
	}
	controls := dashboard.NewControls(t, opts.Config.ComparePreset, opts.Config.TopN)
	sel := dashboard.Normalize(controls, models.Selection{
		Year:      s.year,
		Country:   s.country,
		Countries: s.countries,
		MapYear:   s.mapYear,
		TopN:      s.n,
	})
	data, err := dashboard.Build(t, sel)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "build dashboard", err)
	}
	return t, data, nil
}
