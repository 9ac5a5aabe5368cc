package commands

import (
	"github.com/spf13/cobra"

	"github.com/dyluth/tablenode/internal/config"
	"github.com/dyluth/tablenode/internal/printer"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check a tablenode.yml without starting a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return printer.Error("invalid configuration", err.Error(), nil)
		}

		printer.Success("%s is valid\n", args[0])
		printer.Info("  transport: %s (%s)\n", cfg.Link.Transport, endpoint(cfg))
		printer.Info("  display:   %s\n", cfg.Topics.Display)
		printer.Info("  tone:      %s\n", cfg.Topics.Tone)
		if cfg.Topics.Turn != "" {
			printer.Info("  turn:      %s -> %s\n", cfg.Topics.Turn, cfg.Topics.TurnTarget)
		}
		for from, to := range cfg.Topics.Relays {
			printer.Info("  relay:     %s -> %s\n", from, to)
		}
		printer.Info("  button:    %s\n", cfg.Topics.Button)
		printer.Info("  hardware:  %s\n", cfg.Hardware.Backend)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tablectl version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printer.Info("tablectl %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd, versionCmd)
}
