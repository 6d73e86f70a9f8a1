// Command adsim-log views and analyzes protocol log files written by
// adsim-device --protocol-log.
//
// Usage:
//
//	adsim-log <command> [flags] <file.alog>
//
// Examples:
//
//	# View all events
//	adsim-log view device.alog
//
//	# View only failed responses for module 2
//	adsim-log view --errors --module 2 device.alog
//
//	# Export to CSV
//	adsim-log export --format csv -o session.csv device.alog
//
//	# Keep one connection in a new file
//	adsim-log filter --conn-id 3f2a9c1e-... -o conn.alog device.alog
//
//	# Show statistics
//	adsim-log stats device.alog
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/adsim-project/adsim-go/cmd/adsim-log/commands"
	"github.com/adsim-project/adsim-go/pkg/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "adsim-log",
		Short:        "ADS simulator protocol log analyzer",
		SilenceUsage: true,
	}
	root.AddCommand(newViewCmd(), newExportCmd(), newFilterCmd(), newStatsCmd())
	return root
}

func addFilterFlags(cmd *cobra.Command, f *commands.FilterFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.ConnectionID, "conn-id", "", "Filter by connection ID")
	flags.StringVar(&f.Direction, "direction", "", "Filter by direction (in, out)")
	flags.StringVar(&f.Category, "category", "", "Filter by category (message, state, error)")
	flags.StringVar(&f.Command, "command", "", "Filter by command name (e.g. Read, AddNotification)")
	flags.IntVar(&f.Module, "module", -1, "Filter by module index")
	flags.BoolVar(&f.ErrorsOnly, "errors", false, "Only error events and failed responses")
	flags.StringVar(&f.Since, "since", "", "Only events at or after this RFC 3339 time")
	flags.StringVar(&f.Until, "until", "", "Only events before this RFC 3339 time")
}

func newViewCmd() *cobra.Command {
	var flags commands.FilterFlags
	cmd := &cobra.Command{
		Use:   "view [flags] <file.alog>",
		Short: "View log file in human-readable format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.Build()
			if err != nil {
				return err
			}
			return commands.RunView(args[0], filter, cmd.OutOrStdout())
		},
	}
	addFilterFlags(cmd, &flags)
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		flags  commands.FilterFlags
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export [flags] <file.alog>",
		Short: "Export log file to JSON lines or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.Build()
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return commands.RunExport(args[0], format, filter, w)
		},
	}
	addFilterFlags(cmd, &flags)
	cmd.Flags().StringVar(&format, "format", "jsonl", "Output format (jsonl, csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func newFilterCmd() *cobra.Command {
	var (
		flags  commands.FilterFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "filter [flags] -o <out.alog> <file.alog>",
		Short: "Write matching events to a new log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.Build()
			if err != nil {
				return err
			}
			n, err := commands.RunFilter(args[0], output, filter)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d events to %s\n", n, output)
			return nil
		},
	}
	addFilterFlags(cmd, &flags)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (required, "+log.FileExtension+")")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var flags commands.FilterFlags
	cmd := &cobra.Command{
		Use:   "stats [flags] <file.alog>",
		Short: "Show statistics about the log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.Build()
			if err != nil {
				return err
			}
			return commands.RunStats(args[0], filter, cmd.OutOrStdout())
		},
	}
	addFilterFlags(cmd, &flags)
	return cmd
}
