package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"procctl/internal/app"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(cmdList)
	rootCmd.AddCommand(cmdRefresh)
}

var (
	listQuery    string
	outputFormat string
)

func init() {
	cmdList.Flags().StringVarP(&listQuery, "query", "q", "", "Show only processes whose name or PID contains this text (case-insensitive)")
	for _, c := range []*cobra.Command{cmdList, cmdRefresh} {
		c.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json or yaml")
	}
}

var cmdList = &cobra.Command{
	Use:   "list",
	Short: "List processes from the daemon's current snapshot",
	Long:  `Prints the daemon's last snapshot, optionally filtered. Use "procctl refresh" to re-list first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := controller().List(cmd.Context(), app.ListParams{Query: listQuery, Timeout: requestTimeout()})
		if err != nil {
			return err
		}
		return writeSnapshot(cmd.OutOrStdout(), snap, outputFormat)
	},
}

var cmdRefresh = &cobra.Command{
	Use:   "refresh",
	Short: "Re-list processes and print the new snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := controller().Refresh(cmd.Context(), requestTimeout())
		if err != nil {
			return err
		}
		return writeSnapshot(cmd.OutOrStdout(), snap, outputFormat)
	},
}

func writeSnapshot(out io.Writer, snap app.Snapshot, format string) error {
	switch format {
	case "", "table":
		printSnapshot(out, snap)
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

func printSnapshot(out io.Writer, snap app.Snapshot) {
	if len(snap.Records) == 0 {
		fmt.Fprintln(out, "No processes match")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PID\tNAME")
	for _, rec := range snap.Records {
		fmt.Fprintf(w, "%d\t%s\n", rec.PID, rec.Name)
	}
	_ = w.Flush()
	if !snap.TakenAt.IsZero() {
		fmt.Fprintf(out, "%d processes, snapshot taken %s\n", len(snap.Records), snap.TakenAt.Local().Format(time.DateTime))
	}
	for _, sk := range snap.Skipped {
		fmt.Fprintf(out, "skipped line %d: %s\n", sk.Line, sk.Reason)
	}
}
