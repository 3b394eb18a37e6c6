package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"channel-chatter/internal/analytics"
	"channel-chatter/internal/auth"
	"channel-chatter/internal/storage"
)

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the persisted conversations as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := setup(cmd, false)
			if err != nil {
				return err
			}
			snap, err := openSnapshotter(cfg)
			if err != nil {
				return err
			}
			defer snap.Close()
			data, err := snap.Load()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(data)
		},
	}
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize one day of the interaction log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := setup(cmd, false)
			if err != nil {
				return err
			}
			if cfg.LogFilePath == "" {
				return fmt.Errorf("LOG_FILE_PATH is empty, no interaction log to read")
			}
			day := time.Now().UTC()
			if s, _ := cmd.Flags().GetString("date"); s != "" {
				day, err = time.ParseInLocation("2006-01-02", s, time.UTC)
				if err != nil {
					return fmt.Errorf("bad --date: %w", err)
				}
			}
			rec, err := storage.NewFileRecorder(cfg.LogFilePath)
			if err != nil {
				return err
			}
			defer rec.Close()
			events, err := rec.LoadInteractions()
			if err != nil {
				return err
			}
			stats := analytics.AnalyzeDailyLogs(events, day)
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				out, err := stats.ToJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), stats.GenerateReportSummary())
			return nil
		},
	}
	cmd.Flags().String("date", "", "Day to report on (YYYY-MM-DD, UTC). Defaults to today.")
	cmd.Flags().Bool("json", false, "Print the stats as JSON.")
	return cmd
}

func newOperatorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operators",
		Short: "Manage who may run nuke and supernuke",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List operators",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := operatorsFor(cmd)
			if err != nil {
				return err
			}
			ops := svc.List()
			if len(ops) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no operators: everyone may run destructive commands")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, op := range ops {
				fmt.Fprintf(w, "%s\t%s\n", op.ID, op.Name)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <user-id> [name]",
		Short: "Add or rename an operator",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := operatorsFor(cmd)
			if err != nil {
				return err
			}
			op := auth.Operator{ID: strings.TrimSpace(args[0])}
			if len(args) == 2 {
				op.Name = args[1]
			}
			return svc.Upsert(op)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <user-id>",
		Short: "Remove an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := operatorsFor(cmd)
			if err != nil {
				return err
			}
			return svc.Remove(strings.TrimSpace(args[0]))
		},
	})
	return cmd
}

func operatorsFor(cmd *cobra.Command) (*auth.Service, error) {
	cfg, _, err := setup(cmd, false)
	if err != nil {
		return nil, err
	}
	if cfg.OperatorsFilePath == "" {
		return nil, fmt.Errorf("OPERATORS_FILE_PATH is empty")
	}
	return newOperatorService(cfg)
}
