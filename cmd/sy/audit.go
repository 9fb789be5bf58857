package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchyard/internal/audit"
)

func newAuditCmd() *cobra.Command {
	var (
		configPath string
		repair     bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check that every ordering is contiguous",
		Long: `Scans every column's task positions and every board's field positions
for duplicates and gaps. With --repair (or audit.repair in the config file)
broken orderings are renumbered in their current order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("repair") {
				repair = a.cfg.Audit.Repair
			}
			auditor, err := audit.New(audit.Options{
				Store:    a.store,
				Notifier: a.notifier,
				Logger:   a.log,
				Repair:   repair,
			})
			if err != nil {
				return err
			}
			findings, err := auditor.Run(context.Background())
			if err != nil {
				return err
			}
			return printFindings(cmd, findings)
		},
	}

	addCommonFlags(cmd, &configPath, nil)
	cmd.Flags().BoolVar(&repair, "repair", false, "renumber broken orderings")
	return cmd
}

func printFindings(cmd *cobra.Command, findings []audit.Finding) error {
	out := cmd.OutOrStdout()
	if len(findings) == 0 {
		fmt.Fprintln(out, "All orderings are contiguous.")
		return nil
	}
	unrepaired := 0
	for _, f := range findings {
		status := "BROKEN"
		if f.Repaired {
			status = "REPAIRED"
		} else {
			unrepaired++
		}
		fmt.Fprintf(out, "%-8s board %s: %s\n", status, f.BoardID, f)
	}
	if unrepaired > 0 {
		return fmt.Errorf("audit: %d orderings need repair (rerun with --repair)", unrepaired)
	}
	return nil
}
