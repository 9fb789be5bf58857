package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Board commands",
	}

	cmd.AddCommand(newBoardShowCmd())
	return cmd
}

func newBoardShowCmd() *cobra.Command {
	var configPath, actor string

	cmd := &cobra.Command{
		Use:   "show <board-id>",
		Short: "Show a board's columns, tasks and custom fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoardShow(cmd, configPath, resolveActor(actor), args[0])
		},
	}

	addCommonFlags(cmd, &configPath, &actor)
	return cmd
}

func runBoardShow(cmd *cobra.Command, configPath, actor, boardID string) error {
	a, err := newApp(cmd, configPath)
	if err != nil {
		return err
	}
	view, err := a.svc.Board(context.Background(), actor, boardID)
	if err != nil {
		return explain(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Board %s (%s)\n\n", view.Board.Name, view.Board.ID)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tID\tTASKS\tWIP")
	for _, c := range view.Columns {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", c.Name, c.ID, c.Occupancy, formatLimit(c.WipLimit))
	}
	w.Flush()

	for _, c := range view.Columns {
		if len(c.Tasks) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n%s:\n", c.Name)
		printTasks(out, c.Tasks)
	}

	if len(view.Fields) > 0 {
		fmt.Fprintln(out, "\nCustom fields:")
		printFields(out, view.Fields)
	}
	return nil
}
