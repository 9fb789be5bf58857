package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newColumnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "column",
		Short: "Column commands",
	}

	cmd.AddCommand(newColumnLimitCmd())
	cmd.AddCommand(newColumnTasksCmd())
	return cmd
}

func newColumnLimitCmd() *cobra.Command {
	var configPath, actor string

	cmd := &cobra.Command{
		Use:   "limit <column-id> <n|none>",
		Short: "Set or clear a column's WIP limit",
		Long:  "Sets the column's WIP limit. A limit below the column's current task count is refused.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := parseLimit(args[1])
			if err != nil {
				return err
			}
			a, err := newApp(cmd, configPath)
			if err != nil {
				return err
			}
			col, err := a.svc.SetWipLimit(context.Background(), resolveActor(actor), args[0], limit)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Column %s WIP limit: %s\n", col.Name, formatLimit(col.WipLimit))
			return nil
		},
	}

	addCommonFlags(cmd, &configPath, &actor)
	return cmd
}

func newColumnTasksCmd() *cobra.Command {
	var configPath, actor string

	cmd := &cobra.Command{
		Use:   "tasks <column-id>",
		Short: "List a column's tasks in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, configPath)
			if err != nil {
				return err
			}
			tasks, err := a.svc.ColumnTasks(context.Background(), resolveActor(actor), args[0])
			if err != nil {
				return explain(err)
			}
			printTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}

	addCommonFlags(cmd, &configPath, &actor)
	return cmd
}
