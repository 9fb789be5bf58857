package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchyard/internal/kanban"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Task commands",
	}

	cmd.AddCommand(newTaskCreateCmd())
	cmd.AddCommand(newTaskUpdateCmd())
	cmd.AddCommand(newTaskMoveCmd())
	cmd.AddCommand(newTaskReorderCmd())
	cmd.AddCommand(newTaskArchiveCmd())
	cmd.AddCommand(newTaskRestoreCmd())
	return cmd
}

func newTaskCreateCmd() *cobra.Command {
	var (
		configPath  string
		actor       string
		columnID    string
		title       string
		description string
		position    int
		fields      string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task in a column",
		Long:  "Creates a task, validating its custom fields and the column's WIP limit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseValues(fields)
			if err != nil {
				return err
			}
			req := kanban.CreateTaskRequest{
				ColumnID:     columnID,
				Title:        title,
				Description:  description,
				CustomFields: values,
			}
			if cmd.Flags().Changed("position") {
				req.Position = &position
			}
			a, err := newApp(cmd, configPath)
			if err != nil {
				return err
			}
			task, err := a.svc.CreateTask(context.Background(), resolveActor(actor), req)
			if err != nil {
				return explain(err)
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}

	addCommonFlags(cmd, &configPath, &actor)
	cmd.Flags().StringVar(&columnID, "column", "", "column id (required)")
	cmd.Flags().StringVar(&title, "title", "", "task title (required)")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().IntVar(&position, "position", 0, "position in the column (default: append)")
	cmd.Flags().StringVar(&fields, "fields", "", `custom field values as JSON, e.g. '{"<field-id>": 3}'`)
	cmd.MarkFlagRequired("column")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newTaskUpdateCmd() *cobra.Command {
	var (
		configPath  string
		actor       string
		title       string
		description string
		fields      string
	)

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update a task's title, description or custom fields",
		Long:  "Updates only the given flags. --fields replaces the task's whole custom field map.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := kanban.UpdateTaskRequest{TaskID: args[0]}
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("fields") {
				values, err := parseValues(fields)
				if err != nil {
					return err
				}
				if values == nil {
					values = map[string]any{}
				}
				req.CustomFields = values
			}
			a, err := newApp(cmd, configPath)
			if err != nil {
				return err
			}
			task, err := a.svc.UpdateTask(context.Background(), resolveActor(actor), req)
			if err != nil {
				return explain(err)
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}

	addCommonFlags(cmd, &configPath, &actor)
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&fields, "fields", "", "custom field values as JSON")
	return cmd
}

func newTaskMoveCmd() *cobra.Command {
	var (
		configPath string
		actor      string
		from       string
		to         string
		position   int
	)

	cmd := &cobra.Command{
		Use:   "move <task-id>",
		Short: "Move a task within or between columns",
		Long: `Moves a task to a position in the target column. Positions past the end
are clamped. Moving into another column is refused when that column is at
its WIP limit; reordering within a column never is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				to = from
			}
			a, err := newApp(cmd, configPath)
			if err != nil {
				return err
			}
			task, err := a.svc.MoveTask(context.Background(), resolveActor(actor), kanban.MoveRequest{
				TaskID:         args[0],
				SourceColumnID: from,
				TargetColumnID: to,
				TargetPosition: position,
			})
			if err != nil {
				return explain(err)
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}

	addCommonFlags(cmd, &configPath, &actor)
	cmd.Flags().StringVar(&from, "from", "", "column the task is in (required)")
	cmd.Flags().StringVar(&to, "to", "", "target column (default: same column)")
	cmd.Flags().IntVar(&position, "position", 0, "target position")
	cmd.MarkFlagRequired("from")
	return cmd
}

func newTaskReorderCmd() *cobra.Command {
	var configPath, actor string

	cmd := &cobra.Command{
		Use:   "reorder <column-id> <task-id>...",
		Short: "Set the full order of a column's tasks",
		Long:  "Assigns positions in the given order. Every active task of the column must be listed exactly once.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, configPath)
			if err != nil {
				return err
			}
			tasks, err := a.svc.ReorderColumn(context.Background(), resolveActor(actor), args[0], args[1:])
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

func newTaskArchiveCmd() *cobra.Command {
	var configPath, actor string

	cmd := &cobra.Command{
		Use:   "archive <task-id>",
		Short: "Archive a task, freeing its column slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, configPath)
			if err != nil {
				return err
			}
			task, err := a.svc.ArchiveTask(context.Background(), resolveActor(actor), args[0])
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived task %s\n", task.ID)
			return nil
		},
	}

	addCommonFlags(cmd, &configPath, &actor)
	return cmd
}

func newTaskRestoreCmd() *cobra.Command {
	var configPath, actor string

	cmd := &cobra.Command{
		Use:   "restore <task-id>",
		Short: "Restore an archived task to the end of its column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, configPath)
			if err != nil {
				return err
			}
			task, err := a.svc.RestoreTask(context.Background(), resolveActor(actor), args[0])
			if err != nil {
				return explain(err)
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}

	addCommonFlags(cmd, &configPath, &actor)
	return cmd
}
