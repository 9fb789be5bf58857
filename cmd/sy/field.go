package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchyard/internal/kanban"
	"github.com/zulandar/switchyard/internal/models"
)

func newFieldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "field",
		Short: "Custom field definition commands",
	}

	cmd.AddCommand(newFieldCreateCmd())
	cmd.AddCommand(newFieldUpdateCmd())
	cmd.AddCommand(newFieldDeleteCmd())
	cmd.AddCommand(newFieldReorderCmd())
	cmd.AddCommand(newFieldListCmd())
	cmd.AddCommand(newFieldValidateCmd())
	return cmd
}

// parseFieldConfig decodes a JSON object of type-specific settings.
func parseFieldConfig(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(s), &cfg); err != nil {
		return nil, fmt.Errorf("field settings: %w", err)
	}
	return cfg, nil
}

func printField(cmd *cobra.Command, def *models.FieldDefinition) {
	printFields(cmd.OutOrStdout(), []models.FieldDefinition{*def})
}

func newFieldCreateCmd() *cobra.Command {
	var (
		configPath string
		actor      string
		name       string
		fieldType  string
		rawConfig  string
		required   bool
	)

	cmd := &cobra.Command{
		Use:   "create <board-id>",
		Short: "Declare a custom field on a board",
		Long: `Declares a typed custom field. Types are text, number, date, select and
checkbox. --settings carries the type's settings, e.g. '{"min": 0, "max": 100}'
for number or '{"options": ["low", "high"], "multiple": true}' for select.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := parseFieldConfig(rawConfig)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, configPath)
			if err != nil {
				return err
			}
			def, err := a.svc.CreateField(context.Background(), resolveActor(actor), args[0], kanban.CreateFieldRequest{
				Name:      name,
				FieldType: fieldType,
				Config:    cfg,
				Required:  required,
			})
			if err != nil {
				return explain(err)
			}
			printField(cmd, def)
			return nil
		},
	}

	addCommonFlags(cmd, &configPath, &actor)
	cmd.Flags().StringVar(&name, "name", "", "field name (required)")
	cmd.Flags().StringVar(&fieldType, "type", "", "field type (required)")
	cmd.Flags().StringVar(&rawConfig, "settings", "", "type settings as JSON")
	cmd.Flags().BoolVar(&required, "required", false, "tasks must carry a value")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("type")
	return cmd
}

func newFieldUpdateCmd() *cobra.Command {
	var (
		configPath string
		actor      string
		name       string
		rawConfig  string
		required   bool
	)

	cmd := &cobra.Command{
		Use:   "update <field-id>",
		Short: "Rename a field or change its settings",
		Long:  "Updates only the given flags. A field's type cannot change.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := kanban.UpdateFieldRequest{FieldID: args[0]}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("settings") {
				cfg, err := parseFieldConfig(rawConfig)
				if err != nil {
					return err
				}
				if cfg == nil {
					cfg = map[string]any{}
				}
				req.Config = cfg
			}
			if cmd.Flags().Changed("required") {
				req.Required = &required
			}
			a, err := newApp(cmd, configPath)
			if err != nil {
				return err
			}
			def, err := a.svc.UpdateField(context.Background(), resolveActor(actor), req)
			if err != nil {
				return explain(err)
			}
			printField(cmd, def)
			return nil
		},
	}

	addCommonFlags(cmd, &configPath, &actor)
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&rawConfig, "settings", "", "replacement type settings as JSON")
	cmd.Flags().BoolVar(&required, "required", false, "tasks must carry a value")
	return cmd
}

func newFieldDeleteCmd() *cobra.Command {
	var configPath, actor string

	cmd := &cobra.Command{
		Use:   "delete <field-id>",
		Short: "Delete a field and strip its values from every task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, configPath)
			if err != nil {
				return err
			}
			purged, err := a.svc.DeleteField(context.Background(), resolveActor(actor), args[0])
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted field %s (values removed from %d tasks)\n", args[0], purged)
			return nil
		},
	}

	addCommonFlags(cmd, &configPath, &actor)
	return cmd
}

func newFieldReorderCmd() *cobra.Command {
	var configPath, actor string

	cmd := &cobra.Command{
		Use:   "reorder <board-id> <field-id>...",
		Short: "Set the display order of a board's fields",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, configPath)
			if err != nil {
				return err
			}
			defs, err := a.svc.ReorderFields(context.Background(), resolveActor(actor), args[0], args[1:])
			if err != nil {
				return explain(err)
			}
			printFields(cmd.OutOrStdout(), defs)
			return nil
		},
	}

	addCommonFlags(cmd, &configPath, &actor)
	return cmd
}

func newFieldListCmd() *cobra.Command {
	var configPath, actor string

	cmd := &cobra.Command{
		Use:   "list <board-id>",
		Short: "List a board's fields in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, configPath)
			if err != nil {
				return err
			}
			defs, err := a.svc.ListFields(context.Background(), resolveActor(actor), args[0])
			if err != nil {
				return explain(err)
			}
			if len(defs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No fields defined.")
				return nil
			}
			printFields(cmd.OutOrStdout(), defs)
			return nil
		},
	}

	addCommonFlags(cmd, &configPath, &actor)
	return cmd
}

func newFieldValidateCmd() *cobra.Command {
	var configPath, actor, values string

	cmd := &cobra.Command{
		Use:   "validate <board-id>",
		Short: "Check custom field values against a board without saving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseValues(values)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, configPath)
			if err != nil {
				return err
			}
			normalized, err := a.svc.ValidateCustomFields(context.Background(), resolveActor(actor), args[0], parsed)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", formatValues(normalized))
			return nil
		},
	}

	addCommonFlags(cmd, &configPath, &actor)
	cmd.Flags().StringVar(&values, "values", "", "custom field values as JSON")
	return cmd
}
