package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewChildCmd создаёт группу команд для дочерних процессов.
func NewChildCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "child",
		Short: "Manage child processes",
	}

	cmd.AddCommand(
		newChildConfigsCmd(clientFn, outputFn),
		newChildConfigureCmd(clientFn, outputFn),
		newChildListCmd(clientFn, outputFn),
		newChildSpawnCmd(clientFn, outputFn),
	)

	return cmd
}

func newChildConfigsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "configs INSTANCE_ID",
		Short: "List child process configs of an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			configs, err := client.ListChildConfigs(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ID", "MODE", "CHILD_TYPE", "ENABLED", "RUNS", "NEXT_RUN"}
			rows := make([][]string, len(configs))
			for i, c := range configs {
				rows[i] = []string{c.ID, c.Mode, c.ChildTypeID, strconv.FormatBool(c.Enabled), strconv.Itoa(c.RunCount), c.NextRunAt}
			}

			out.Print(headers, rows, configs)
			return nil
		},
	}
}

func newChildConfigureCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var childType, mode, recurrence string
	var triggerStep int
	var wait bool
	var mapping []string

	cmd := &cobra.Command{
		Use:   "configure INSTANCE_ID",
		Short: "Create a child process config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := CreateChildConfigRequest{
				ChildTypeID:       childType,
				Mode:              mode,
				TriggerStepOrder:  triggerStep,
				WaitForCompletion: wait,
			}

			if len(mapping) > 0 {
				req.InputDataMapping = make(map[string]string)
				for _, kv := range mapping {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid mapping format %q, expected PARENT_KEY=CHILD_KEY", kv)
					}
					req.InputDataMapping[parts[0]] = parts[1]
				}
			}

			if recurrence != "" {
				if !json.Valid([]byte(recurrence)) {
					return fmt.Errorf("recurrence is not valid JSON")
				}
				req.Recurrence = json.RawMessage(recurrence)
			}

			cfg, err := client.CreateChildConfig(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Child config created: %s", cfg.ID))
			out.Print(
				[]string{"ID", "MODE", "CHILD_TYPE", "ENABLED", "NEXT_RUN"},
				[][]string{{cfg.ID, cfg.Mode, cfg.ChildTypeID, strconv.FormatBool(cfg.Enabled), cfg.NextRunAt}},
				cfg,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&childType, "child-type", "", "Child process type ID (required)")
	cmd.Flags().StringVar(&mode, "mode", "MANUAL", "Mode (MANUAL, TRIGGERED, RECURRENT, SCHEDULED)")
	cmd.Flags().IntVar(&triggerStep, "trigger-step", 0, "Parent step order for TRIGGERED mode")
	cmd.Flags().BoolVar(&wait, "wait", false, "Parent waits for child completion")
	cmd.Flags().StringSliceVar(&mapping, "map", nil, "Form data mapping as PARENT_KEY=CHILD_KEY (repeatable)")
	cmd.Flags().StringVar(&recurrence, "recurrence", "", "Recurrence JSON for RECURRENT/SCHEDULED mode")
	cmd.MarkFlagRequired("child-type")

	return cmd
}

func newChildListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list INSTANCE_ID",
		Short: "List child processes of an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			edges, err := client.ListChildren(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ID", "CHILD_INSTANCE", "STATUS", "CREATED", "COMPLETED"}
			rows := make([][]string, len(edges))
			for i, e := range edges {
				rows[i] = []string{e.ID, e.ChildInstanceID, e.Status, e.CreatedAt, e.CompletedAt}
			}

			out.Print(headers, rows, edges)
			return nil
		},
	}
}

func newChildSpawnCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var actorID string
	var override []string

	cmd := &cobra.Command{
		Use:   "spawn CONFIG_ID",
		Short: "Manually spawn a child process from a config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := SpawnChildRequest{ActorID: actorID}

			if len(override) > 0 {
				req.OverrideFormData = make(map[string]any)
				for _, kv := range override {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid data format %q, expected KEY=VALUE", kv)
					}
					req.OverrideFormData[parts[0]] = parts[1]
				}
			}

			edge, err := client.SpawnChild(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Child spawned: %s", edge.ChildInstanceID))
			out.Print(
				[]string{"ID", "CHILD_INSTANCE", "STATUS", "CREATED"},
				[][]string{{edge.ID, edge.ChildInstanceID, edge.Status, edge.CreatedAt}},
				edge,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&actorID, "actor", "", "Acting user ID (required)")
	cmd.Flags().StringSliceVar(&override, "data", nil, "Override form data as KEY=VALUE (repeatable)")
	cmd.MarkFlagRequired("actor")

	return cmd
}
