package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewTypeCmd создаёт группу команд для управления шаблонами процессов.
func NewTypeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "type",
		Short: "Manage process types",
	}

	cmd.AddCommand(
		newTypeListCmd(clientFn, outputFn),
		newTypeCreateCmd(clientFn, outputFn),
		newTypeShowCmd(clientFn, outputFn),
		newTypeStepsCmd(clientFn, outputFn),
	)

	return cmd
}

func newTypeListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var onlyActive bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List process types",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			types, err := client.ListProcessTypes(onlyActive)
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "ACTIVE", "STEPS", "CREATED"}
			rows := make([][]string, len(types))
			for i, t := range types {
				rows[i] = []string{t.ID, t.Name, strconv.FormatBool(t.IsActive), strconv.Itoa(len(t.Steps)), t.CreatedAt}
			}

			out.Print(headers, rows, types)
			return nil
		},
	}

	cmd.Flags().BoolVar(&onlyActive, "active", false, "Only active types")

	return cmd
}

func newTypeCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var specFile string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a process type from a JSON template file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(specFile)
			if err != nil {
				return fmt.Errorf("failed to read template file: %w", err)
			}
			if !json.Valid(data) {
				return fmt.Errorf("template file is not valid JSON")
			}

			pt, err := client.CreateProcessType(json.RawMessage(data))
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Process type created: %s", pt.ID))
			out.Print(
				[]string{"ID", "NAME", "ACTIVE", "STEPS", "CREATED"},
				[][]string{{pt.ID, pt.Name, strconv.FormatBool(pt.IsActive), strconv.Itoa(len(pt.Steps)), pt.CreatedAt}},
				pt,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&specFile, "file", "", "Path to template JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newTypeShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show process type details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			pt, err := client.GetProcessType(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "NAME", "ACTIVE", "STEPS", "CREATED"},
				[][]string{{pt.ID, pt.Name, strconv.FormatBool(pt.IsActive), strconv.Itoa(len(pt.Steps)), pt.CreatedAt}},
				pt,
			)
			return nil
		},
	}
}

func newTypeStepsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "steps TYPE_ID",
		Short: "List steps of a process type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			steps, err := client.ListTypeSteps(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ORDER", "NAME", "TYPE", "ATTACHMENT", "SIGNATURE", "SLA_H"}
			rows := make([][]string, len(steps))
			for i, s := range steps {
				rows[i] = []string{
					strconv.Itoa(s.Order),
					s.Name,
					s.Type,
					strconv.FormatBool(s.RequireAttachment),
					strconv.FormatBool(s.RequiresSignature),
					strconv.Itoa(s.SLAHours),
				}
			}

			out.Print(headers, rows, steps)
			return nil
		},
	}
}
