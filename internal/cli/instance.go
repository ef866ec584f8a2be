package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewInstanceCmd создаёт группу команд для управления экземплярами.
func NewInstanceCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instance",
		Short: "Manage process instances",
	}

	cmd.AddCommand(
		newInstanceListCmd(clientFn, outputFn),
		newInstanceStartCmd(clientFn, outputFn),
		newInstanceShowCmd(clientFn, outputFn),
		newInstanceCancelCmd(clientFn, outputFn),
	)

	return cmd
}

func newInstanceListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status, typeID, createdBy string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List process instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			instances, err := client.ListInstances(ListInstancesOpts{
				Status:    status,
				TypeID:    typeID,
				CreatedBy: createdBy,
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "CODE", "STATUS", "STEP", "CREATED"}
			rows := make([][]string, len(instances))
			for i, inst := range instances {
				rows[i] = []string{inst.ID, inst.Code, inst.Status, strconv.Itoa(inst.CurrentStepOrder), inst.CreatedAt}
			}

			out.Print(headers, rows, instances)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (IN_PROGRESS, COMPLETED, REJECTED, CANCELLED)")
	cmd.Flags().StringVar(&typeID, "type-id", "", "Filter by process type ID")
	cmd.Flags().StringVar(&createdBy, "created-by", "", "Filter by creator user ID")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newInstanceStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var actorID string
	var formData []string

	cmd := &cobra.Command{
		Use:   "start TYPE_ID",
		Short: "Start a new process instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := CreateInstanceRequest{CreatedByID: actorID}

			if len(formData) > 0 {
				req.FormData = make(map[string]any)
				for _, kv := range formData {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid form data format %q, expected KEY=VALUE", kv)
					}
					req.FormData[parts[0]] = parts[1]
				}
			}

			inst, err := client.CreateInstance(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Instance started: %s (%s)", inst.Code, inst.ID))
			out.Print(
				[]string{"ID", "CODE", "STATUS", "STEP", "CREATED"},
				[][]string{{inst.ID, inst.Code, inst.Status, strconv.Itoa(inst.CurrentStepOrder), inst.CreatedAt}},
				inst,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&actorID, "actor", "", "Acting user ID (required)")
	cmd.Flags().StringSliceVar(&formData, "data", nil, "Form data as KEY=VALUE (repeatable)")
	cmd.MarkFlagRequired("actor")

	return cmd
}

func newInstanceShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show instance details with step executions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			detail, err := client.GetInstance(args[0])
			if err != nil {
				return err
			}

			headers := []string{"EXEC_ID", "ORDER", "STATUS", "ACTION", "DUE", "COMPLETED"}
			rows := make([][]string, len(detail.StepExecutions))
			for i, e := range detail.StepExecutions {
				rows[i] = []string{e.ID, strconv.Itoa(e.StepOrder), e.Status, e.Action, e.DueAt, e.CompletedAt}
			}

			inst := detail.Instance
			out.Success(fmt.Sprintf("%s  %s  step %d", inst.Code, inst.Status, inst.CurrentStepOrder))
			out.Print(headers, rows, detail)
			return nil
		},
	}
}

func newInstanceCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var actorID string

	cmd := &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a process instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			inst, err := client.CancelInstance(args[0], actorID)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Instance cancelled: %s", inst.Code))
			return nil
		},
	}

	cmd.Flags().StringVar(&actorID, "actor", "", "Acting user ID (required)")
	cmd.MarkFlagRequired("actor")

	return cmd
}
