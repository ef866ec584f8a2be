package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

// NewStepCmd создаёт группу команд для работы с шагами: выполнение,
// вложения и подписи.
func NewStepCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Execute steps, upload attachments and sign",
	}

	cmd.AddCommand(
		newStepExecuteCmd(clientFn, outputFn),
		newStepAttachCmd(clientFn, outputFn),
		newStepRequirementsCmd(clientFn, outputFn),
		newStepRequireCmd(clientFn, outputFn),
		newStepSignCmd(clientFn, outputFn),
	)

	return cmd
}

func newStepExecuteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var actorID, action, comment string

	cmd := &cobra.Command{
		Use:   "execute EXEC_ID",
		Short: "Execute an active step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.ExecuteStep(args[0], ExecuteStepRequest{
				ActorID: actorID,
				Action:  action,
				Comment: comment,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Step %d executed", exec.StepOrder))
			out.Print(
				[]string{"EXEC_ID", "ORDER", "STATUS", "ACTION", "COMPLETED"},
				[][]string{{exec.ID, strconv.Itoa(exec.StepOrder), exec.Status, exec.Action, exec.CompletedAt}},
				exec,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&actorID, "actor", "", "Acting user ID (required)")
	cmd.Flags().StringVar(&action, "action", "", "Action to record (e.g. aprovar, reprovar)")
	cmd.Flags().StringVar(&comment, "comment", "", "Optional comment")
	cmd.MarkFlagRequired("actor")

	return cmd
}

func newStepAttachCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var actorID, file string

	cmd := &cobra.Command{
		Use:   "attach EXEC_ID",
		Short: "Upload an attachment for a step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			att, err := client.CreateAttachment(args[0], CreateAttachmentRequest{
				Filename:     filepath.Base(file),
				UploadedByID: actorID,
				Content:      data,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Attachment uploaded: %s", att.ID))
			out.Print(
				[]string{"ID", "FILENAME", "CREATED"},
				[][]string{{att.ID, att.Filename, att.CreatedAt}},
				att,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&actorID, "actor", "", "Uploading user ID (required)")
	cmd.Flags().StringVar(&file, "file", "", "Path to the document (required)")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newStepRequirementsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var attachmentID string

	cmd := &cobra.Command{
		Use:   "requirements EXEC_ID",
		Short: "List signature requirements of a step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			reqs, err := client.ListRequirements(args[0], attachmentID)
			if err != nil {
				return err
			}

			headers := []string{"ID", "ORDER", "TYPE", "USER", "SECTOR", "ATTACHMENT"}
			rows := make([][]string, len(reqs))
			for i, r := range reqs {
				rows[i] = []string{r.ID, strconv.Itoa(r.Order), r.Type, r.UserID, r.SectorID, r.AttachmentID}
			}

			out.Print(headers, rows, reqs)
			return nil
		},
	}

	cmd.Flags().StringVar(&attachmentID, "attachment", "", "Scope to a single attachment")

	return cmd
}

func newStepRequireCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var userID, sectorID, attachmentID, sigType string
	var order int

	cmd := &cobra.Command{
		Use:   "require EXEC_ID",
		Short: "Add a signature requirement to a step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			created, err := client.CreateRequirement(args[0], CreateRequirementRequest{
				AttachmentID: attachmentID,
				UserID:       userID,
				SectorID:     sectorID,
				Order:        order,
				Type:         sigType,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Requirement created: %s", created.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Required signer user ID")
	cmd.Flags().StringVar(&sectorID, "sector", "", "Required signer sector ID")
	cmd.Flags().StringVar(&attachmentID, "attachment", "", "Scope to a single attachment")
	cmd.Flags().StringVar(&sigType, "type", "", "Signature type (SEQUENTIAL or PARALLEL)")
	cmd.Flags().IntVar(&order, "order", 1, "Signing order")

	return cmd
}

func newStepSignCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var actorID, name, email, credential string

	cmd := &cobra.Command{
		Use:   "sign REQUIREMENT_ID",
		Short: "Sign a requirement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			result, err := client.Sign(args[0], SignRequest{
				ActorID:    actorID,
				ActorName:  name,
				ActorEmail: email,
				Credential: credential,
			})
			if err != nil {
				return err
			}

			out.Success("Signed")
			out.Print(
				[]string{"TOKEN", "DOCUMENT_HASH", "ALL_SIGNED", "STEP_SIGNED"},
				[][]string{{
					result.Record.SignatureToken,
					result.Record.DocumentHash,
					strconv.FormatBool(result.AllSigned),
					strconv.FormatBool(result.StepSigned),
				}},
				result,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&actorID, "actor", "", "Signer user ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "Signer display name")
	cmd.Flags().StringVar(&email, "email", "", "Signer email (required)")
	cmd.Flags().StringVar(&credential, "credential", "", "Identity credential")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("email")

	return cmd
}
