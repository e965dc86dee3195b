package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openclaw/routekit/pkg/sdk"
)

var (
	commitApprover string
	undoReason     string
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Commit, reject or undo proposed change sets",
}

var changesCommitCmd = &cobra.Command{
	Use:   "commit <change-set-id>",
	Short: "Apply a proposed change set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		approvedBy := services.Client.DefaultActor()
		if commitApprover != "" {
			approvedBy = sdk.Actor{Type: "user", ID: commitApprover}
		}
		commit, err := services.Changes.Commit(cmd.Context(), args[0], approvedBy)
		if err != nil {
			return MapError(err)
		}
		fmt.Printf("Committed %s as commit %s\n", commit.ChangeSetID, commit.CommitID)
		return nil
	},
}

var changesRejectCmd = &cobra.Command{
	Use:   "reject <change-set-id>",
	Short: "Discard a proposed change set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		if err := services.Changes.Reject(cmd.Context(), args[0]); err != nil {
			return MapError(err)
		}
		fmt.Printf("Rejected %s\n", args[0])
		return nil
	},
}

var changesUndoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Revert the most recent commit with a compensating commit",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		result, err := services.Changes.UndoLast(cmd.Context(), services.Client.DefaultActor(), undoReason)
		if err != nil {
			return MapError(err)
		}
		fmt.Printf("Undid commit %s via compensating commit %s\n",
			result.UndoneCommitID, result.RevertCommitID)
		return nil
	},
}

func init() {
	changesCommitCmd.Flags().StringVar(&commitApprover, "approved-by", "", "Actor id approving the change (defaults to the configured actor)")

	changesUndoCmd.Flags().StringVar(&undoReason, "reason", "", "Audit reason for the undo (required)")
	_ = changesUndoCmd.MarkFlagRequired("reason")

	changesCmd.AddCommand(changesCommitCmd)
	changesCmd.AddCommand(changesRejectCmd)
	changesCmd.AddCommand(changesUndoCmd)
	RootCmd.AddCommand(changesCmd)
}
