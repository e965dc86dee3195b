package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openclaw/routekit/internal/application"
	"github.com/openclaw/routekit/internal/domain/flow"
	"github.com/openclaw/routekit/pkg/sdk"
)

var (
	addStepRoute       string
	addStepPredecessor string
	addStepKind        string
	addStepDescription string

	stepStatusRoute string
	removeStepRoute string
	stepLogRoute    string

	createRouteTask string
	createRouteGoal string
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Propose changes to a route's step graph",
	Long: `Propose changes to a route's step graph.

Every subcommand only proposes a change set and prints its diff; apply
it with 'routekit changes commit <id>'.`,
}

var routeCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Propose a new route for a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		cs, err := services.Changes.ProposeCreateRoute(cmd.Context(), application.CreateRouteInput{
			TaskID: createRouteTask,
			Name:   args[0],
			Goal:   createRouteGoal,
		}, services.Client.DefaultActor())
		if err != nil {
			return MapError(err)
		}
		return printChangeSet(cs)
	},
}

var routeAddStepCmd = &cobra.Command{
	Use:   "add-step <title>",
	Short: "Propose inserting a step after a predecessor",
	Long: `Propose inserting a step after a predecessor.

The edge relation is inferred from the predecessor's kind and the new
step's kind (idea after idea refines it, goal after idea initiates it,
idea after goal hands off). Chaining a goal directly after a goal is
rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		cs, err := services.Changes.ProposeAddStep(cmd.Context(), application.AddStepInput{
			RouteID:       addStepRoute,
			PredecessorID: addStepPredecessor,
			Title:         args[0],
			Description:   addStepDescription,
			Kind:          flow.Kind(addStepKind),
		}, services.Client.DefaultActor())
		if err != nil {
			return MapError(err)
		}
		return printChangeSet(cs)
	},
}

var routeSetStatusCmd = &cobra.Command{
	Use:   "set-status <step-id> <status>",
	Short: "Propose moving a step to a new status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		cs, err := services.Changes.ProposeStepStatus(cmd.Context(),
			stepStatusRoute, args[0], flow.Status(args[1]), services.Client.DefaultActor())
		if err != nil {
			return MapError(err)
		}
		return printChangeSet(cs)
	},
}

var routeRemoveStepCmd = &cobra.Command{
	Use:   "remove-step <step-id>",
	Short: "Propose deleting a leaf step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		cs, err := services.Changes.ProposeRemoveStep(cmd.Context(),
			removeStepRoute, args[0], services.Client.DefaultActor())
		if err != nil {
			return MapError(err)
		}
		return printChangeSet(cs)
	},
}

var routeLogCmd = &cobra.Command{
	Use:   "log <step-id> <content>",
	Short: "Propose appending a progress log to a step",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		cs, err := services.Changes.ProposeAppendStepLog(cmd.Context(),
			stepLogRoute, args[0], args[1], services.Client.DefaultActor())
		if err != nil {
			return MapError(err)
		}
		return printChangeSet(cs)
	},
}

func init() {
	routeCreateCmd.Flags().StringVar(&createRouteTask, "task", "", "Task the route belongs to (required)")
	routeCreateCmd.Flags().StringVar(&createRouteGoal, "goal", "", "Goal text for the route")
	_ = routeCreateCmd.MarkFlagRequired("task")

	routeAddStepCmd.Flags().StringVar(&addStepRoute, "route", "", "Route id (required)")
	routeAddStepCmd.Flags().StringVar(&addStepPredecessor, "after", "", "Predecessor step id (required)")
	routeAddStepCmd.Flags().StringVar(&addStepKind, "kind", "idea", "Step kind (goal or idea)")
	routeAddStepCmd.Flags().StringVar(&addStepDescription, "description", "", "Step description")
	_ = routeAddStepCmd.MarkFlagRequired("route")
	_ = routeAddStepCmd.MarkFlagRequired("after")

	routeSetStatusCmd.Flags().StringVar(&stepStatusRoute, "route", "", "Route id (required)")
	_ = routeSetStatusCmd.MarkFlagRequired("route")

	routeRemoveStepCmd.Flags().StringVar(&removeStepRoute, "route", "", "Route id (required)")
	_ = routeRemoveStepCmd.MarkFlagRequired("route")

	routeLogCmd.Flags().StringVar(&stepLogRoute, "route", "", "Route id (required)")
	_ = routeLogCmd.MarkFlagRequired("route")

	routeCmd.AddCommand(routeCreateCmd)
	routeCmd.AddCommand(routeAddStepCmd)
	routeCmd.AddCommand(routeSetStatusCmd)
	routeCmd.AddCommand(routeRemoveStepCmd)
	routeCmd.AddCommand(routeLogCmd)
	RootCmd.AddCommand(routeCmd)
}

// printChangeSet renders a proposed change set's summary and diff and
// reminds the operator that nothing is applied yet.
func printChangeSet(cs *sdk.ChangeSet) error {
	fmt.Printf("Change set %s (%s)\n", cs.ChangeSetID, cs.Status)
	for category, count := range cs.Summary {
		fmt.Printf("  %s: %d\n", category, count)
	}
	for _, d := range cs.Diff {
		if d.EntityID != "" {
			fmt.Printf("  %s %s %s\n", d.Op, d.EntityType, d.EntityID)
		} else {
			fmt.Printf("  %s %s\n", d.Op, d.EntityType)
		}
	}
	fmt.Printf("\nNothing applied. Commit with: routekit changes commit %s\n", cs.ChangeSetID)
	return nil
}
