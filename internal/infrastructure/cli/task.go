package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openclaw/routekit/internal/application"
	"github.com/openclaw/routekit/pkg/sdk"
)

var (
	taskListStatus string
	taskListQuery  string
	taskListLimit  int
	taskListJSON   bool

	snapshotLogs      bool
	snapshotAllRoutes bool
	snapshotJSON      bool
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Resolve and inspect tasks",
}

var taskResolveCmd = &cobra.Command{
	Use:   "resolve <query>",
	Short: "Resolve a task by id or free-text title",
	Long: `Resolve a task by id or free-text title.

Titles are matched after normalization (lowercased, punctuation
stripped). When several tasks share a title and more than one is still
open, the candidates are listed instead of guessing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		res, err := services.Resolver.Resolve(cmd.Context(), args[0])
		if err != nil {
			return MapError(err)
		}
		if res.NeedsDisambiguation {
			fmt.Printf("%q matches %d tasks — pick one by id:\n", args[0], len(res.Candidates))
			for _, c := range res.Candidates {
				fmt.Printf("  %s  [%-11s] %s (updated %s)\n", c.ID, c.Status, c.Title, c.UpdatedAt.Format("2006-01-02"))
			}
			return nil
		}
		fmt.Printf("%s  [%s] %s\n", res.Task.ID, res.Task.Status, res.Task.Title)
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		list, err := services.Client.ListTasks(cmd.Context(), listTasksParams())
		if err != nil {
			return MapError(err)
		}
		if taskListJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		fmt.Printf("Tasks: %d (showing %d)\n", list.Total, len(list.Items))
		for _, t := range list.Items {
			fmt.Printf("  %s  [%-11s] %s\n", t.ID, t.Status, t.Title)
		}
		return nil
	},
}

var taskSnapshotCmd = &cobra.Command{
	Use:   "snapshot <task-id-or-title>",
	Short: "Show the execution snapshot of a task's active route",
	Long: `Show the execution snapshot of a task's active route: current step,
its direct predecessors, status buckets and dependency levels.

Flags:
  --logs        Fetch per-step execution logs
  --all-routes  Snapshot every route, active route first
  --json        Output in JSON format`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskSnapshot,
}

func runTaskSnapshot(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return MapError(err)
	}

	res, err := services.Resolver.Resolve(cmd.Context(), args[0])
	if err != nil {
		return MapError(err)
	}
	if res.NeedsDisambiguation {
		fmt.Printf("%q is ambiguous — rerun with one of:\n", args[0])
		for _, c := range res.Candidates {
			fmt.Printf("  %s  [%-11s] %s\n", c.ID, c.Status, c.Title)
		}
		return nil
	}

	snap, err := services.Snapshots.TaskSnapshot(cmd.Context(), *res.Task, application.SnapshotOptions{
		IncludeLogs: snapshotLogs,
		AllRoutes:   snapshotAllRoutes,
	})
	if err != nil {
		return MapError(err)
	}

	if snapshotJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return printSnapshot(snap)
}

func printSnapshot(snap *application.TaskSnapshot) error {
	fmt.Printf("Task: %s [%s] %s\n", snap.Task.ID, snap.Task.Status, snap.Task.Title)
	if snap.Route == nil {
		fmt.Println("No routes yet.")
		return nil
	}

	routes := snap.Routes
	if len(routes) == 0 {
		routes = []*application.RouteSnapshot{snap.Route}
	}
	for _, rs := range routes {
		printRoute(rs)
	}
	return nil
}

func printRoute(rs *application.RouteSnapshot) {
	fmt.Printf("\nRoute: %s [%s] %s\n", rs.Route.ID, rs.Route.Status, rs.Route.Name)
	if rs.CycleDetected {
		fmt.Println("WARNING: dependency cycle detected in this route's graph")
	}
	fmt.Printf("Steps: %d (%d executing, %d done, %d waiting)\n",
		len(rs.Steps), len(rs.Executing), len(rs.Done), len(rs.Waiting))

	if rs.Current != nil {
		fmt.Printf("Current: [%s] %s\n", rs.Current.Status(), rs.Current.Title)
		for _, p := range rs.Previous {
			fmt.Printf("  after: [%s] %s\n", p.Status(), p.Title)
		}
	}

	for _, st := range rs.Steps {
		marker := " "
		if rs.Current != nil && st.ID == rs.Current.ID {
			marker = ">"
		}
		fmt.Printf("%s L%d [%-7s] %-10s %s\n", marker, rs.Levels[st.ID], st.Status(), st.Kind, st.Title)
		for _, entry := range rs.Logs[st.ID] {
			fmt.Printf("      log: %s\n", entry.Content)
		}
	}
}

func listTasksParams() sdk.ListTasksParams {
	return sdk.ListTasksParams{
		Status:   taskListStatus,
		Query:    taskListQuery,
		PageSize: taskListLimit,
	}
}

func init() {
	taskListCmd.Flags().StringVarP(&taskListStatus, "status", "s", "", "Filter by status (todo,in_progress,done,cancelled)")
	taskListCmd.Flags().StringVarP(&taskListQuery, "query", "q", "", "Full-text filter")
	taskListCmd.Flags().IntVarP(&taskListLimit, "limit", "n", 0, "Limit number of tasks shown")
	taskListCmd.Flags().BoolVar(&taskListJSON, "json", false, "Output in JSON format")

	taskSnapshotCmd.Flags().BoolVar(&snapshotLogs, "logs", false, "Fetch per-step execution logs")
	taskSnapshotCmd.Flags().BoolVar(&snapshotAllRoutes, "all-routes", false, "Snapshot every route, active route first")
	taskSnapshotCmd.Flags().BoolVar(&snapshotJSON, "json", false, "Output in JSON format")

	taskCmd.AddCommand(taskResolveCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskSnapshotCmd)
	RootCmd.AddCommand(taskCmd)
}
