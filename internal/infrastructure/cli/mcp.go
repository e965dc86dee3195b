package cli

import (
	"github.com/spf13/cobra"

	inframcp "github.com/openclaw/routekit/internal/infrastructure/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the routekit MCP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		server := inframcp.NewServer(services.Client, services.Resolver, services.Snapshots, services.Changes)
		return server.ServeStdio(cmd.Context())
	},
}

func init() {
	RootCmd.AddCommand(mcpCmd)
}
