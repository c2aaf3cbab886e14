package cmd

import (
	"github.com/huangsam/footfall/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Footfall MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents aggregate, score,
summarize and validate footfall exports via standard tools.

Each tool call names its own CSV or XLSX path; the flags and config file
provide the defaults for every other option.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Tools supply the source path, and headers are suppressed per call
		// so stdout stays reserved for the protocol.
		return sharedSetup(rootCtx, cmd, args, true)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
