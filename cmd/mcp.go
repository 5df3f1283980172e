package cmd

import (
	"context"

	"github.com/agentic-research/genui/internal/state"
	"github.com/agentic-research/genui/internal/stream"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the patch engine as an MCP tool over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := server.NewMCPServer("genui", "0.1.0", server.WithToolCapabilities(false))

		s.AddTool(mcp.NewTool("render_patch_script",
			mcp.WithDescription("Fold a JSONL patch script into its final UI tree and data model"),
			mcp.WithString("script",
				mcp.Required(),
				mcp.Description("Newline-delimited JSON patch lines"),
			),
			mcp.WithString("query",
				mcp.Description("Optional JSONPath evaluated against the resulting data model"),
			),
		), handleRenderScript)

		return server.ServeStdio(s)
	},
}

func handleRenderScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	script, err := req.RequireString("script")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	st := state.NewStore(nil)
	p := stream.New(stream.Options{OnData: st.ApplyPatch})
	p.Feed(ctx, script)
	p.Finish(ctx)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if expr := req.GetString("query", ""); expr != "" {
		results, err := st.Query(expr)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(oj.JSON(results, &oj.Options{Sort: true})), nil
	}

	out := map[string]any{
		"tree":  p.Tree(),
		"model": st.Snapshot(),
	}
	return mcp.NewToolResultText(oj.JSON(out, &oj.Options{Sort: true})), nil
}
