// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Aggregation operators accepted by the agg argument.
var aggEnum = mcp.Enum("sum", "mean", "median", "min", "max", "count")

// pipelineArgs are the tool options shared by the pipeline tools.
func pipelineArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString(argPath, mcp.Description("Path to a CSV or XLSX footfall export."), mcp.Required()),
		mcp.WithString(argPrimaryKey, mcp.Description("Spatial key column to group by, such as hex_id. Omit for no spatial grouping.")),
		mcp.WithBoolean(argDayNight, mcp.Description("Group rows by daytime (6am-6pm) and nighttime (6pm-6am).")),
		mcp.WithString(argAgg, mcp.Description("Aggregation operator. Defaults to 'sum'."), aggEnum),
		mcp.WithNumber(argStd, mcp.Description("Z-score threshold beyond which a value is anomalous. Defaults to 3.")),
	}
}

// NewMCPServer initializes and configures the Footfall MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Footfall Analysis Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: aggregate_footfall ---
	s.AddTool(mcp.NewTool(toolAggregate, append(pipelineArgs(),
		mcp.WithDescription("Aggregate footfall per date and correct anomalous counts with a trailing moving average."),
		mcp.WithString(argFootfallTypes, mcp.Description("Comma-separated footfall types (residents, workers, visitors). Defaults to all three.")),
	)...), h.handleAggregate)

	// --- 2. Tool: detect_anomalies ---
	s.AddTool(mcp.NewTool(toolAnomalies, append(pipelineArgs(),
		mcp.WithDescription("Score one footfall type with z-scores and report which dates are anomalous."),
		mcp.WithString(argMetric, mcp.Description("Footfall type to score."), mcp.Required(), mcp.Enum("residents", "workers", "visitors")),
	)...), h.handleAnomalies)

	// --- 3. Tool: typical_footfall ---
	s.AddTool(mcp.NewTool(toolTypical, append(pipelineArgs(),
		mcp.WithDescription("Summarize typical footfall per key and year, overall and by weekday/weekend."),
		mcp.WithString(argFootfallTypes, mcp.Description("Comma-separated footfall types to summarize.")),
		mcp.WithString(argStart, mcp.Description("Inclusive start date (YYYY-MM-DD or a relative time like '6 months ago').")),
		mcp.WithString(argEnd, mcp.Description("Inclusive end date (YYYY-MM-DD or a relative time).")),
	)...), h.handleTypical)

	// --- 4. Tool: validate_footfall ---
	s.AddTool(mcp.NewTool(toolValidate,
		mcp.WithDescription("Report row counts, duplicates and per-column statistics of a footfall export."),
		mcp.WithString(argPath, mcp.Description("Path to a CSV or XLSX footfall export."), mcp.Required()),
		mcp.WithString(argPrimaryKey, mcp.Description("Spatial key column whose distinct values are counted.")),
	), h.handleValidate)

	return s
}

// StartMCPServer starts the Footfall MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
