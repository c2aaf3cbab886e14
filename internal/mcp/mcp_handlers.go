package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/footfall/core"
	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool names.
const (
	toolAggregate = "aggregate_footfall"
	toolAnomalies = "detect_anomalies"
	toolTypical   = "typical_footfall"
	toolValidate  = "validate_footfall"
)

// Tool argument names.
const (
	argPath          = "path"
	argPrimaryKey    = "primary_key"
	argDayNight      = "day_night"
	argAgg           = "agg"
	argStd           = "std"
	argFootfallTypes = "footfall_types"
	argMetric        = "metric"
	argStart         = "start"
	argEnd           = "end"
)

var pipelineArgNames = []string{argPath, argPrimaryKey, argDayNight, argAgg, argStd}

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// configure clones the base config and applies the request arguments.
// Arguments outside allowed are rejected.
func (h *toolHandler) configure(request mcp.CallToolRequest, allowed []string) (*contract.Config, error) {
	var unknown []string
	for name := range request.GetArguments() {
		if !slices.Contains(allowed, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, fmt.Errorf("%w: unknown arguments %s", contract.ErrInvalidOptions, strings.Join(unknown, ", "))
	}

	cfg := h.baseCfg.Clone()
	if err := contract.RevalidateSource(cfg, request.GetString(argPath, "")); err != nil {
		return nil, err
	}
	if pk := strings.TrimSpace(request.GetString(argPrimaryKey, "")); pk != "" {
		cfg.Pipeline.PrimaryKey = pk
		cfg.Columns.Key = pk
	}
	cfg.Pipeline.DayNight = request.GetBool(argDayNight, cfg.Pipeline.DayNight)
	if a := request.GetString(argAgg, ""); a != "" {
		cfg.Pipeline.Agg = schema.AggOperator(strings.ToLower(a))
	}
	cfg.Pipeline.Std = request.GetFloat(argStd, cfg.Pipeline.Std)
	if ft := request.GetString(argFootfallTypes, ""); ft != "" {
		cfg.Pipeline.FootfallTypes = contract.ParseFootfallTypes(ft)
	}
	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
	}

	if m := request.GetString(argMetric, ""); m != "" {
		cfg.Metric = schema.FootfallType(strings.ToLower(m))
		if _, ok := schema.ValidFootfallTypes[cfg.Metric]; !ok {
			return nil, fmt.Errorf("%w: [%s]", contract.ErrInvalidFootfallType, m)
		}
	}

	now := time.Now()
	var err error
	if s := request.GetString(argStart, ""); s != "" {
		if cfg.Start, err = contract.ParseWindowBound(s, now); err != nil {
			return nil, fmt.Errorf("invalid start date: %w", err)
		}
	}
	if e := request.GetString(argEnd, ""); e != "" {
		if cfg.End, err = contract.ParseWindowBound(e, now); err != nil {
			return nil, fmt.Errorf("invalid end date: %w", err)
		}
	}
	return cfg, nil
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (h *toolHandler) handleAggregate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configure(request, append(slices.Clone(pipelineArgNames), argFootfallTypes))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid aggregate parameters: %v", err)), nil
	}
	rows, err := core.GetAggregateResults(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("aggregation failed: %v", err)), nil
	}
	return jsonResult(rows)
}

func (h *toolHandler) handleAnomalies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configure(request, append(slices.Clone(pipelineArgNames), argMetric))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid anomaly parameters: %v", err)), nil
	}
	rows, err := core.GetAnomalyResults(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("anomaly detection failed: %v", err)), nil
	}
	return jsonResult(rows)
}

func (h *toolHandler) handleTypical(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configure(request, append(slices.Clone(pipelineArgNames), argFootfallTypes, argStart, argEnd))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid typical parameters: %v", err)), nil
	}
	result, err := core.GetTypicalResults(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("typical summary failed: %v", err)), nil
	}
	return jsonResult(result)
}

func (h *toolHandler) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configure(request, []string{argPath, argPrimaryKey})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid validation parameters: %v", err)), nil
	}
	report, err := core.GetValidationResults(core.WithSuppressHeader(ctx), cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("validation failed: %v", err)), nil
	}
	return jsonResult(report)
}
