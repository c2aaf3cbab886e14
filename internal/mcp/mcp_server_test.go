package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/footfall/internal/contract"
	mcp_internal "github.com/huangsam/footfall/internal/mcp"
	"github.com/huangsam/footfall/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `hex_id,count_date,time_indicator,resident,worker,visitor
a,2023-01-02,06-09,1,1,1
a,2023-01-02,21-24,1,1,1
a,2023-01-07,06-09,2,0,0
a,2023-01-08,06-09,4,0,0
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "footfall.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	return path
}

func baseConfig() *contract.Config {
	opts := contract.DefaultOptions()
	opts.Workers = 1
	return &contract.Config{
		Columns:      contract.DefaultColumnMapping(),
		Pipeline:     opts,
		Metric:       schema.Residents,
		Output:       schema.JSONOut,
		CacheBackend: schema.NoneBackend,
	}
}

func callTool(t *testing.T, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var mgr contract.CacheManager
	s := mcp_internal.NewMCPServer(baseConfig(), mgr)
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	path := writeSample(t)

	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		wantErr string
	}{
		{"missing path", "aggregate_footfall", map[string]any{}, "a path to a csv or xlsx file is required"},
		{"sql path", "validate_footfall", map[string]any{"path": "footfall.db"}, "sql sources are not supported"},
		{"unknown argument", "aggregate_footfall", map[string]any{"path": path, "window": 7}, "unknown arguments window"},
		{"argument of another tool", "validate_footfall", map[string]any{"path": path, "std": 2.0}, "unknown arguments std"},
		{"bad std", "detect_anomalies", map[string]any{"path": path, "metric": "residents", "std": -1.0}, "invalid options"},
		{"bad agg", "aggregate_footfall", map[string]any{"path": path, "agg": "mode"}, "invalid options"},
		{"bad footfall type", "typical_footfall", map[string]any{"path": path, "footfall_types": "aliens"}, "invalid footfall type"},
		{"bad metric", "detect_anomalies", map[string]any{"path": path, "metric": "tourists"}, "invalid footfall type"},
		{"bad start", "typical_footfall", map[string]any{"path": path, "start": "someday"}, "invalid start date"},
		{"missing file", "aggregate_footfall", map[string]any{"path": filepath.Join(t.TempDir(), "nope.csv")}, "aggregation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, tt.tool, tt.args)
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, resultText(t, res), tt.wantErr)
		})
	}
}

func TestMCPAggregateFootfall(t *testing.T) {
	res := callTool(t, "aggregate_footfall", map[string]any{"path": writeSample(t), "primary_key": "hex_id"})
	require.False(t, res.IsError, resultText(t, res))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "a", rows[0]["key"])
	assert.Equal(t, "2023-01-02", rows[0]["count_date"])
	assert.InDelta(t, 6.0, rows[0]["corrected_value_total"], 1e-9)
}

func TestMCPDetectAnomalies(t *testing.T) {
	res := callTool(t, "detect_anomalies", map[string]any{"path": writeSample(t), "metric": "workers", "day_night": true})
	require.False(t, res.IsError, resultText(t, res))

	var rows []schema.AnomalyRow
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &rows))
	require.NotEmpty(t, rows)
	for _, r := range rows {
		assert.Equal(t, schema.Workers, r.Metric)
		assert.NotEmpty(t, r.Daynight)
	}
}

func TestMCPTypicalFootfall(t *testing.T) {
	res := callTool(t, "typical_footfall", map[string]any{"path": writeSample(t), "end": "2023-01-07"})
	require.False(t, res.IsError, resultText(t, res))

	var result schema.TypicalResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &result))
	require.Len(t, result.Typical, 1)
	assert.Equal(t, "a", result.Typical[0].Key)
	assert.Equal(t, 2023, result.Typical[0].Year)
	require.NotNil(t, result.Typical[0].Average)
}

func TestMCPValidateFootfall(t *testing.T) {
	res := callTool(t, "validate_footfall", map[string]any{"path": writeSample(t), "primary_key": "hex_id"})
	require.False(t, res.IsError, resultText(t, res))

	var report schema.ValidationReport
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &report))
	assert.Equal(t, 4, report.Rows)
	assert.Zero(t, report.DuplicateRows)
	assert.Equal(t, 1, report.DistinctCounts["hex_id"])
}
