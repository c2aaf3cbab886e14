package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRecords(t *testing.T) {
	cols := contract.DefaultColumnMapping()
	cols.Key = "hex_id"

	records := []schema.FootfallRecord{
		{Key: "a", CountDate: "2023-01-02", TimeSlice: "06-09", Resident: 1, Worker: 2, Visitor: 3, Extra: map[string]string{"OID_": "1"}},
		{Key: "a", CountDate: "2023-01-02", TimeSlice: "06-09", Resident: 1, Worker: 2, Visitor: 3, Extra: map[string]string{"OID_": "1"}},
		{Key: "b", CountDate: "2023-01-03", TimeSlice: "09-12", Resident: -5, Worker: math.NaN(), Visitor: 3, Extra: map[string]string{"OID_": "2"}},
	}
	report := ValidateRecords(records, cols)

	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 1, report.DuplicateRows)
	assert.Equal(t, 2, report.DistinctCounts["hex_id"])
	assert.Equal(t, 2, report.DistinctCounts["count_date"])
	assert.Equal(t, 2, report.DistinctCounts["time_indicator"])
	assert.Equal(t, 1, report.DistinctCounts["visitor"])
	assert.Equal(t, 1, report.DistinctCounts["worker"], "missing values are not distinct values")
	assert.Equal(t, 2, report.DistinctCounts["OID_"])

	require.Len(t, report.Columns, 3)
	resident := report.Columns[0]
	assert.Equal(t, "resident", resident.Column)
	assert.Equal(t, 3, resident.Count)
	assert.InDelta(t, -1.0, resident.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(12), resident.Std, 1e-9)
	assert.Equal(t, -5.0, resident.Min)
	assert.Equal(t, 1.0, resident.Max)
	assert.Equal(t, 1, resident.Negatives)

	worker := report.Columns[1]
	assert.Equal(t, 2, worker.Count)
	assert.Equal(t, 0.0, worker.Std)

	_, err := json.Marshal(report)
	assert.NoError(t, err)
}

func TestValidateRecordsWithoutKey(t *testing.T) {
	report := ValidateRecords([]schema.FootfallRecord{{Key: "ignored", CountDate: "2023-01-02", Resident: 4}}, contract.DefaultColumnMapping())

	assert.Equal(t, 0, report.DuplicateRows)
	assert.NotContains(t, report.DistinctCounts, "")
	assert.Equal(t, 1, report.DistinctCounts["count_date"])
	assert.Equal(t, 0.0, report.Columns[0].Std, "a single value has no sample deviation")
}

func TestValidateRecordsEmpty(t *testing.T) {
	report := ValidateRecords(nil, contract.DefaultColumnMapping())
	assert.Equal(t, 0, report.Rows)
	require.Len(t, report.Columns, 3)
	assert.Equal(t, 0, report.Columns[2].Count)
	assert.Equal(t, "visitor", report.Columns[2].Column)
}

func TestFingerprintOrdersExtras(t *testing.T) {
	a := schema.FootfallRecord{Key: "a", Extra: map[string]string{"x": "1", "y": "2"}}
	b := schema.FootfallRecord{Key: "a", Extra: map[string]string{"y": "2", "x": "1"}}
	assert.Equal(t, fingerprint(a), fingerprint(b))

	b.Extra["y"] = "3"
	assert.NotEqual(t, fingerprint(a), fingerprint(b))
}

func TestFingerprintKeepsFieldBoundaries(t *testing.T) {
	tests := []struct {
		name string
		a, b schema.FootfallRecord
	}{
		{
			"key and date split",
			schema.FootfallRecord{Key: "ab", CountDate: "c"},
			schema.FootfallRecord{Key: "a", CountDate: "bc"},
		},
		{
			"separator-like characters",
			schema.FootfallRecord{Key: "a,b", CountDate: "c"},
			schema.FootfallRecord{Key: "a", CountDate: "b,c"},
		},
		{
			"count moved between types",
			schema.FootfallRecord{Key: "a", Resident: 1},
			schema.FootfallRecord{Key: "a", Worker: 1},
		},
		{
			"extra key and value split",
			schema.FootfallRecord{Key: "a", Extra: map[string]string{"x=": "1"}},
			schema.FootfallRecord{Key: "a", Extra: map[string]string{"x": "=1"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, fingerprint(tt.a), fingerprint(tt.b))
		})
	}
}
