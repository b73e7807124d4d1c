package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload_KnownShapes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantShape Shape
		wantCount int
	}{
		{
			name:      "bare array",
			body:      `[{"id":"1","phone":"9876543210"}]`,
			wantShape: ShapeArray,
			wantCount: 1,
		},
		{
			name:      "results list",
			body:      `{"results":[{"id":"1"},{"id":"2"}]}`,
			wantShape: ShapeResultsList,
			wantCount: 2,
		},
		{
			name:      "results by table",
			body:      `{"results":{"telecom":[{"id":"1"}],"banking":[{"id":"2"},{"id":"3"}]}}`,
			wantShape: ShapeResultsByTable,
			wantCount: 3,
		},
		{
			name:      "records",
			body:      `{"records":[{"id":"1"}]}`,
			wantShape: ShapeRecords,
			wantCount: 1,
		},
		{
			name:      "data",
			body:      `{"data":[{"id":"1"}]}`,
			wantShape: ShapeData,
			wantCount: 1,
		},
		{
			name:      "items",
			body:      `{"items":[{"id":"1"}]}`,
			wantShape: ShapeItems,
			wantCount: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recs, shape, _ := DecodePayload([]byte(tc.body))
			assert.Equal(t, tc.wantShape, shape)
			assert.Len(t, recs, tc.wantCount)
		})
	}
}

func TestDecodePayload_TableAttribution(t *testing.T) {
	recs, shape, _ := DecodePayload([]byte(`{"results":{"telecom":[{"id":"a"}],"banking":[{"id":"b"}]}}`))
	require.Equal(t, ShapeResultsByTable, shape)
	require.Len(t, recs, 2)

	// tables walked in sorted order for determinism
	assert.Equal(t, "banking", recs[0].Table)
	assert.Equal(t, "telecom", recs[1].Table)
}

func TestDecodePayload_UnknownShape(t *testing.T) {
	recs, shape, keys := DecodePayload([]byte(`{"status":"ok","payload":{"nested":true}}`))
	assert.Equal(t, ShapeUnknown, shape)
	assert.Empty(t, recs)
	assert.Equal(t, []string{"payload", "status"}, keys)
}

func TestDecodePayload_Garbage(t *testing.T) {
	for _, body := range []string{"", "not json", `"just a string"`, `42`} {
		recs, shape, _ := DecodePayload([]byte(body))
		assert.Equal(t, ShapeUnknown, shape, "body %q", body)
		assert.Empty(t, recs, "body %q", body)
	}
}

func TestRecordID_StableSynthesis(t *testing.T) {
	a := map[string]any{"phone": "9876543210", "city": "Delhi"}
	b := map[string]any{"city": "Delhi", "phone": "9876543210"}

	assert.Equal(t, recordID(a), recordID(b))
	assert.NotEmpty(t, recordID(a))
}

func TestRecordID_PrefersBackendID(t *testing.T) {
	assert.Equal(t, "xyz", recordID(map[string]any{"id": "xyz", "f": 1}))
	assert.Equal(t, "42", recordID(map[string]any{"id": float64(42)}))
}
