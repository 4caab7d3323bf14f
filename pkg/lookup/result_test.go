package lookup

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_MarshalJSON(t *testing.T) {
	fetched := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	pushed := time.Date(2024, 5, 30, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		res  Result
		want string
	}{
		{
			name: "fresh",
			res: Result{
				Kind:      KindFound,
				Stars:     12,
				UpdatedAt: time.Date(2024, 5, 31, 9, 30, 0, 0, time.UTC),
				PushedAt:  &pushed,
				FetchedAt: fetched,
			},
			want: `{"stars":12,"updated":"2024-05-31T09:30:00Z","pushedAt":"2024-05-30T08:00:00Z","fetchedAt":1717243200000,"cached":false,"archived":false,"inactive":false}`,
		},
		{
			name: "stale without push time",
			res: Result{
				Kind:      KindStaleFallback,
				Stars:     3,
				UpdatedAt: fetched,
				FetchedAt: fetched,
				FromCache: true,
				Archived:  true,
			},
			want: `{"stars":3,"updated":"2024-06-01T12:00:00Z","pushedAt":null,"fetchedAt":1717243200000,"cached":true,"archived":true,"inactive":false,"stale":true}`,
		},
		{
			name: "not found",
			res:  notFound(),
			want: `{"error":"Not Found","notFound":true}`,
		},
		{
			name: "failure",
			res:  Result{Kind: KindFailure, Message: "boom"},
			want: `{"error":"boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.res)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "found", KindFound.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "stale_fallback", KindStaleFallback.String())
	assert.Equal(t, "failure", KindFailure.String())
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Kind: KindFound},
		{Kind: KindFound, Archived: true, Inactive: true},
		{Kind: KindStaleFallback, Inactive: true},
		{Kind: KindNotFound},
		{Kind: KindFailure},
	}

	assert.Equal(t, Summary{
		Total:    5,
		Active:   1,
		Archived: 1,
		Inactive: 1,
		NotFound: 1,
		Unknown:  1,
		Stale:    1,
	}, Summarize(results))
}
