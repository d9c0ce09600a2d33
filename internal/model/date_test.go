package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{
			name:  "valid date",
			input: "2024-05-01",
			want:  NewDate(2024, time.May, 1),
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "wrong layout",
			input:   "01/05/2024",
			wantErr: true,
		},
		{
			name:    "invalid calendar day",
			input:   "2024-02-31",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want))
		})
	}
}

func TestDateOrdering(t *testing.T) {
	earlier := NewDate(2024, time.April, 30)
	later := NewDate(2024, time.May, 1)

	assert.True(t, earlier.Before(later))
	assert.True(t, later.After(earlier))
	assert.False(t, earlier.Equal(later))
	assert.True(t, earlier.Equal(DateOf(time.Date(2024, time.April, 30, 15, 4, 5, 0, time.UTC))))
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, time.May, 1)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-01"`, string(data))

	var back Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, d.Equal(back))

	// Remote stores sometimes return full timestamps for date columns.
	var truncated Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-05-01T00:00:00"`), &truncated))
	assert.True(t, d.Equal(truncated))

	var zero Date
	require.NoError(t, json.Unmarshal([]byte(`null`), &zero))
	assert.True(t, zero.IsZero())
}
