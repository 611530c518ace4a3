package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	at := time.Date(2021, 1, 2, 3, 4, 5, 6, time.UTC)
	var nilTime *time.Time
	var nilString *string
	s := "value"

	got := marshal([]any{true, false, at, &at, nilTime, nilString, &s, 42, "text"})

	assert.Equal(t, []any{
		1, 0,
		"2021-01-02T03:04:05.000000006Z",
		"2021-01-02T03:04:05.000000006Z",
		nil, nil,
		"value", 42, "text",
	}, got)
}

func TestFormatTime_SortsAsText(t *testing.T) {
	base := time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(time.Nanosecond),
		base.Add(100 * time.Millisecond),
		base.Add(time.Second),
		base.Add(24 * time.Hour),
	}

	for i := 1; i < len(times); i++ {
		assert.Less(t, FormatTime(times[i-1]), FormatTime(times[i]))
	}
}

func TestTimeScanners(t *testing.T) {
	want := time.Date(2021, 1, 2, 3, 4, 5, 6, time.UTC)

	tests := []struct {
		src     any
		name    string
		wantErr bool
	}{
		{name: "stored text", src: "2021-01-02T03:04:05.000000006Z"},
		{name: "bytes", src: []byte("2021-01-02T03:04:05.000000006Z")},
		{name: "rfc3339 with offset", src: "2021-01-02T06:04:05.000000006+03:00"},
		{name: "driver time", src: want.In(time.FixedZone("X", 3600))},
		{name: "garbage", src: "yesterday", wantErr: true},
		{name: "wrong type", src: int64(5), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got time.Time
			err := Time(&got).Scan(tt.src)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, want.Equal(got))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestNullTime(t *testing.T) {
	got := timePtr(time.Now())
	require.NoError(t, NullTime(&got).Scan(nil))
	assert.Nil(t, got)

	require.NoError(t, NullTime(&got).Scan("2021-01-02T03:04:05.000000000Z"))
	require.NotNil(t, got)
	assert.Equal(t, 2021, got.Year())

	var notNull time.Time
	require.Error(t, Time(&notNull).Scan(nil))
}
