package market

import (
	"testing"
	"time"
)

func ts(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestClampToSession(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "mid-session stays, rounded down to chunk",
			in:   ts(2026, time.August, 26, 15, 47), // Wednesday
			want: ts(2026, time.August, 26, 15, 45),
		},
		{
			name: "exactly on chunk boundary unchanged",
			in:   ts(2026, time.August, 26, 15, 45),
			want: ts(2026, time.August, 26, 15, 45),
		},
		{
			name: "saturday rolls back to friday close",
			in:   ts(2026, time.August, 29, 12, 0),
			want: ts(2026, time.August, 28, 21, 0),
		},
		{
			name: "sunday rolls back to friday close",
			in:   ts(2026, time.August, 30, 18, 3),
			want: ts(2026, time.August, 28, 21, 0),
		},
		{
			name: "after close snaps to close",
			in:   ts(2026, time.August, 26, 22, 12),
			want: ts(2026, time.August, 26, 21, 0),
		},
		{
			name: "before open on tuesday falls back to monday close",
			in:   ts(2026, time.August, 25, 13, 0),
			want: ts(2026, time.August, 24, 21, 0),
		},
		{
			name: "before open on monday reaches back to friday close",
			in:   ts(2026, time.August, 24, 9, 0),
			want: ts(2026, time.August, 21, 21, 0),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClampToSession(tc.in, DefaultChunkMinutes)
			if !got.Equal(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClampToSession_ConvertsToUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	in := time.Date(2026, time.August, 26, 11, 2, 30, 0, est) // 16:02:30 UTC, Wednesday

	got := ClampToSession(in, DefaultChunkMinutes)
	want := ts(2026, time.August, 26, 16, 0)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
