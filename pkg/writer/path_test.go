package writer

import (
	"testing"
	"time"

	"xlogd/pkg/clock"
)

func snapAt(t time.Time) clock.Snapshot {
	return clock.NewAt(func() time.Time { return t }).Current()
}

func TestResolve(t *testing.T) {
	// 2015-11-01 12:34:56 in the local zone.
	snap := snapAt(time.Date(2015, 11, 1, 12, 34, 56, 0, time.Local))

	cases := []struct {
		template string
		want     string
	}{
		{"", ""},
		{"plain.log", "plain.log"},
		{"~me~.log", "xlogd.log"},
		{"~y~/~ym~/~ymd~", "15/1511/151101"},
		{"~h~-~hm~-~hms~", "12-1234-123456"},
		{"logs/~ymd~/~hms~.log", "logs/151101/123456.log"},
	}
	for _, tc := range cases {
		if got := Resolve(tc.template, "xlogd", snap); got != tc.want {
			t.Errorf("Resolve(%q) = %q, want %q", tc.template, got, tc.want)
		}
	}
}
